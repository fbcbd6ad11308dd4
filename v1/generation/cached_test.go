package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	rcerrors "github.com/tenchan000517/novel-sub017/v1/errors"
	"github.com/tenchan000517/novel-sub017/v1/metrics"
	"github.com/tenchan000517/novel-sub017/v1/resultcache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCache(t *testing.T, opts ...resultcache.Option) *resultcache.ResultCache {
	t.Helper()
	return resultcache.New(append([]resultcache.Option{resultcache.WithLogger(discardLogger())}, opts...)...)
}

func outcomeCount(outcome string) float64 {
	return testutil.ToFloat64(metrics.GenerateCounter.WithLabelValues(outcome))
}

func TestCachedGeneratorHitAfterMiss(t *testing.T) {
	ctx := context.Background()
	backend := &EchoGenerator{}
	g := NewCached(newCache(t), backend, WithLogger(discardLogger()))
	req := Request{Model: "m", Prompt: "write a haiku"}

	hits, misses := outcomeCount(metrics.OutcomeHit), outcomeCount(metrics.OutcomeMiss)

	first, err := g.Generate(ctx, req)
	require.NoError(t, err)
	second, err := g.Generate(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "[m] write a haiku", first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, backend.Calls())
	assert.Equal(t, hits+1, outcomeCount(metrics.OutcomeHit))
	assert.Equal(t, misses+1, outcomeCount(metrics.OutcomeMiss))
}

func TestCachedGeneratorRecomputesAfterExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newCache(t, resultcache.WithTTL(time.Minute), resultcache.WithClock(func() time.Time { return now }))
	backend := &EchoGenerator{}
	g := NewCached(c, backend, WithLogger(discardLogger()))
	req := Request{Model: "m", Prompt: "p"}

	_, err := g.Generate(ctx, req)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = g.Generate(ctx, req)
	require.NoError(t, err)

	assert.EqualValues(t, 2, backend.Calls())
}

func TestCachedGeneratorDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")
	calls := 0
	backend := GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	})
	c := newCache(t)
	g := NewCached(c, backend, WithLogger(discardLogger()))
	req := Request{Model: "m", Prompt: "p"}

	_, err := g.Generate(ctx, req)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Stats().Size)

	out, err := g.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls)
}

func TestCachedGeneratorDisabled(t *testing.T) {
	ctx := context.Background()
	backend := &EchoGenerator{}
	c := newCache(t)
	g := NewCached(c, backend, WithEnabled(false), WithLogger(discardLogger()))
	req := Request{Model: "m", Prompt: "p"}

	for i := 0; i < 3; i++ {
		_, err := g.Generate(ctx, req)
		require.NoError(t, err)
	}
	assert.False(t, g.Enabled())
	assert.EqualValues(t, 3, backend.Calls())
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCachedGeneratorNilCacheBypasses(t *testing.T) {
	backend := &EchoGenerator{}
	g := NewCached(nil, backend, WithLogger(discardLogger()))
	out, err := g.Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "[m] p", out)
	assert.False(t, g.Enabled())
}

func TestCachedGeneratorInvalidRequest(t *testing.T) {
	backend := &EchoGenerator{}
	g := NewCached(newCache(t), backend, WithLogger(discardLogger()))
	_, err := g.Generate(context.Background(), Request{Model: "m"})
	assert.ErrorIs(t, err, rcerrors.ErrEmptyPrompt)
	assert.EqualValues(t, 0, backend.Calls())
}

func TestCachedGeneratorNoBackend(t *testing.T) {
	g := NewCached(newCache(t), nil, WithLogger(discardLogger()))
	_, err := g.Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, rcerrors.ErrGeneratorUnavailable)
}

func TestCachedGeneratorContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newCache(t)
	g := NewCached(c, &EchoGenerator{Latency: time.Second}, WithLogger(discardLogger()))
	_, err := g.Generate(ctx, Request{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCachedGeneratorTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	g := NewCached(newCache(t), &EchoGenerator{}, WithLogger(discardLogger()), WithTracerProvider(tp))
	_, err := g.Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "CachedGenerator.Generate", spans[0].Name())
	var outcome string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "generation.outcome" {
			outcome = kv.Value.AsString()
		}
	}
	assert.Equal(t, metrics.OutcomeMiss, outcome)
}
