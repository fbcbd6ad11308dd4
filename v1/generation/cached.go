package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	rcerrors "github.com/tenchan000517/novel-sub017/v1/errors"
	"github.com/tenchan000517/novel-sub017/v1/metrics"
	"github.com/tenchan000517/novel-sub017/v1/resultcache"
)

const tracerName = "github.com/tenchan000517/novel-sub017/v1/generation"

// CachedGenerator memoizes the results of another Generator in a
// ResultCache. Failed generations are never cached.
type CachedGenerator struct {
	cache   *resultcache.ResultCache
	next    Generator
	enabled bool
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a CachedGenerator.
type Option func(*CachedGenerator)

// WithEnabled toggles the cache. A disabled CachedGenerator passes every
// request straight to the wrapped generator.
func WithEnabled(enabled bool) Option {
	return func(g *CachedGenerator) {
		g.enabled = enabled
	}
}

// WithLogger sets the logger used for per-request logging.
func WithLogger(l *slog.Logger) Option {
	return func(g *CachedGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithTracerProvider enables OpenTelemetry spans using tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *CachedGenerator) {
		if tp != nil {
			g.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithTracing enables OpenTelemetry spans using the global tracer provider.
func WithTracing() Option {
	return func(g *CachedGenerator) {
		g.tracer = otel.Tracer(tracerName)
	}
}

// NewCached wraps next with cache. The cache is enabled by default.
func NewCached(cache *resultcache.ResultCache, next Generator, opts ...Option) *CachedGenerator {
	g := &CachedGenerator{
		cache:   cache,
		next:    next,
		enabled: true,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a cached result for req when a fresh one exists and
// otherwise calls the wrapped generator, caching its result on success.
func (g *CachedGenerator) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	defer func() {
		metrics.GenerateLatency.Observe(time.Since(start).Seconds())
	}()

	requestID := uuid.NewString()
	var span trace.Span
	if g.tracer != nil {
		ctx, span = g.tracer.Start(ctx, "CachedGenerator.Generate", trace.WithAttributes(
			attribute.String("generation.request_id", requestID),
			attribute.String("generation.model", req.Model),
		))
		defer span.End()
	}
	log := g.logger.With("request_id", requestID, "model", req.Model)

	if g.next == nil {
		return "", rcerrors.ErrGeneratorUnavailable
	}
	key, err := req.CacheKey()
	if err != nil {
		g.record(span, metrics.OutcomeError)
		return "", err
	}

	if g.cache == nil || !g.enabled {
		out, err := g.call(ctx, span, log, req)
		if err != nil {
			g.record(span, metrics.OutcomeError)
			return "", err
		}
		g.record(span, metrics.OutcomeBypass)
		return out, nil
	}

	if v, ok := g.cache.Get(ctx, key); ok {
		g.record(span, metrics.OutcomeHit)
		log.Debug("generation: cache hit")
		return v, nil
	}

	out, err := g.call(ctx, span, log, req)
	if err != nil {
		g.record(span, metrics.OutcomeError)
		return "", err
	}
	g.cache.Set(ctx, key, out)
	g.record(span, metrics.OutcomeMiss)
	log.Debug("generation: cache miss", "elapsed", time.Since(start))
	return out, nil
}

// Enabled reports whether results are being cached.
func (g *CachedGenerator) Enabled() bool {
	return g.enabled && g.cache != nil
}

func (g *CachedGenerator) call(ctx context.Context, span trace.Span, log *slog.Logger, req Request) (string, error) {
	out, err := g.next.Generate(ctx, req)
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		log.Warn("generation: backend failed", "error", err)
		return "", fmt.Errorf("generation: %w", err)
	}
	return out, nil
}

func (g *CachedGenerator) record(span trace.Span, outcome string) {
	metrics.GenerateCounter.WithLabelValues(outcome).Inc()
	if span != nil {
		span.SetAttributes(attribute.String("generation.outcome", outcome))
	}
}
