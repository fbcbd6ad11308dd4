// Package generation defines text-generation requests and a Generator
// wrapper that memoizes results in a resultcache.ResultCache.
package generation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Generator produces a text result for a request. Implementations are
// typically slow and non-deterministic.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// EchoGenerator is a deterministic stand-in for a model backend. It waits
// for Latency and echoes the prompt back, tagged with the model name.
type EchoGenerator struct {
	Latency time.Duration
	calls   atomic.Int64
}

// Generate implements Generator.
func (e *EchoGenerator) Generate(ctx context.Context, req Request) (string, error) {
	e.calls.Add(1)
	if e.Latency > 0 {
		t := time.NewTimer(e.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Sprintf("[%s] %s", req.Model, req.Prompt), nil
}

// Calls reports how many times Generate was invoked.
func (e *EchoGenerator) Calls() int64 {
	return e.calls.Load()
}
