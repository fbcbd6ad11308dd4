package presets

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tenchan000517/novel-sub017/v1/config"
	"github.com/tenchan000517/novel-sub017/v1/generation"
	"github.com/tenchan000517/novel-sub017/v1/metrics"
	"github.com/tenchan000517/novel-sub017/v1/reporter"
	"github.com/tenchan000517/novel-sub017/v1/resultcache"
)

// Stack is the set of components that make up one process's memoization
// layer. It owns exactly one ResultCache.
type Stack struct {
	Cache     *resultcache.ResultCache
	Generator *generation.CachedGenerator
	// Reporter is nil when periodic reporting is disabled.
	Reporter *reporter.Reporter
}

// FromConfig assembles a Stack around backend from cfg.
// When reg is non-nil the cache and generation metrics are registered on it.
// A reporter is started when cfg.Report.Interval is positive.
func FromConfig(cfg *config.Config, backend generation.Generator, logger *slog.Logger, reg prometheus.Registerer) *Stack {
	if logger == nil {
		logger = slog.Default()
	}

	cacheOpts := []resultcache.Option{
		resultcache.WithMaxSize(cfg.Cache.MaxSize),
		resultcache.WithTTL(cfg.Cache.TTL),
		resultcache.WithLogger(logger),
	}
	genOpts := []generation.Option{
		generation.WithEnabled(cfg.Cache.Enabled),
		generation.WithLogger(logger),
	}
	if reg != nil {
		cacheOpts = append(cacheOpts, resultcache.WithMetrics(reg))
		metrics.RegisterCoreMetrics(reg)
	}
	if cfg.Tracing.Enabled {
		cacheOpts = append(cacheOpts, resultcache.WithTracing())
		genOpts = append(genOpts, generation.WithTracing())
	}

	c := resultcache.New(cacheOpts...)
	s := &Stack{
		Cache:     c,
		Generator: generation.NewCached(c, backend, genOpts...),
	}
	if cfg.Report.Interval > 0 {
		s.Reporter = reporter.New(c, reporter.WithInterval(cfg.Report.Interval), reporter.WithLogger(logger))
		s.Reporter.Start()
	}
	return s
}

// NewInMemoryStandalone creates a Stack with default bounds and no metrics,
// tracing or reporting. Useful for local development and tests.
func NewInMemoryStandalone(backend generation.Generator) *Stack {
	c := resultcache.New()
	return &Stack{
		Cache:     c,
		Generator: generation.NewCached(c, backend),
	}
}

// Close stops the reporter, if any, and clears the cache.
func (s *Stack) Close() {
	if s.Reporter != nil {
		s.Reporter.Close()
	}
	s.Cache.Clear()
}
