package resultcache

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tenchan000517/novel-sub017/v1/resultcache"

// Option configures a ResultCache at construction time.
type Option func(*ResultCache)

// WithMaxSize sets the maximum number of entries kept by the cache.
// Non-positive values keep DefaultMaxSize.
func WithMaxSize(n int) Option {
	return func(c *ResultCache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithTTL sets how long an entry stays fresh after it was written.
// Non-positive values keep DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(c *ResultCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock replaces time.Now as the source of write and read timestamps.
// Eviction follows write order, so it matches oldest-timestamp order only
// when now never runs backwards; time.Now is monotonic.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for lifecycle events. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *ResultCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection using the provided registerer.
// A nil registerer leaves metrics disabled.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *ResultCache) {
		if reg == nil {
			return
		}
		c.hitCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resultcache_hits_total",
			Help: "Total number of result cache hits",
		})
		c.missCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resultcache_misses_total",
			Help: "Total number of result cache misses",
		})
		c.evictionCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resultcache_evictions_total",
			Help: "Total number of entries evicted to honour the size bound",
		})
		c.expirationCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resultcache_expirations_total",
			Help: "Total number of stale entries removed on read",
		})
		c.latencyHist = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resultcache_latency_seconds",
			Help:    "Latency of result cache operations",
			Buckets: prometheus.DefBuckets,
		})
		reg.MustRegister(c.hitCounter, c.missCounter, c.evictionCounter, c.expirationCounter, c.latencyHist)
	}
}

// WithTracing enables OpenTelemetry spans for Get and Set using the global
// tracer provider.
func WithTracing() Option {
	return func(c *ResultCache) {
		c.tracer = otel.Tracer(tracerName)
	}
}

// WithTracerProvider enables OpenTelemetry spans using tp instead of the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *ResultCache) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}
