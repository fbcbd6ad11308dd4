package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// GenerateCounter tracks generation requests by outcome (hit, miss, error, bypass).
	GenerateCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resultcache_generate_total",
		Help: "Total number of generation requests by cache outcome",
	}, []string{"outcome"})
	// GenerateLatency observes the end-to-end latency of generation requests.
	GenerateLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "resultcache_generate_latency_seconds",
		Help:    "Latency of generation requests including cache lookups",
		Buckets: prometheus.DefBuckets,
	})
	// SizeGauge reports the number of entries held by the result cache.
	SizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "resultcache_size",
		Help: "Current number of entries in the result cache",
	})
	// MaxSizeGauge reports the configured capacity of the result cache.
	MaxSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "resultcache_max_size",
		Help: "Configured capacity of the result cache",
	})
	// TTLGauge reports the configured freshness window in seconds.
	TTLGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "resultcache_ttl_seconds",
		Help: "Configured TTL of the result cache in seconds",
	})
)

// Outcome labels for GenerateCounter.
const (
	OutcomeHit    = "hit"
	OutcomeMiss   = "miss"
	OutcomeError  = "error"
	OutcomeBypass = "bypass"
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers the generation and cache health metrics on
// the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(GenerateCounter, GenerateLatency, SizeGauge, MaxSizeGauge, TTLGauge)
}
