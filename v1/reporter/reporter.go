// Package reporter periodically publishes result cache health to the log and
// to Prometheus gauges.
package reporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tenchan000517/novel-sub017/v1/metrics"
	"github.com/tenchan000517/novel-sub017/v1/resultcache"
)

// DefaultInterval is the reporting period used when none is configured.
const DefaultInterval = 30 * time.Second

// StatsSource is anything that can report result cache stats.
type StatsSource interface {
	Stats() resultcache.Stats
}

// Reporter logs a StatsSource snapshot on a fixed interval.
type Reporter struct {
	src      StatsSource
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithInterval sets the reporting period. Non-positive values keep
// DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the logger snapshots are written to.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Reporter for src. Call Start to begin reporting.
func New(src StatsSource, opts ...Option) *Reporter {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reporter{
		src:      src,
		interval: DefaultInterval,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the background reporting loop. Calling Start more than once
// has no effect.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.ctx.Err() != nil {
		return
	}
	r.started = true
	r.wg.Add(1)
	go r.loop()
}

// ReportOnce publishes a single snapshot and returns it.
func (r *Reporter) ReportOnce() resultcache.Stats {
	s := r.src.Stats()
	metrics.SizeGauge.Set(float64(s.Size))
	metrics.MaxSizeGauge.Set(float64(s.MaxSize))
	metrics.TTLGauge.Set(s.TTL.Seconds())
	r.logger.Info("resultcache: stats",
		"size", s.Size,
		"max_size", s.MaxSize,
		"ttl", s.TTL,
		"hits", s.Hits,
		"misses", s.Misses,
		"evictions", s.Evictions,
		"expirations", s.Expirations,
	)
	return s
}

// Close stops the reporting loop and waits for it to exit. It is safe to
// call multiple times.
func (r *Reporter) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Reporter) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.ReportOnce()
		case <-r.ctx.Done():
			return
		}
	}
}
