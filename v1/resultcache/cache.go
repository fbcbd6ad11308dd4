package resultcache

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	rcerrors "github.com/tenchan000517/novel-sub017/v1/errors"
)

const (
	// DefaultMaxSize is the capacity used when none is configured.
	DefaultMaxSize = 500
	// DefaultTTL is the freshness window used when none is configured.
	DefaultTTL = time.Hour
)

// ResultCache is a size-bounded, expiring store of computed results.
//
// Staleness is evaluated against the TTL in force at read time, and
// eviction always removes the entry written longest ago. Reads never
// refresh an entry; only a new Set for the same key does.
type ResultCache struct {
	mu      sync.Mutex
	items   map[Key]*entry
	order   *list.List // front = most recent write, back = oldest write
	maxSize int
	ttl     time.Duration

	now    func() time.Time
	logger *slog.Logger
	tracer trace.Tracer

	hits        atomic.Uint64
	misses      atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64

	hitCounter        prometheus.Counter
	missCounter       prometheus.Counter
	evictionCounter   prometheus.Counter
	expirationCounter prometheus.Counter
	latencyHist       prometheus.Histogram
}

type entry struct {
	key        Key
	result     string
	insertedAt time.Time
	element    *list.Element
}

// Settings carries the bounds accepted by Configure. A zero field leaves the
// current value unchanged.
type Settings struct {
	MaxSize int
	TTL     time.Duration
}

// Stats is a point-in-time snapshot of the cache.
type Stats struct {
	Size        int
	MaxSize     int
	TTL         time.Duration
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
}

// New returns an empty ResultCache bounded by DefaultMaxSize and DefaultTTL
// unless overridden by opts.
func New(opts ...Option) *ResultCache {
	c := &ResultCache{
		items:   make(map[Key]*entry),
		order:   list.New(),
		maxSize: DefaultMaxSize,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Info("resultcache: initialized", "max_size", c.maxSize, "ttl", c.ttl)
	return c
}

// Get returns the result stored for rawKey. The boolean is false when no
// entry exists or when the entry is older than the TTL, in which case the
// entry is removed before returning.
func (c *ResultCache) Get(ctx context.Context, rawKey string) (string, bool) {
	key := Digest(rawKey)
	span, done := c.observe(ctx, "ResultCache.Get", key)
	defer done()

	c.mu.Lock()
	e, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		c.recordMiss(span)
		return "", false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		c.removeLocked(e)
		c.mu.Unlock()
		c.expirations.Add(1)
		if c.expirationCounter != nil {
			c.expirationCounter.Inc()
		}
		c.recordMiss(span)
		return "", false
	}
	result := e.result
	c.mu.Unlock()

	c.hits.Add(1)
	if c.hitCounter != nil {
		c.hitCounter.Inc()
	}
	if span != nil {
		span.SetAttributes(attribute.String("resultcache.result", "hit"))
	}
	return result, true
}

// Set stores result under rawKey, stamping it with the current time. Writing
// an existing key replaces its result and renews its eviction priority.
// When the cache grows past its capacity the oldest written entries are
// evicted until it fits again.
func (c *ResultCache) Set(ctx context.Context, rawKey, result string) {
	key := Digest(rawKey)
	_, done := c.observe(ctx, "ResultCache.Set", key)
	defer done()

	c.mu.Lock()
	now := c.now()
	if e, ok := c.items[key]; ok {
		e.result = result
		e.insertedAt = now
		c.order.MoveToFront(e.element)
	} else {
		e := &entry{key: key, result: result, insertedAt: now}
		e.element = c.order.PushFront(e)
		c.items[key] = e
	}
	var evicted []Key
	for len(c.items) > c.maxSize {
		tail := c.order.Back()
		if tail == nil {
			break
		}
		old := tail.Value.(*entry)
		c.removeLocked(old)
		evicted = append(evicted, old.key)
	}
	c.mu.Unlock()

	for _, k := range evicted {
		c.evictions.Add(1)
		if c.evictionCounter != nil {
			c.evictionCounter.Inc()
		}
		c.logger.Debug("resultcache: evicted", "key", k.String())
	}
}

// Configure replaces the capacity and/or TTL. Zero fields are left as they
// are; negative fields are rejected and nothing is applied. A smaller
// capacity is not enforced until the next Set.
func (c *ResultCache) Configure(s Settings) error {
	if s.MaxSize < 0 {
		return fmt.Errorf("%w: %d", rcerrors.ErrInvalidMaxSize, s.MaxSize)
	}
	if s.TTL < 0 {
		return fmt.Errorf("%w: %s", rcerrors.ErrInvalidTTL, s.TTL)
	}

	c.mu.Lock()
	if s.MaxSize > 0 {
		c.maxSize = s.MaxSize
	}
	if s.TTL > 0 {
		c.ttl = s.TTL
	}
	maxSize, ttl := c.maxSize, c.ttl
	c.mu.Unlock()

	c.logger.Info("resultcache: configured", "max_size", maxSize, "ttl", ttl)
	return nil
}

// Clear removes every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	n := len(c.items)
	c.items = make(map[Key]*entry)
	c.order.Init()
	c.mu.Unlock()

	c.logger.Info("resultcache: cleared", "removed", n)
}

// Stats returns the current size, bounds and counters. Size includes stale
// entries that have not been read since they expired.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	s := Stats{
		Size:    len(c.items),
		MaxSize: c.maxSize,
		TTL:     c.ttl,
	}
	c.mu.Unlock()
	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Evictions = c.evictions.Load()
	s.Expirations = c.expirations.Load()
	return s
}

func (c *ResultCache) removeLocked(e *entry) {
	c.order.Remove(e.element)
	delete(c.items, e.key)
}

func (c *ResultCache) recordMiss(span trace.Span) {
	c.misses.Add(1)
	if c.missCounter != nil {
		c.missCounter.Inc()
	}
	if span != nil {
		span.SetAttributes(attribute.String("resultcache.result", "miss"))
	}
}

// observe starts a span when tracing is enabled and a latency measurement
// when metrics are enabled. The returned func must be deferred.
func (c *ResultCache) observe(ctx context.Context, name string, key Key) (trace.Span, func()) {
	if c.tracer == nil && c.latencyHist == nil {
		return nil, func() {}
	}
	var span trace.Span
	if c.tracer != nil {
		_, span = c.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("resultcache.key", key.String())))
	}
	start := time.Now()
	return span, func() {
		latency := time.Since(start)
		if c.latencyHist != nil {
			c.latencyHist.Observe(latency.Seconds())
		}
		if span != nil {
			span.SetAttributes(attribute.Int64("resultcache.latency_us", latency.Microseconds()))
			span.End()
		}
	}
}
