package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tenchan000517/novel-sub017/v1/resultcache"
)

var (
	concurrency = flag.Int("c", 50, "Number of concurrent clients")
	requests    = flag.Int("n", 100000, "Total number of requests")
	dataSize    = flag.Int("d", 256, "Result size in bytes")
	keys        = flag.Int("k", 1000, "Number of distinct keys")
	maxSize     = flag.Int("max", resultcache.DefaultMaxSize, "Cache capacity")
	writeRatio  = flag.Int("w", 10, "Percentage of operations that are writes")
)

func validateFlags(concurrency, requests, keys int) error {
	switch {
	case concurrency <= 0:
		return errors.New("-c must be positive")
	case requests < concurrency:
		return errors.New("-n must be at least -c")
	case keys <= 0:
		return errors.New("-k must be positive")
	}
	return nil
}

func main() {
	flag.Parse()
	if err := validateFlags(*concurrency, *requests, *keys); err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	log.Printf("Starting benchmark: %d requests, %d concurrency, %d keys, %d bytes payload", *requests, *concurrency, *keys, *dataSize)

	c := resultcache.New(
		resultcache.WithMaxSize(*maxSize),
		resultcache.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx := context.Background()
	val := make([]byte, *dataSize)
	for i := range val {
		val[i] = 'x'
	}
	result := string(val)

	var ops int64
	reqsPerWorker := *requests / *concurrency
	start := time.Now()

	var g errgroup.Group
	for w := 0; w < *concurrency; w++ {
		g.Go(func() error {
			for j := 0; j < reqsPerWorker; j++ {
				k := "prompt:" + strconv.Itoa((w*reqsPerWorker+j)%*keys)
				if j%100 < *writeRatio {
					c.Set(ctx, k, result)
				} else if _, ok := c.Get(ctx, k); !ok {
					c.Set(ctx, k, result)
				}
				atomic.AddInt64(&ops, 1)
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	s := c.Stats()
	throughput := float64(ops) / elapsed.Seconds()
	avgLatency := elapsed.Seconds() / float64(ops) * 1e9 // ns

	log.Printf("Finished in %v", elapsed)
	log.Printf("Throughput: %.2f req/s", throughput)
	log.Printf("Avg Latency: %.2f ns", avgLatency)
	log.Printf("Hits: %d Misses: %d Evictions: %d Size: %d/%d", s.Hits, s.Misses, s.Evictions, s.Size, s.MaxSize)
}
