package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tenchan000517/novel-sub017/v1/config"
	"github.com/tenchan000517/novel-sub017/v1/generation"
	"github.com/tenchan000517/novel-sub017/v1/metrics"
	"github.com/tenchan000517/novel-sub017/v1/presets"
)

var (
	configPath  = flag.String("config", "", "Path to a YAML config file")
	requests    = flag.Int("n", 200, "Total number of generation requests")
	concurrency = flag.Int("c", 8, "Number of concurrent callers")
	prompts     = flag.Int("prompts", 20, "Number of distinct prompts to cycle through")
	linger      = flag.Duration("linger", 0, "Keep serving metrics for this long after the run")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := setupTracing()
		if err != nil {
			log.Fatalf("tracing: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	reg := metrics.NewRegistry()
	if cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	backend := &generation.EchoGenerator{Latency: cfg.Generator.Latency}
	stack := presets.FromConfig(cfg, backend, logger, reg)
	defer stack.Close()

	start := time.Now()
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	for i := 0; i < *requests; i++ {
		req := generation.Request{
			Model:       cfg.Generator.Model,
			Prompt:      fmt.Sprintf("Summarize chapter %d", i%max(*prompts, 1)),
			Temperature: 0.7,
		}
		g.Go(func() error {
			if _, err := stack.Generator.Generate(gctx, req); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("run: %v", err)
	}

	elapsed := time.Since(start)
	s := stack.Cache.Stats()
	logger.Info("run finished",
		"requests", *requests,
		"elapsed", elapsed,
		"backend_calls", backend.Calls(),
		"failed", failed.Load(),
		"hits", s.Hits,
		"misses", s.Misses,
		"size", s.Size,
	)

	if *linger > 0 {
		select {
		case <-time.After(*linger):
		case <-ctx.Done():
		}
	}
}

// setupTracing installs a TracerProvider that writes spans to stdout.
func setupTracing() (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
