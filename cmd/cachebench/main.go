// Command cachebench drives a cache Manager with a synthetic concurrent
// workload and prints the resulting statistics as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jmgilman/go/cache"
	"github.com/jmgilman/go/cache/config"
	"github.com/jmgilman/go/cache/logging"
	"github.com/jmgilman/go/cache/promreporter"
	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

type benchConfig struct {
	configPath  string
	workers     int
	ops         int
	keys        int
	records     int
	readRatio   float64
	maintain    time.Duration
	metricsAddr string
}

func main() {
	var bc benchConfig
	flag.StringVar(&bc.configPath, "config", "", "Path to a CUE, YAML or JSON cache config")
	flag.IntVar(&bc.workers, "workers", 8, "Number of concurrent workers")
	flag.IntVar(&bc.ops, "ops", 100000, "Operations per worker")
	flag.IntVar(&bc.keys, "keys", 1000, "Number of distinct keys")
	flag.IntVar(&bc.records, "records", 4, "Records per inserted entry")
	flag.Float64Var(&bc.readRatio, "ratio", 0.8, "Read ratio (0.0-1.0)")
	flag.DurationVar(&bc.maintain, "maintain", time.Second, "Sweep and retune interval")
	flag.StringVar(&bc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, bc, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "cachebench: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context, path string) (config.Config, error) {
	if path == "" {
		return config.New(), nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return config.Config{}, errors.Wrap(err, errors.CodeInvalidInput, "failed to resolve config path")
	}
	loader, err := config.NewLoader(billy.NewLocal())
	if err != nil {
		return config.Config{}, err
	}
	return loader.Load(ctx, abs)
}

func run(ctx context.Context, bc benchConfig, out io.Writer) error {
	if bc.workers <= 0 || bc.keys <= 0 || bc.records <= 0 {
		return errors.New(errors.CodeInvalidInput, "workers, keys and records must be positive")
	}

	cfg, err := loadConfig(ctx, bc.configPath)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(cfg.LogConfig())

	reg := prometheus.NewRegistry()
	reporter, err := promreporter.New(reg, "")
	if err != nil {
		return err
	}

	m, err := cache.New(cfg, cache.WithLogger(logger), cache.WithReporter(reporter))
	if err != nil {
		return err
	}

	if bc.metricsAddr != "" {
		srv := &http.Server{
			Addr:              bc.metricsAddr,
			Handler:           reportingHandler(m, promreporter.Handler(reg)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "metrics server failed", "error", err.Error())
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	maintainCtx, stopMaintain := context.WithCancel(ctx)
	maintainDone := make(chan error, 1)
	go func() { maintainDone <- m.Maintain(maintainCtx, bc.maintain) }()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < bc.workers; w++ {
		g.Go(func() error { return work(gctx, m, bc) })
	}
	err = g.Wait()
	elapsed := time.Since(start)

	stopMaintain()
	if mErr := <-maintainDone; mErr != nil && !errors.Is(mErr, context.Canceled) {
		return mErr
	}
	if err != nil {
		return err
	}

	m.ReportMetrics(ctx)
	return printResult(out, m.Stats(), bc, elapsed)
}

func reportingHandler(m *cache.Manager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.ReportMetrics(r.Context())
		next.ServeHTTP(w, r)
	})
}

// work runs one worker's share of operations. Capacity and eviction errors
// are expected under pressure and do not stop the run.
func work(ctx context.Context, m *cache.Manager, bc benchConfig) error {
	for i := 0; i < bc.ops; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := fmt.Sprintf("key-%d", rand.IntN(bc.keys))
		if rand.Float64() < bc.readRatio {
			_, _ = m.FetchRecord(ctx, key, fmt.Sprint(rand.IntN(bc.records)))
			continue
		}

		err := m.Insert(ctx, key, "id", makeRecords(key, bc.records), cache.TTL(1+rand.IntN(4)))
		switch {
		case err == nil,
			cache.HasCode(err, cache.CodeCannotEvict),
			cache.HasCode(err, cache.CodeItemTooLarge):
		default:
			return err
		}
	}
	return nil
}

func makeRecords(key string, n int) []cache.Record {
	records := make([]cache.Record, n)
	for i := range records {
		records[i] = cache.Record{
			"id":    i,
			"key":   key,
			"score": rand.Float64(),
		}
	}
	return records
}

type result struct {
	Workers    int         `json:"workers"`
	Operations int         `json:"operations"`
	Elapsed    string      `json:"elapsed"`
	OpsPerSec  float64     `json:"ops_per_sec"`
	Stats      cache.Stats `json:"stats"`
}

func printResult(out io.Writer, stats cache.Stats, bc benchConfig, elapsed time.Duration) error {
	total := bc.workers * bc.ops
	res := result{
		Workers:    bc.workers,
		Operations: total,
		Elapsed:    elapsed.String(),
		Stats:      stats,
	}
	if elapsed > 0 {
		res.OpsPerSec = float64(total) / elapsed.Seconds()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
