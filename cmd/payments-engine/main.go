// Command payments-engine replays a CSV stream of deposits, withdrawals and
// dispute events and prints the resulting client accounts as CSV.
//
//	payments-engine [-serve addr] [-workers n] transactions.csv > accounts.csv
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/payments-engine/internal/api"
	"github.com/atmx/payments-engine/internal/config"
	"github.com/atmx/payments-engine/internal/csvio"
	"github.com/atmx/payments-engine/internal/engine"
	"github.com/atmx/payments-engine/internal/export"
	"github.com/atmx/payments-engine/internal/logging"
	"github.com/atmx/payments-engine/internal/store"
)

const service = "payments-engine"

var errUsage = errors.New("usage: payments-engine [-serve addr] [-workers n] <transactions.csv>")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, errUsage)
			os.Exit(2)
		}
		slog.Error("payments-engine failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet(service, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	serveAddr := fs.String("serve", cfg.ServeAddr, "serve the HTTP API on this address until interrupted")
	workers := fs.Int("workers", cfg.Workers, "number of processing workers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	runID := uuid.NewString()
	logger := logging.Init(service, cfg.LogLevel, cfg.AppEnv).With("run_id", runID)
	ctx = logging.WithLogger(ctx, logger)

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	// --- Exporters ---
	exporters, closeExporters, err := openExporters(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeExporters()

	ms := store.NewMemoryStore()

	// --- Optional HTTP API ---
	var (
		handler  *api.Handler
		notifier engine.Notifier
		srv      *http.Server
		srvErr   = make(chan error, 1)
	)
	if *serveAddr != "" {
		hub := api.NewHub(runID)
		go hub.Run(ctx)
		notifier = hub
		handler = api.NewHandler(ms, hub)

		srv = &http.Server{
			Addr:         *serveAddr,
			Handler:      api.NewRouter(handler, hub),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info("api listening", "addr", *serveAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				srvErr <- err
			}
		}()
		defer shutdown(srv, cfg.ShutdownTimeout)
	}

	// --- Process ---
	src := csvio.NewReader(bufio.NewReader(f))
	runner := engine.NewShardedRunner(engine.NewProcessor(ms, notifier), *workers)

	start := time.Now()
	sum, runErr := runner.Run(ctx, src)
	if runErr != nil {
		logger.Error("processing stopped early", "err", runErr, "records", sum.Records)
	}

	// The snapshot reflects every record applied before a failure.
	accounts, err := ms.SnapshotAll(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	out := bufio.NewWriter(stdout)
	if err := csvio.WriteSnapshot(out, accounts); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	logger.Info("run completed",
		"records", sum.Records,
		"applied", sum.Applied,
		"rejected", sum.Rejected,
		"malformed", src.Dropped(),
		"accounts", len(accounts),
		"workers", *workers,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	for reason, n := range sum.ByReason {
		logger.Debug("rejections", "reason", reason, "count", n)
	}
	if runErr != nil {
		return fmt.Errorf("process %s: %w", fs.Arg(0), runErr)
	}

	if len(exporters) > 0 {
		if err := exporters.Export(ctx, runID, accounts); err != nil {
			return fmt.Errorf("export snapshot: %w", err)
		}
		logger.Info("snapshot exported", "sinks", len(exporters))
	}

	if handler == nil {
		return nil
	}
	handler.RunCompleted(runID, sum)

	select {
	case <-ctx.Done():
		return nil
	case err := <-srvErr:
		return fmt.Errorf("serve: %w", err)
	}
}

func openExporters(ctx context.Context, cfg *config.Config) (export.Multi, func(), error) {
	var (
		exporters export.Multi
		cleanup   []func()
	)
	closeAll := func() {
		for _, fn := range cleanup {
			fn()
		}
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, closeAll, fmt.Errorf("database connection failed: %w", err)
		}
		cleanup = append(cleanup, pool.Close)

		pg := export.NewPostgresExporter(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		exporters = append(exporters, pg)
		logging.FromContext(ctx).Info("postgres export enabled")
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		exporters = append(exporters, export.NewRedisExporter(rdb, cfg.RedisTTL))
		logging.FromContext(ctx).Info("redis export enabled", "ttl", cfg.RedisTTL)
	}

	return exporters, closeAll, nil
}

func shutdown(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	slog.Info("shutting down api")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
}
