package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/app"
	"github.com/ETAnderson/catalogsync/internal/config"
	"github.com/ETAnderson/catalogsync/internal/logging"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("config loaded",
		zap.String("env", cfg.Env),
		zap.String("state_backend", cfg.StateBackend),
		zap.String("queue_backend", cfg.Queue.Backend),
		zap.Bool("db_dsn_set", cfg.MySQLDSN != ""),
		zap.Bool("scheduler", cfg.Scheduler.Enabled),
		zap.Int("workers_per_queue", cfg.WorkersPerQueue),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init failed", zap.Error(err))
	}
	defer a.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", a.Metrics.Handler())

	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", zap.String("addr", server.Addr))

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
			cancel()
		}
	}()

	poolDone := make(chan error, 1)
	go func() {
		poolDone <- a.Pool.Run(ctx)
	}()

	if cfg.Scheduler.Enabled {
		go func() {
			err := a.Scheduler.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler stopped", zap.Error(err))
			}
		}()
	}

	waitForShutdown(ctx, logger, cancel, server, poolDone, cfg.ShutdownTimeout)
}

// waitForShutdown blocks until a signal arrives or the pool exits, then
// stops intake and gives in-flight tasks up to timeout to settle.
func waitForShutdown(ctx context.Context, logger *zap.Logger, cancel func(), server *http.Server, poolDone <-chan error, timeout time.Duration) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", s.String()))
	case <-ctx.Done():
		logger.Warn("shutting down after component failure")
	case err := <-poolDone:
		logger.Error("worker pool stopped", zap.Error(err))
		poolDone = nil
	}
	cancel()

	if poolDone != nil {
		select {
		case err := <-poolDone:
			if err != nil {
				logger.Error("worker pool stopped with error", zap.Error(err))
			}
		case <-time.After(timeout):
			logger.Warn("in-flight tasks did not settle in time", zap.Duration("timeout", timeout))
		}
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = server.Shutdown(shutCtx)

	logger.Info("shutdown complete")
}
