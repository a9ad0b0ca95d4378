// Package app wires the pipeline's components from configuration. Both
// binaries build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/config"
	"github.com/ETAnderson/catalogsync/internal/credentials"
	"github.com/ETAnderson/catalogsync/internal/db"
	"github.com/ETAnderson/catalogsync/internal/logging"
	"github.com/ETAnderson/catalogsync/internal/metrics"
	"github.com/ETAnderson/catalogsync/internal/migrate"
	"github.com/ETAnderson/catalogsync/internal/queue"
	"github.com/ETAnderson/catalogsync/internal/reconcile"
	"github.com/ETAnderson/catalogsync/internal/scheduler"
	"github.com/ETAnderson/catalogsync/internal/state"
	"github.com/ETAnderson/catalogsync/internal/upstream"
	"github.com/ETAnderson/catalogsync/internal/worker"
)

type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Store     state.Store
	DB        *sqlx.DB // nil unless a mysql backend is configured
	Broker    queue.Broker
	Scheduler *scheduler.Scheduler
	Pool      worker.Pool
	Syncer    *worker.Syncer
}

// New builds every component. The caller owns Close.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	res, err := state.NewStore(ctx, state.FactoryConfig{Backend: cfg.StateBackend, MySQLDSN: cfg.MySQLDSN})
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}
	a.Store, a.DB = res.Store, res.DB

	if a.DB == nil && strings.EqualFold(strings.TrimSpace(cfg.Queue.Backend), "mysql") {
		if strings.TrimSpace(cfg.MySQLDSN) == "" {
			return nil, errors.New("DB_DSN is required when QUEUE_BACKEND=mysql")
		}
		if a.DB, err = db.Open(db.Config{DSN: cfg.MySQLDSN}); err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
	}

	if cfg.RunMigrations && a.DB != nil {
		if err := migrate.Apply(ctx, a.DB); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	a.Broker, err = queue.NewBroker(queue.FactoryConfig{
		Backend:       cfg.Queue.Backend,
		DB:            a.DB,
		LeaseTTL:      cfg.Queue.LeaseTTL,
		RedisAddr:     cfg.Queue.RedisAddr,
		RedisPassword: cfg.Queue.RedisPassword,
		RedisDB:       cfg.Queue.RedisDB,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("queue: %w", err)
	}

	creds, err := NewCredentialSource(cfg.Upstream, a.Store)
	if err != nil {
		a.Close()
		return nil, err
	}

	fetcher := upstream.NewFetcher(upstream.NewClient(upstream.ClientConfig{
		BaseURL:        cfg.Upstream.BaseURL,
		Timeout:        cfg.Upstream.Timeout,
		DefaultContext: cfg.Upstream.DefaultContext,
	}), a.Store)

	a.Syncer = &worker.Syncer{
		Store:       a.Store,
		Source:      fetcher,
		Credentials: creds,
		Engine:      reconcile.NewEngine(a.Store, logging.Named(logger, "reconcile")),
		Logger:      logging.Named(logger, "sync"),
		Metrics:     a.Metrics,
	}

	a.Pool = worker.Pool{
		Broker: a.Broker,
		Dispatcher: worker.Dispatcher{
			Registry:    worker.NewRegistry(a.Syncer.Handlers()...),
			MaxAttempts: cfg.Queue.MaxAttempts,
			Logger:      logging.Named(logger, "dispatch"),
		},
		Topics:          queue.Topics,
		WorkersPerTopic: cfg.WorkersPerQueue,
		InstanceID:      cfg.InstanceID,
		PollEvery:       cfg.PollEvery,
		ReconnectDelay:  cfg.Queue.ReconnectDelay,
		Logger:          logging.Named(logger, "worker"),
		Metrics:         a.Metrics,
	}

	a.Scheduler = scheduler.New(a.Store, a.Broker, scheduler.Config{
		BatchSize:            cfg.Scheduler.BatchSize,
		CategoriesEvery:      cfg.Scheduler.CategoriesEvery,
		ProductsEvery:        cfg.Scheduler.ProductsEvery,
		ProductsInitialDelay: cfg.Scheduler.ProductsInitialDelay,
	}, logging.Named(logger, "scheduler"), a.Metrics)

	return a, nil
}

// NewCredentialSource picks where upstream tokens come from.
func NewCredentialSource(cfg config.UpstreamConfig, store credentials.Reader) (credentials.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.CredentialSource)) {
	case "", "static":
		return credentials.NewStatic(cfg.AccessToken), nil
	case "store":
		return credentials.NewStoreSource(store), nil
	default:
		return nil, fmt.Errorf("unknown CREDENTIAL_SOURCE %q (use static or store)", cfg.CredentialSource)
	}
}

func (a *App) Close() {
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			a.Logger.Warn("broker close failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("database close failed", zap.Error(err))
		}
	}
}
