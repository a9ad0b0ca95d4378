// Package scheduler enumerates merchants and their known categories on a
// timer and publishes one sync task per unit of work. It never writes to
// the store.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ETAnderson/catalogsync/internal/domain"
	"github.com/ETAnderson/catalogsync/internal/metrics"
	"github.com/ETAnderson/catalogsync/internal/queue"
	"github.com/ETAnderson/catalogsync/internal/state"
)

const DefaultBatchSize = 30

type Config struct {
	BatchSize            int
	CategoriesEvery      time.Duration
	ProductsEvery        time.Duration
	ProductsInitialDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.CategoriesEvery <= 0 {
		c.CategoriesEvery = 30 * time.Minute
	}
	if c.ProductsEvery <= 0 {
		c.ProductsEvery = 5 * time.Minute
	}
	if c.ProductsInitialDelay < 0 {
		c.ProductsInitialDelay = 0
	}
	return c
}

// Report summarizes one pass. Batches holds the size of each merchant batch.
type Report struct {
	Batches   []int
	Published int
	Skipped   int
	Failed    int
}

type Scheduler struct {
	store     state.Enumerator
	publisher queue.Publisher
	cfg       Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func New(store state.Enumerator, publisher queue.Publisher, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:     store,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		metrics:   m,
	}
}

// Batches splits items into consecutive chunks of at most size.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// RunCategoriesSync publishes one categories task per merchant.
func (s *Scheduler) RunCategoriesSync(ctx context.Context) (Report, error) {
	return s.pass(ctx, "categories", func(ctx context.Context, m domain.Merchant) ([]queue.Task, error) {
		return []queue.Task{queue.CategoriesTask(m.ID)}, nil
	})
}

// RunProductsSync publishes one products task per locally known category.
// Merchants without categories are skipped.
func (s *Scheduler) RunProductsSync(ctx context.Context) (Report, error) {
	return s.pass(ctx, "products", func(ctx context.Context, m domain.Merchant) ([]queue.Task, error) {
		cats, err := s.store.ListCategories(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("list categories for merchant %s: %w", m.ID, err)
		}
		tasks := make([]queue.Task, 0, len(cats))
		for _, c := range cats {
			tasks = append(tasks, queue.ProductsTask(m.ID, c.CategoryID))
		}
		return tasks, nil
	})
}

type enumerateFunc func(ctx context.Context, m domain.Merchant) ([]queue.Task, error)

// pass enumerates batch by batch. Merchants of one batch are enumerated
// and published concurrently; the next batch waits for the previous one.
func (s *Scheduler) pass(ctx context.Context, name string, enumerate enumerateFunc) (Report, error) {
	log := s.logger.With(zap.String("pass", name))

	merchants, err := s.store.ListMerchants(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list merchants: %w", err)
	}

	var (
		rep Report
		mu  sync.Mutex
	)

	for _, batch := range Batches(merchants, s.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Batches = append(rep.Batches, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for _, m := range batch {
			g.Go(func() error {
				tasks, err := enumerate(gctx, m)
				if err != nil {
					log.Error("enumeration failed", zap.String("merchant_id", m.ID), zap.Error(err))
					mu.Lock()
					rep.Failed++
					mu.Unlock()
					return nil
				}
				if len(tasks) == 0 {
					log.Warn("merchant has no categories, skipping", zap.String("merchant_id", m.ID))
					mu.Lock()
					rep.Skipped++
					mu.Unlock()
					return nil
				}

				published, failed := s.publish(gctx, log, tasks)
				mu.Lock()
				rep.Published += published
				rep.Failed += failed
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	log.Info("sync pass published",
		zap.Int("merchants", len(merchants)),
		zap.Ints("batches", rep.Batches),
		zap.Int("published", rep.Published),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

func (s *Scheduler) publish(ctx context.Context, log *zap.Logger, tasks []queue.Task) (published int, failed int) {
	for _, t := range tasks {
		_, err := queue.PublishTask(ctx, s.publisher, t)
		s.metrics.TaskPublished(string(t.Topic()), err)
		if err != nil {
			log.Error("publish failed",
				zap.String("merchant_id", t.MerchantID),
				zap.String("category_id", t.CategoryID),
				zap.Error(err),
			)
			failed++
			continue
		}
		published++
	}
	return published, failed
}

// Run does one categories pass now, one products pass after the initial
// delay, then repeats each on its own period until ctx ends. Passes of the
// same kind never overlap.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.loop(gctx, 0, s.cfg.CategoriesEvery, s.RunCategoriesSync)
	})
	g.Go(func() error {
		return s.loop(gctx, s.cfg.ProductsInitialDelay, s.cfg.ProductsEvery, s.RunProductsSync)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context, delay time.Duration, every time.Duration, pass func(context.Context) (Report, error)) error {
	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	run := func() {
		if _, err := pass(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sync pass failed", zap.Error(err))
		}
	}

	// one immediate pass
	run()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}
