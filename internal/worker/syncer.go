package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/credentials"
	"github.com/ETAnderson/catalogsync/internal/domain"
	"github.com/ETAnderson/catalogsync/internal/metrics"
	"github.com/ETAnderson/catalogsync/internal/queue"
	"github.com/ETAnderson/catalogsync/internal/reconcile"
	"github.com/ETAnderson/catalogsync/internal/state"
	"github.com/ETAnderson/catalogsync/internal/upstream"
)

// CatalogSource is the upstream side of a sync.
type CatalogSource interface {
	ResolveCatalogID(ctx context.Context, token string, m domain.Merchant) (string, error)
	FetchCategories(ctx context.Context, token string, merchantID string, catalogID string) ([]upstream.Category, error)
	FetchCategoryItems(ctx context.Context, token string, merchantID string, catalogID string, categoryID string) (*upstream.CategoryItems, error)
}

// MerchantStore is what the syncer reads and stamps on merchants.
type MerchantStore interface {
	GetMerchant(ctx context.Context, merchantID string) (domain.Merchant, bool, error)
	ListCategories(ctx context.Context, merchantID string) ([]domain.Category, error)
	MarkMerchantSynced(ctx context.Context, merchantID string, status domain.SyncStatus, at time.Time) error
}

type Syncer struct {
	Store       MerchantStore
	Source      CatalogSource
	Credentials credentials.Source
	Engine      *reconcile.Engine

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Handlers returns one handler per task kind. Each stamps the merchant's
// last sync time and status when it finishes.
func (s *Syncer) Handlers() []TaskHandler {
	return []TaskHandler{
		HandlerFunc{K: queue.KindCategories, Fn: func(ctx context.Context, t queue.Task) error {
			res, err := s.SyncCategories(ctx, t.MerchantID)
			return s.finish(ctx, t.MerchantID, res, err)
		}},
		HandlerFunc{K: queue.KindProducts, Fn: func(ctx context.Context, t queue.Task) error {
			res, err := s.SyncProducts(ctx, t.MerchantID, t.CategoryID)
			return s.finish(ctx, t.MerchantID, res, err)
		}},
		HandlerFunc{K: queue.KindInitial, Fn: func(ctx context.Context, t queue.Task) error {
			res, err := s.SyncInitial(ctx, t.MerchantID)
			return s.finish(ctx, t.MerchantID, res, err)
		}},
	}
}

type session struct {
	merchant  domain.Merchant
	token     string
	catalogID string
}

func (s *Syncer) open(ctx context.Context, merchantID string) (session, error) {
	m, ok, err := s.Store.GetMerchant(ctx, merchantID)
	if err != nil {
		return session{}, fmt.Errorf("load merchant %s: %w", merchantID, err)
	}
	if !ok {
		return session{}, fmt.Errorf("%w: %s", state.ErrMerchantNotFound, merchantID)
	}

	token, err := s.Credentials.Token(ctx, merchantID)
	if err != nil {
		return session{}, err
	}

	catalogID, err := s.Source.ResolveCatalogID(ctx, token, m)
	if err != nil {
		return session{}, err
	}
	m.CatalogID = catalogID

	return session{merchant: m, token: token, catalogID: catalogID}, nil
}

func (s *Syncer) SyncCategories(ctx context.Context, merchantID string) (reconcile.Result, error) {
	sess, err := s.open(ctx, merchantID)
	if err != nil {
		return reconcile.Result{}, err
	}
	return s.syncCategories(ctx, sess)
}

func (s *Syncer) syncCategories(ctx context.Context, sess session) (reconcile.Result, error) {
	cats, err := s.Source.FetchCategories(ctx, sess.token, sess.merchant.ID, sess.catalogID)
	if err != nil {
		return reconcile.Result{}, err
	}

	res, err := s.Engine.ReconcileCategories(ctx, sess.merchant, sess.catalogID, cats)
	if err != nil {
		return reconcile.Result{}, err
	}
	s.record(reconcile.EntityCategory, res.Counts)
	s.record(reconcile.EntityItem, res.Items)
	return res, nil
}

func (s *Syncer) SyncProducts(ctx context.Context, merchantID string, categoryID string) (reconcile.Result, error) {
	sess, err := s.open(ctx, merchantID)
	if err != nil {
		return reconcile.Result{}, err
	}
	return s.syncProducts(ctx, sess, categoryID)
}

func (s *Syncer) syncProducts(ctx context.Context, sess session, categoryID string) (reconcile.Result, error) {
	items, err := s.Source.FetchCategoryItems(ctx, sess.token, sess.merchant.ID, sess.catalogID, categoryID)
	if err != nil {
		return reconcile.Result{}, err
	}

	res, err := s.Engine.ReconcileItems(ctx, sess.merchant, categoryID, items)
	if err != nil {
		return reconcile.Result{}, err
	}
	s.record(reconcile.EntityItem, res.Counts)
	s.record("option_group", res.Groups)
	s.record("option", res.Options)
	return res, nil
}

// SyncInitial syncs the category list, then every local category's items
// one after another. A failing category does not stop the others; the
// task still fails so it is retried.
func (s *Syncer) SyncInitial(ctx context.Context, merchantID string) (reconcile.Result, error) {
	sess, err := s.open(ctx, merchantID)
	if err != nil {
		return reconcile.Result{}, err
	}

	total, err := s.syncCategories(ctx, sess)
	if err != nil {
		return total, err
	}

	cats, err := s.Store.ListCategories(ctx, merchantID)
	if err != nil {
		return total, fmt.Errorf("list categories for merchant %s: %w", merchantID, err)
	}

	var errs []error
	for _, c := range cats {
		res, err := s.syncProducts(ctx, sess, c.CategoryID)
		if err != nil {
			errs = append(errs, fmt.Errorf("category %s: %w", c.CategoryID, err))
			continue
		}
		total.Merge(res)
	}
	return total, errors.Join(errs...)
}

func (s *Syncer) finish(ctx context.Context, merchantID string, res reconcile.Result, err error) error {
	status := domain.SyncStatusSuccess
	switch {
	case err != nil:
		status = domain.SyncStatusFailed
	case res.Partial():
		status = domain.SyncStatusPartial
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if merr := s.Store.MarkMerchantSynced(ctx, merchantID, status, now().UTC()); merr != nil && !errors.Is(merr, state.ErrMerchantNotFound) {
		s.logger().Warn("could not record sync status", zap.String("merchant_id", merchantID), zap.Error(merr))
	}

	if err == nil {
		s.logger().Info("sync done",
			zap.String("merchant_id", merchantID),
			zap.String("status", string(status)),
			zap.Int("upserted", res.Upserted),
			zap.Int("removed", res.Removed),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Int("changes", len(res.Changes)),
		)
	}
	return err
}

func (s *Syncer) record(entity string, c reconcile.Counts) {
	s.Metrics.Entities(entity, "upserted", c.Upserted)
	s.Metrics.Entities(entity, "removed", c.Removed)
	s.Metrics.Entities(entity, "skipped", c.Skipped)
	s.Metrics.Entities(entity, "failed", c.Failed)
}

func (s *Syncer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
