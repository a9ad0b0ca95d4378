// Package reconcile makes the local mirror match upstream for one scope:
// a merchant's category list or one category's items and their complements.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/domain"
	"github.com/ETAnderson/catalogsync/internal/state"
	"github.com/ETAnderson/catalogsync/internal/upstream"
)

// Store is the slice of state.Store the engine writes through.
type Store interface {
	ListCategories(ctx context.Context, merchantID string) ([]domain.Category, error)
	UpsertCategory(ctx context.Context, c domain.Category) error
	DeleteCategory(ctx context.Context, merchantID string, categoryID string) error

	ListItems(ctx context.Context, merchantID string, categoryID string) ([]domain.Item, error)
	UpsertItem(ctx context.Context, it domain.Item) error
	DeleteItem(ctx context.Context, merchantID string, itemID string) error

	UpsertOptionGroup(ctx context.Context, g domain.OptionGroup) error
	UpsertOption(ctx context.Context, o domain.Option) error
}

type Engine struct {
	Store  Store
	Logger *zap.Logger
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Store: store, Logger: logger}
}

func writeFailed(op string, id string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", state.ErrWriteFailed, op, id, err)
}

// ReconcileCategories deletes local categories missing upstream together
// with their items, then upserts every upstream category.
func (e *Engine) ReconcileCategories(ctx context.Context, m domain.Merchant, catalogID string, cats []upstream.Category) (Result, error) {
	log := e.Logger.With(zap.String("merchant_id", m.ID), zap.String("catalog_id", catalogID))

	existing, err := e.Store.ListCategories(ctx, m.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list categories for merchant %s: %w", m.ID, err)
	}

	local := make(map[string]domain.Category, len(existing))
	for _, c := range existing {
		local[c.CategoryID] = c
	}
	incoming := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		incoming[c.ID] = struct{}{}
	}

	var res Result

	for _, c := range existing {
		if _, ok := incoming[c.CategoryID]; ok {
			continue
		}
		// The category row goes last so a retry still finds the items to delete.
		if !e.dropCategoryItems(ctx, log, m.ID, c.CategoryID, &res) {
			res.Failed++
			log.Warn("category kept, its items were not all deleted", zap.String("category_id", c.CategoryID))
			continue
		}
		if err := e.Store.DeleteCategory(ctx, m.ID, c.CategoryID); err != nil {
			res.Failed++
			log.Error("category delete failed", zap.String("category_id", c.CategoryID), zap.Error(writeFailed("delete category", c.CategoryID, err)))
			continue
		}
		res.Removed++
		res.Changes = append(res.Changes, Change{Kind: ChangeRemoved, Entity: EntityCategory, ID: c.CategoryID})
	}

	for _, c := range cats {
		row := domain.Category{
			MerchantID: m.ID,
			CategoryID: c.ID,
			Name:       c.Name,
			Status:     c.Status,
			Index:      c.Index,
			CatalogID:  catalogID,
			UserID:     m.UserID,
		}

		if err := e.Store.UpsertCategory(ctx, row); err != nil {
			res.Failed++
			log.Error("category upsert failed", zap.String("category_id", c.ID), zap.Error(writeFailed("upsert category", c.ID, err)))
			continue
		}
		res.Upserted++

		if prev, ok := local[c.ID]; ok {
			res.Changes = append(res.Changes, DiffCategory(prev, row)...)
		} else {
			res.Changes = append(res.Changes, Change{Kind: ChangeAdded, Entity: EntityCategory, ID: c.ID})
		}
	}

	log.Debug("categories reconciled",
		zap.Int("upserted", res.Upserted),
		zap.Int("removed", res.Removed),
		zap.Int("failed", res.Failed),
		zap.Int("items_removed", res.Items.Removed),
	)
	return res, nil
}

// dropCategoryItems deletes every local item of a category that no longer
// exists upstream. It reports whether the category is now empty.
func (e *Engine) dropCategoryItems(ctx context.Context, log *zap.Logger, merchantID string, categoryID string, res *Result) bool {
	items, err := e.Store.ListItems(ctx, merchantID, categoryID)
	if err != nil {
		log.Error("list items of removed category failed", zap.String("category_id", categoryID), zap.Error(err))
		return false
	}

	ok := true
	for _, it := range items {
		if err := e.Store.DeleteItem(ctx, merchantID, it.ItemID); err != nil {
			res.Items.Failed++
			log.Error("item delete failed", zap.String("item_id", it.ItemID), zap.Error(writeFailed("delete item", it.ItemID, err)))
			ok = false
			continue
		}
		res.Items.Removed++
		res.Changes = append(res.Changes, Change{Kind: ChangeRemoved, Entity: EntityItem, ID: it.ItemID})
	}
	return ok
}

// ReconcileItems converges one category: local items absent upstream are
// deleted, every item whose product resolves is upserted and cascades into
// its option groups and options. Items whose product is missing are
// skipped and left in place.
func (e *Engine) ReconcileItems(ctx context.Context, m domain.Merchant, categoryID string, ci *upstream.CategoryItems) (Result, error) {
	log := e.Logger.With(zap.String("merchant_id", m.ID), zap.String("category_id", categoryID))

	if ci == nil {
		ci = upstream.NewCategoryItems(nil, nil, nil, nil)
	}

	existing, err := e.Store.ListItems(ctx, m.ID, categoryID)
	if err != nil {
		return Result{}, fmt.Errorf("list items for merchant %s category %s: %w", m.ID, categoryID, err)
	}

	local := make(map[string]domain.Item, len(existing))
	for _, it := range existing {
		local[it.ItemID] = it
	}
	incoming := ci.ItemIDs()

	var res Result

	for _, it := range existing {
		if _, ok := incoming[it.ItemID]; ok {
			continue
		}
		if err := e.Store.DeleteItem(ctx, m.ID, it.ItemID); err != nil {
			res.Failed++
			log.Error("item delete failed", zap.String("item_id", it.ItemID), zap.Error(writeFailed("delete item", it.ItemID, err)))
			continue
		}
		res.Removed++
		res.Changes = append(res.Changes, Change{Kind: ChangeRemoved, Entity: EntityItem, ID: it.ItemID})
	}

	c := &cascade{
		engine:   e,
		log:      log,
		merchant: m.ID,
		items:    ci,
		res:      &res,
		groups:   make(map[string]bool),
		options:  make(map[string]bool),
	}

	for _, it := range ci.Items {
		p, ok := ci.Product(it.ProductID)
		if !ok {
			res.Skipped++
			log.Warn("item skipped, product not in response", zap.String("item_id", it.ID), zap.String("product_id", it.ProductID))
			continue
		}

		row := upstream.CanonicalItem(m, categoryID, it, p)
		if err := e.Store.UpsertItem(ctx, row); err != nil {
			res.Failed++
			log.Error("item upsert failed", zap.String("item_id", it.ID), zap.Error(writeFailed("upsert item", it.ID, err)))
			continue
		}
		res.Upserted++

		if prev, ok := local[it.ID]; ok {
			res.Changes = append(res.Changes, DiffItem(prev, row)...)
		} else {
			res.Changes = append(res.Changes, Change{Kind: ChangeAdded, Entity: EntityItem, ID: it.ID})
		}

		c.product(ctx, p)
	}

	log.Debug("items reconciled",
		zap.Int("upserted", res.Upserted),
		zap.Int("removed", res.Removed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Int("groups_upserted", res.Groups.Upserted),
		zap.Int("options_upserted", res.Options.Upserted),
	)
	return res, nil
}

// cascade writes the complements of each upserted product once per call.
type cascade struct {
	engine   *Engine
	log      *zap.Logger
	merchant string
	items    *upstream.CategoryItems
	res      *Result

	groups  map[string]bool // group id + product id
	options map[string]bool // option id; the first group to reach an option owns it
}

func (c *cascade) product(ctx context.Context, p upstream.Product) {
	for _, ref := range p.Groups {
		key := ref.GroupID + "\x00" + p.ID
		if c.groups[key] {
			continue
		}
		c.groups[key] = true

		g, ok := c.items.Group(ref.GroupID)
		if !ok {
			c.res.Groups.Skipped++
			c.log.Warn("option group skipped, not in response", zap.String("group_id", ref.GroupID), zap.String("product_id", p.ID))
			continue
		}

		row := upstream.CanonicalGroup(c.merchant, p.ID, g, ref)
		if err := c.engine.Store.UpsertOptionGroup(ctx, row); err != nil {
			c.res.Groups.Failed++
			c.log.Error("option group upsert failed", zap.String("group_id", g.ID), zap.Error(writeFailed("upsert option group", g.ID, err)))
		} else {
			c.res.Groups.Upserted++
		}

		for _, oid := range g.OptionIDs {
			c.option(ctx, g.ID, oid)
		}
	}
}

// option writes an option once per call. An option listed by several groups
// is stored under whichever group reaches it first, following item order
// and then each product's group order.
func (c *cascade) option(ctx context.Context, groupID string, optionID string) {
	if c.options[optionID] {
		return
	}
	c.options[optionID] = true

	o, ok := c.items.Option(optionID)
	if !ok {
		c.res.Options.Skipped++
		c.log.Warn("option skipped, not in response", zap.String("option_id", optionID), zap.String("group_id", groupID))
		return
	}
	p, ok := c.items.Product(o.ProductID)
	if !ok {
		c.res.Options.Skipped++
		c.log.Warn("option skipped, product not in response", zap.String("option_id", optionID), zap.String("product_id", o.ProductID))
		return
	}

	row := upstream.CanonicalOption(c.merchant, groupID, o, p)
	if err := c.engine.Store.UpsertOption(ctx, row); err != nil {
		c.res.Options.Failed++
		c.log.Error("option upsert failed", zap.String("option_id", optionID), zap.Error(writeFailed("upsert option", optionID, err)))
		return
	}
	c.res.Options.Upserted++
}
