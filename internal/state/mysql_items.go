package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

func (s *MySQLStore) ListItems(ctx context.Context, merchantID string, categoryID string) ([]domain.Item, error) {
	var out []domain.Item
	err := s.db.SelectContext(ctx, &out, `
SELECT merchant_id, item_id, category_id, product_id, user_id, name, description,
       image_path, external_code, status, sort_index, price
FROM items
WHERE merchant_id = ? AND category_id = ?
ORDER BY item_id ASC
`, merchantID, categoryID)
	return out, err
}

func (s *MySQLStore) UpsertItem(ctx context.Context, it domain.Item) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO items (merchant_id, item_id, category_id, product_id, user_id, name, description,
                   image_path, external_code, status, sort_index, price)
VALUES (:merchant_id, :item_id, :category_id, :product_id, :user_id, :name, :description,
        :image_path, :external_code, :status, :sort_index, :price)
ON DUPLICATE KEY UPDATE
  category_id = VALUES(category_id),
  product_id = VALUES(product_id),
  user_id = VALUES(user_id),
  name = VALUES(name),
  description = VALUES(description),
  image_path = VALUES(image_path),
  external_code = VALUES(external_code),
  status = VALUES(status),
  sort_index = VALUES(sort_index),
  price = VALUES(price)
`, it)
	return err
}

func (s *MySQLStore) DeleteItem(ctx context.Context, merchantID string, itemID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE merchant_id = ? AND item_id = ?`, merchantID, itemID)
	return err
}

type optionGroupRow struct {
	GroupID    string `db:"group_id"`
	MerchantID string `db:"merchant_id"`
	Name       string `db:"name"`
	Status     string `db:"status"`
	GroupType  string `db:"group_type"`
	Min        int    `db:"min_select"`
	Max        int    `db:"max_select"`
	OptionIDs  string `db:"option_ids"` // JSON text; binary params are rejected by JSON columns
}

func (s *MySQLStore) GetOptionGroup(ctx context.Context, groupID string) (domain.OptionGroup, bool, error) {
	var row optionGroupRow
	err := s.db.GetContext(ctx, &row, `
SELECT group_id, merchant_id, name, status, group_type, min_select, max_select, option_ids
FROM option_groups
WHERE group_id = ?
`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OptionGroup{}, false, nil
	}
	if err != nil {
		return domain.OptionGroup{}, false, err
	}

	g := domain.OptionGroup{
		GroupID:    row.GroupID,
		MerchantID: row.MerchantID,
		Name:       row.Name,
		Status:     row.Status,
		GroupType:  row.GroupType,
		Min:        row.Min,
		Max:        row.Max,
	}
	if len(row.OptionIDs) > 0 {
		if err := json.Unmarshal([]byte(row.OptionIDs), &g.OptionIDs); err != nil {
			return domain.OptionGroup{}, false, err
		}
	}

	err = s.db.SelectContext(ctx, &g.ProductIDs, `
SELECT product_id FROM option_group_products WHERE group_id = ? ORDER BY product_id ASC
`, groupID)
	if err != nil {
		return domain.OptionGroup{}, false, err
	}
	return g, true, nil
}

// UpsertOptionGroup overwrites the group's own fields and adds its product
// links. Links are insert-only so syncs of sibling products never erase each other.
func (s *MySQLStore) UpsertOptionGroup(ctx context.Context, g domain.OptionGroup) error {
	optionIDs := g.OptionIDs
	if optionIDs == nil {
		optionIDs = []string{}
	}
	ob, err := json.Marshal(optionIDs)
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, `
INSERT INTO option_groups (group_id, merchant_id, name, status, group_type, min_select, max_select, option_ids)
VALUES (:group_id, :merchant_id, :name, :status, :group_type, :min_select, :max_select, :option_ids)
ON DUPLICATE KEY UPDATE
  merchant_id = VALUES(merchant_id),
  name = VALUES(name),
  status = VALUES(status),
  group_type = VALUES(group_type),
  min_select = VALUES(min_select),
  max_select = VALUES(max_select),
  option_ids = VALUES(option_ids)
`, optionGroupRow{
		GroupID:    g.GroupID,
		MerchantID: g.MerchantID,
		Name:       g.Name,
		Status:     g.Status,
		GroupType:  g.GroupType,
		Min:        g.Min,
		Max:        g.Max,
		OptionIDs:  string(ob),
	})
	if err != nil {
		return err
	}

	return s.linkGroupProducts(ctx, g.GroupID, g.ProductIDs)
}

func (s *MySQLStore) linkGroupProducts(ctx context.Context, groupID string, productIDs []string) error {
	// Simple row-by-row insert (a group rarely spans more than a handful of products)
	for _, pid := range productIDs {
		if pid == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx, `
INSERT IGNORE INTO option_group_products (group_id, product_id)
VALUES (?, ?)
`, groupID, pid)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *MySQLStore) GetOption(ctx context.Context, optionID string) (domain.Option, bool, error) {
	var o domain.Option
	err := s.db.GetContext(ctx, &o, `
SELECT option_id, merchant_id, group_id, product_id, name, description, image_path, status, price
FROM options
WHERE option_id = ?
`, optionID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Option{}, false, nil
	}
	if err != nil {
		return domain.Option{}, false, err
	}
	return o, true, nil
}

func (s *MySQLStore) UpsertOption(ctx context.Context, o domain.Option) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO options (option_id, merchant_id, group_id, product_id, name, description, image_path, status, price)
VALUES (:option_id, :merchant_id, :group_id, :product_id, :name, :description, :image_path, :status, :price)
ON DUPLICATE KEY UPDATE
  merchant_id = VALUES(merchant_id),
  group_id = VALUES(group_id),
  product_id = VALUES(product_id),
  name = VALUES(name),
  description = VALUES(description),
  image_path = VALUES(image_path),
  status = VALUES(status),
  price = VALUES(price)
`, o)
	return err
}
