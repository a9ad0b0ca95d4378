package state

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

type MySQLStore struct {
	db *sqlx.DB
}

func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// merchantRow mirrors the merchants table; catalog_id is nullable until resolved.
type merchantRow struct {
	ID             string         `db:"merchant_id"`
	UserID         string         `db:"user_id"`
	CatalogID      sql.NullString `db:"catalog_id"`
	LastSyncAt     sql.NullTime   `db:"last_sync_at"`
	LastSyncStatus string         `db:"last_sync_status"`
}

func (r merchantRow) toDomain() domain.Merchant {
	m := domain.Merchant{
		ID:             r.ID,
		UserID:         r.UserID,
		CatalogID:      r.CatalogID.String,
		LastSyncStatus: domain.SyncStatus(r.LastSyncStatus),
	}
	if r.LastSyncAt.Valid {
		t := r.LastSyncAt.Time.UTC()
		m.LastSyncAt = &t
	}
	return m
}

const merchantColumns = `merchant_id, user_id, catalog_id, last_sync_at, last_sync_status`

func (s *MySQLStore) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	var rows []merchantRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+merchantColumns+` FROM merchants ORDER BY merchant_id ASC`)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Merchant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *MySQLStore) GetMerchant(ctx context.Context, merchantID string) (domain.Merchant, bool, error) {
	var r merchantRow
	err := s.db.GetContext(ctx, &r, `SELECT `+merchantColumns+` FROM merchants WHERE merchant_id = ?`, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Merchant{}, false, nil
	}
	if err != nil {
		return domain.Merchant{}, false, err
	}
	return r.toDomain(), true, nil
}

func (s *MySQLStore) UpsertMerchant(ctx context.Context, m domain.Merchant) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO merchants (merchant_id, user_id, catalog_id)
VALUES (?, ?, NULLIF(?, ''))
ON DUPLICATE KEY UPDATE
  user_id = VALUES(user_id),
  catalog_id = COALESCE(VALUES(catalog_id), catalog_id)
`, m.ID, m.UserID, m.CatalogID)
	return err
}

func (s *MySQLStore) SetMerchantCatalogID(ctx context.Context, merchantID string, catalogID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE merchants SET catalog_id = ? WHERE merchant_id = ?`, catalogID, merchantID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *MySQLStore) MarkMerchantSynced(ctx context.Context, merchantID string, status domain.SyncStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE merchants
SET last_sync_at = ?, last_sync_status = ?
WHERE merchant_id = ?
`, at.UTC(), string(status), merchantID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *MySQLStore) ListCategories(ctx context.Context, merchantID string) ([]domain.Category, error) {
	var out []domain.Category
	err := s.db.SelectContext(ctx, &out, `
SELECT merchant_id, category_id, name, status, sort_index, catalog_id, user_id
FROM categories
WHERE merchant_id = ?
ORDER BY sort_index ASC, category_id ASC
`, merchantID)
	return out, err
}

func (s *MySQLStore) UpsertCategory(ctx context.Context, c domain.Category) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO categories (merchant_id, category_id, name, status, sort_index, catalog_id, user_id)
VALUES (:merchant_id, :category_id, :name, :status, :sort_index, :catalog_id, :user_id)
ON DUPLICATE KEY UPDATE
  name = VALUES(name),
  status = VALUES(status),
  sort_index = VALUES(sort_index),
  catalog_id = VALUES(catalog_id),
  user_id = VALUES(user_id)
`, c)
	return err
}

func (s *MySQLStore) DeleteCategory(ctx context.Context, merchantID string, categoryID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE merchant_id = ? AND category_id = ?`, merchantID, categoryID)
	return err
}

func (s *MySQLStore) GetCredential(ctx context.Context, merchantID string) (domain.Credential, bool, error) {
	var row struct {
		MerchantID  string       `db:"merchant_id"`
		AccessToken string       `db:"access_token"`
		ExpiresAt   sql.NullTime `db:"expires_at"`
	}
	err := s.db.GetContext(ctx, &row, `
SELECT merchant_id, access_token, expires_at
FROM merchant_credentials
WHERE merchant_id = ?
`, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Credential{}, false, nil
	}
	if err != nil {
		return domain.Credential{}, false, err
	}

	c := domain.Credential{MerchantID: row.MerchantID, AccessToken: row.AccessToken}
	if row.ExpiresAt.Valid {
		t := row.ExpiresAt.Time.UTC()
		c.ExpiresAt = &t
	}
	return c, true, nil
}

// requireRow relies on clientFoundRows (set by db.Open) so unchanged rows still count as matched.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMerchantNotFound
	}
	return nil
}
