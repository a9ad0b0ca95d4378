package domain

import "time"

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// Merchant is a store account on the marketplace. CatalogID is resolved
// lazily from upstream and cached here.
type Merchant struct {
	ID        string `json:"merchant_id"`
	UserID    string `json:"user_id"`
	CatalogID string `json:"catalog_id,omitempty"`

	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus SyncStatus `json:"last_sync_status,omitempty"`
}

// Credential is written by the external token collaborator; this module only reads it.
type Credential struct {
	MerchantID  string
	AccessToken string
	ExpiresAt   *time.Time
}
