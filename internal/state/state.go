package state

import (
	"context"
	"errors"
	"time"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

var (
	ErrMerchantNotFound = errors.New("merchant not found")

	// ErrWriteFailed marks a failed entity write. Callers isolate it per entity.
	ErrWriteFailed = errors.New("store write failed")
)

// Enumerator is the read side the scheduler needs.
type Enumerator interface {
	ListMerchants(ctx context.Context) ([]domain.Merchant, error)
	ListCategories(ctx context.Context, merchantID string) ([]domain.Category, error)
}

type Store interface {
	Enumerator

	// Merchants
	GetMerchant(ctx context.Context, merchantID string) (domain.Merchant, bool, error)
	UpsertMerchant(ctx context.Context, m domain.Merchant) error
	SetMerchantCatalogID(ctx context.Context, merchantID string, catalogID string) error
	MarkMerchantSynced(ctx context.Context, merchantID string, status domain.SyncStatus, at time.Time) error

	// Categories, keyed by (merchant, category)
	UpsertCategory(ctx context.Context, c domain.Category) error
	DeleteCategory(ctx context.Context, merchantID string, categoryID string) error

	// Items, keyed by (merchant, item)
	ListItems(ctx context.Context, merchantID string, categoryID string) ([]domain.Item, error)
	UpsertItem(ctx context.Context, it domain.Item) error
	DeleteItem(ctx context.Context, merchantID string, itemID string) error

	// Complements. UpsertOptionGroup unions ProductIDs with what is stored.
	GetOptionGroup(ctx context.Context, groupID string) (domain.OptionGroup, bool, error)
	UpsertOptionGroup(ctx context.Context, g domain.OptionGroup) error
	GetOption(ctx context.Context, optionID string) (domain.Option, bool, error)
	UpsertOption(ctx context.Context, o domain.Option) error

	// Credentials written by the token collaborator
	GetCredential(ctx context.Context, merchantID string) (domain.Credential, bool, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*MySQLStore)(nil)
)
