package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

type MemoryStore struct {
	mu sync.RWMutex

	merchants   map[string]domain.Merchant
	credentials map[string]domain.Credential
	categories  map[string]map[string]domain.Category // merchant -> category_id -> category
	items       map[string]map[string]domain.Item     // merchant -> item_id -> item
	groups      map[string]domain.OptionGroup
	options     map[string]domain.Option
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		merchants:   make(map[string]domain.Merchant),
		credentials: make(map[string]domain.Credential),
		categories:  make(map[string]map[string]domain.Category),
		items:       make(map[string]map[string]domain.Item),
		groups:      make(map[string]domain.OptionGroup),
		options:     make(map[string]domain.Option),
	}
}

func (s *MemoryStore) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Merchant, 0, len(s.merchants))
	for _, m := range s.merchants {
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetMerchant(ctx context.Context, merchantID string) (domain.Merchant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.merchants[merchantID]
	return m, ok, nil
}

func (s *MemoryStore) UpsertMerchant(ctx context.Context, m domain.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// sync bookkeeping and the cached catalog survive re-registration
	if existing, ok := s.merchants[m.ID]; ok {
		if m.CatalogID == "" {
			m.CatalogID = existing.CatalogID
		}
		if m.LastSyncAt == nil {
			m.LastSyncAt = existing.LastSyncAt
			m.LastSyncStatus = existing.LastSyncStatus
		}
	}
	s.merchants[m.ID] = m
	return nil
}

func (s *MemoryStore) SetMerchantCatalogID(ctx context.Context, merchantID string, catalogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.merchants[merchantID]
	if !ok {
		return ErrMerchantNotFound
	}
	m.CatalogID = catalogID
	s.merchants[merchantID] = m
	return nil
}

func (s *MemoryStore) MarkMerchantSynced(ctx context.Context, merchantID string, status domain.SyncStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.merchants[merchantID]
	if !ok {
		return ErrMerchantNotFound
	}
	t := at.UTC()
	m.LastSyncAt = &t
	m.LastSyncStatus = status
	s.merchants[merchantID] = m
	return nil
}

func (s *MemoryStore) ListCategories(ctx context.Context, merchantID string) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories[merchantID]))
	for _, c := range s.categories[merchantID] {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (s *MemoryStore) UpsertCategory(ctx context.Context, c domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.categories[c.MerchantID]
	if !ok {
		m = make(map[string]domain.Category)
		s.categories[c.MerchantID] = m
	}
	m[c.CategoryID] = c
	return nil
}

func (s *MemoryStore) DeleteCategory(ctx context.Context, merchantID string, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.categories[merchantID], categoryID)
	return nil
}

func (s *MemoryStore) GetCredential(ctx context.Context, merchantID string) (domain.Credential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[merchantID]
	return c, ok, nil
}

// PutCredential stands in for the external token collaborator in tests and local runs.
func (s *MemoryStore) PutCredential(c domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials[c.MerchantID] = c
}
