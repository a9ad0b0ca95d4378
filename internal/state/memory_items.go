package state

import (
	"context"
	"sort"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

func (s *MemoryStore) ListItems(ctx context.Context, merchantID string, categoryID string) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Item, 0, 32)
	for _, it := range s.items[merchantID] {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}

	// stable ordering for predictability
	sort.Slice(out, func(i, j int) bool {
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

func (s *MemoryStore) UpsertItem(ctx context.Context, it domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[it.MerchantID]
	if !ok {
		m = make(map[string]domain.Item)
		s.items[it.MerchantID] = m
	}
	m[it.ItemID] = it
	return nil
}

func (s *MemoryStore) DeleteItem(ctx context.Context, merchantID string, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items[merchantID], itemID)
	return nil
}

// CountItems returns how many item rows a merchant has across all categories.
func (s *MemoryStore) CountItems(merchantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items[merchantID])
}

func (s *MemoryStore) GetOptionGroup(ctx context.Context, groupID string) (domain.OptionGroup, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return domain.OptionGroup{}, false, nil
	}
	g.ProductIDs = append([]string(nil), g.ProductIDs...)
	g.OptionIDs = append([]string(nil), g.OptionIDs...)
	return g, true, nil
}

func (s *MemoryStore) UpsertOptionGroup(ctx context.Context, g domain.OptionGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored []string
	if existing, ok := s.groups[g.GroupID]; ok {
		stored = existing.ProductIDs
	}
	g.ProductIDs = unionSorted(stored, g.ProductIDs)
	g.OptionIDs = append([]string(nil), g.OptionIDs...)
	s.groups[g.GroupID] = g
	return nil
}

func (s *MemoryStore) GetOption(ctx context.Context, optionID string) (domain.Option, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.options[optionID]
	return o, ok, nil
}

func (s *MemoryStore) UpsertOption(ctx context.Context, o domain.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.options[o.OptionID] = o
	return nil
}

func unionSorted(a []string, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if v != "" {
			set[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
