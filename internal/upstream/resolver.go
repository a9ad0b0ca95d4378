package upstream

import (
	"context"
	"fmt"
	"strings"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

type CatalogIDWriter interface {
	SetMerchantCatalogID(ctx context.Context, merchantID string, catalogID string) error
}

// Fetcher is the client plus the catalog id cache kept on the merchant row.
type Fetcher struct {
	*Client
	store CatalogIDWriter
}

func NewFetcher(c *Client, store CatalogIDWriter) *Fetcher {
	return &Fetcher{Client: c, store: store}
}

// ResolveCatalogID returns the merchant's cached catalog id, or looks up
// the first upstream catalog and caches it.
func (f *Fetcher) ResolveCatalogID(ctx context.Context, token string, m domain.Merchant) (string, error) {
	if id := strings.TrimSpace(m.CatalogID); id != "" {
		return id, nil
	}

	catalogs, err := f.ListCatalogs(ctx, token, m.ID)
	if err != nil {
		return "", err
	}
	if len(catalogs) == 0 {
		return "", fmt.Errorf("%w: merchant %s", ErrCatalogNotFound, m.ID)
	}

	id := catalogs[0].ID
	if err := f.store.SetMerchantCatalogID(ctx, m.ID, id); err != nil {
		return "", fmt.Errorf("cache catalog id for merchant %s: %w", m.ID, err)
	}
	return id, nil
}
