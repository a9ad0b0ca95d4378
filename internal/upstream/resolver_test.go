package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ETAnderson/catalogsync/internal/domain"
	"github.com/ETAnderson/catalogsync/internal/state"
)

func TestResolveCatalogID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/merchants/m1/catalogs":
			_, _ = w.Write([]byte(`{"data":{"catalogs":[{"catalogId":"first"},{"catalogId":"second"}]}}`))
		case "/merchants/empty/catalogs":
			_, _ = w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	store := state.NewMemoryStore()
	require.NoError(t, store.UpsertMerchant(ctx, domain.Merchant{ID: "m1", UserID: "u1"}))
	require.NoError(t, store.UpsertMerchant(ctx, domain.Merchant{ID: "empty", UserID: "u1"}))

	f := NewFetcher(NewClient(ClientConfig{BaseURL: srv.URL}), store)

	id, err := f.ResolveCatalogID(ctx, "tok", domain.Merchant{ID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "first", id)

	m, ok, err := store.GetMerchant(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", m.CatalogID, "resolved id is cached on the merchant")

	before := calls.Load()
	id, err = f.ResolveCatalogID(ctx, "tok", m)
	require.NoError(t, err)
	assert.Equal(t, "first", id)
	assert.Equal(t, before, calls.Load(), "cached id skips the upstream call")

	_, err = f.ResolveCatalogID(ctx, "tok", domain.Merchant{ID: "empty"})
	require.ErrorIs(t, err, ErrCatalogNotFound)
}
