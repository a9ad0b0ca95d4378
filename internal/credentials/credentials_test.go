package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ETAnderson/catalogsync/internal/domain"
	"github.com/ETAnderson/catalogsync/internal/state"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "merchant",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestStatic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := NewStatic("  ").Token(ctx, "m1")
	require.ErrorIs(t, err, ErrUnavailable)

	got, err := NewStatic("opaque-token").Token(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", got)

	live := signedToken(t, time.Now().Add(time.Hour))
	got, err = NewStatic(live).Token(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, live, got)

	_, err = NewStatic(signedToken(t, time.Now().Add(-time.Minute))).Token(ctx, "m1")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestStoreSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := state.NewMemoryStore()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	store.PutCredential(domain.Credential{MerchantID: "ok", AccessToken: "tok-ok", ExpiresAt: &future})
	store.PutCredential(domain.Credential{MerchantID: "stale-row", AccessToken: "tok", ExpiresAt: &past})
	store.PutCredential(domain.Credential{MerchantID: "stale-jwt", AccessToken: signedToken(t, past)})
	store.PutCredential(domain.Credential{MerchantID: "blank", AccessToken: ""})

	src := NewStoreSource(store)

	got, err := src.Token(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, "tok-ok", got)

	for _, id := range []string{"missing", "stale-row", "stale-jwt", "blank"} {
		_, err := src.Token(ctx, id)
		require.ErrorIs(t, err, ErrUnavailable, id)
	}
}

type failingReader struct{}

func (failingReader) GetCredential(ctx context.Context, merchantID string) (domain.Credential, bool, error) {
	return domain.Credential{}, false, errors.New("connection refused")
}

func TestStoreSource_ReadErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	_, err := NewStoreSource(failingReader{}).Token(context.Background(), "m1")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}
