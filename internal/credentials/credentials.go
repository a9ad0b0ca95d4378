// Package credentials hands out the upstream access token for a merchant.
// Tokens are minted and refreshed elsewhere; this package only reads them.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

var ErrUnavailable = errors.New("credential unavailable")

type Source interface {
	Token(ctx context.Context, merchantID string) (string, error)
}

// Static returns the same configured token for every merchant.
type Static struct {
	token string
	now   func() time.Time
}

func NewStatic(token string) *Static {
	return &Static{token: strings.TrimSpace(token), now: time.Now}
}

func (s *Static) Token(ctx context.Context, merchantID string) (string, error) {
	if s.token == "" {
		return "", fmt.Errorf("%w: no static token configured", ErrUnavailable)
	}
	if err := checkExpiry(s.token, nil, s.now()); err != nil {
		return "", err
	}
	return s.token, nil
}

type Reader interface {
	GetCredential(ctx context.Context, merchantID string) (domain.Credential, bool, error)
}

// StoreSource reads the per-merchant token row kept by the token service.
type StoreSource struct {
	reader Reader
	now    func() time.Time
}

func NewStoreSource(r Reader) *StoreSource {
	return &StoreSource{reader: r, now: time.Now}
}

func (s *StoreSource) Token(ctx context.Context, merchantID string) (string, error) {
	c, ok, err := s.reader.GetCredential(ctx, merchantID)
	if err != nil {
		return "", fmt.Errorf("%w: merchant %s: %v", ErrUnavailable, merchantID, err)
	}
	if !ok || strings.TrimSpace(c.AccessToken) == "" {
		return "", fmt.Errorf("%w: merchant %s has no token", ErrUnavailable, merchantID)
	}
	if err := checkExpiry(c.AccessToken, c.ExpiresAt, s.now()); err != nil {
		return "", fmt.Errorf("merchant %s: %w", merchantID, err)
	}
	return c.AccessToken, nil
}

// checkExpiry rejects tokens past their stored expiry or their JWT exp claim.
// The signature is not verified; the upstream does that. Opaque tokens pass.
func checkExpiry(token string, storedExpiry *time.Time, now time.Time) error {
	if storedExpiry != nil && !storedExpiry.After(now) {
		return fmt.Errorf("%w: token expired at %s", ErrUnavailable, storedExpiry.UTC().Format(time.RFC3339))
	}

	if strings.Count(token, ".") != 2 {
		return nil
	}

	tok, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !exp.After(now) {
		return fmt.Errorf("%w: token expired at %s", ErrUnavailable, exp.UTC().Format(time.RFC3339))
	}
	return nil
}
