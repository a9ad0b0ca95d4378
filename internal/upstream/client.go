// Package upstream talks to the marketplace catalog API and turns its
// responses into canonical records.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultContext = "DEFAULT"

	// MaxResponseSize caps a single response body (32MB).
	MaxResponseSize = 32 * 1024 * 1024

	UserAgent = "catalogsync/1.0"
)

type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	DefaultContext string

	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client
}

type Client struct {
	baseURL        string
	http           *http.Client
	defaultContext string
}

func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	dc := strings.TrimSpace(cfg.DefaultContext)
	if dc == "" {
		dc = DefaultContext
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           hc,
		defaultContext: dc,
	}
}

func (c *Client) ListCatalogs(ctx context.Context, token string, merchantID string) ([]Catalog, error) {
	body, err := c.get(ctx, token, "merchants", merchantID, "catalogs")
	if err != nil {
		return nil, err
	}
	return parseCatalogs(body)
}

func (c *Client) FetchCategories(ctx context.Context, token string, merchantID string, catalogID string) ([]Category, error) {
	body, err := c.get(ctx, token, "merchants", merchantID, "catalogs", catalogID, "categories")
	if err != nil {
		return nil, err
	}
	return parseCategories(body)
}

func (c *Client) FetchCategoryItems(ctx context.Context, token string, merchantID string, catalogID string, categoryID string) (*CategoryItems, error) {
	body, err := c.get(ctx, token, "merchants", merchantID, "catalogs", catalogID, "categories", categoryID, "items")
	if err != nil {
		return nil, err
	}
	return parseCategoryItems(body, c.defaultContext)
}

func (c *Client) get(ctx context.Context, token string, segments ...string) ([]byte, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := c.baseURL + "/" + strings.Join(escaped, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{URL: u, Message: err.Error(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &RequestError{StatusCode: resp.StatusCode, URL: u, Message: "failed to read response body", Err: err}
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &RequestError{StatusCode: resp.StatusCode, URL: u, Message: "response exceeds maximum size"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{StatusCode: resp.StatusCode, URL: u, Message: errorMessage(body, resp.Status)}
	}
	return body, nil
}

// errorMessage pulls a readable message out of an error body.
func errorMessage(body []byte, fallback string) string {
	if gjson.ValidBytes(body) {
		root := gjson.ParseBytes(body)
		if msg := firstString(root, "error.message", "message", "error"); msg != "" {
			return msg
		}
	}
	return fallback
}
