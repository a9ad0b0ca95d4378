package upstream

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrCatalogNotFound  = errors.New("catalog not found")
	ErrRequestFailed    = errors.New("upstream request failed")
	ErrMalformedPayload = errors.New("malformed upstream payload")
)

// RequestError is a non-2xx answer or a transport failure. StatusCode is 0
// for the latter.
type RequestError struct {
	StatusCode int
	URL        string
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request to %s failed: %s", e.URL, e.Message)
	}
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

func (e *RequestError) Is(target error) bool { return target == ErrRequestFailed }

func (e *RequestError) Unwrap() error { return e.Err }

type Catalog struct {
	ID       string
	Status   string
	Contexts []string
}

type Category struct {
	ID     string
	Name   string
	Status string
	Index  int
}

// Item is a menu entry. Name, Description and ImagePath are only set when
// the item overrides its product.
type Item struct {
	ID           string
	ProductID    string
	Status       string
	ExternalCode string
	Index        int
	Price        decimal.Decimal

	Name        string
	Description string
	ImagePath   string
}

// GroupRef is a product's link to an option group. Min and Max are nil
// when the product does not constrain them.
type GroupRef struct {
	GroupID string
	Min     *int
	Max     *int
}

type Product struct {
	ID           string
	Name         string
	Description  string
	ImagePath    string
	ExternalCode string
	Groups       []GroupRef
}

type OptionGroup struct {
	ID        string
	Name      string
	Status    string
	Type      string
	Min       *int
	Max       *int
	OptionIDs []string
}

// Option carries its effective price and status: the default-context
// modifier's when there is one, its own otherwise.
type Option struct {
	ID        string
	ProductID string
	Status    string
	Price     decimal.Decimal
}

// CategoryItems is one category's items with everything they reference.
type CategoryItems struct {
	Items        []Item
	Products     []Product
	OptionGroups []OptionGroup
	Options      []Option

	products map[string]Product
	groups   map[string]OptionGroup
	options  map[string]Option
}

// NewCategoryItems builds the id lookup maps over normalized slices.
func NewCategoryItems(items []Item, products []Product, groups []OptionGroup, options []Option) *CategoryItems {
	c := &CategoryItems{
		Items:        items,
		Products:     products,
		OptionGroups: groups,
		Options:      options,
		products:     make(map[string]Product, len(products)),
		groups:       make(map[string]OptionGroup, len(groups)),
		options:      make(map[string]Option, len(options)),
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	for _, g := range groups {
		c.groups[g.ID] = g
	}
	for _, o := range options {
		c.options[o.ID] = o
	}
	return c
}

func (c *CategoryItems) Product(id string) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

func (c *CategoryItems) Group(id string) (OptionGroup, bool) {
	g, ok := c.groups[id]
	return g, ok
}

func (c *CategoryItems) Option(id string) (Option, bool) {
	o, ok := c.options[id]
	return o, ok
}

// ItemIDs returns every upstream item id, resolvable or not.
func (c *CategoryItems) ItemIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(c.Items))
	for _, it := range c.Items {
		ids[it.ID] = struct{}{}
	}
	return ids
}
