package domain

import "github.com/shopspring/decimal"

type Category struct {
	MerchantID string `db:"merchant_id" json:"merchant_id"`
	CategoryID string `db:"category_id" json:"category_id"`
	Name       string `db:"name" json:"name"`
	Status     string `db:"status" json:"status,omitempty"`
	Index      int    `db:"sort_index" json:"index"`
	CatalogID  string `db:"catalog_id" json:"catalog_id"`
	UserID     string `db:"user_id" json:"user_id"`
}

// Item is a sellable menu entry. Name, description and image come from the
// linked product unless the item overrides them; price and status are item level.
type Item struct {
	MerchantID   string          `db:"merchant_id" json:"merchant_id"`
	ItemID       string          `db:"item_id" json:"item_id"`
	CategoryID   string          `db:"category_id" json:"category_id"`
	ProductID    string          `db:"product_id" json:"product_id"`
	UserID       string          `db:"user_id" json:"user_id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	ImagePath    string          `db:"image_path" json:"image_path"`
	ExternalCode string          `db:"external_code" json:"external_code,omitempty"`
	Status       string          `db:"status" json:"status"`
	Index        int             `db:"sort_index" json:"index"`
	Price        decimal.Decimal `db:"price" json:"price"`
}

// OptionGroup is a complement group. ProductIDs accumulates every product
// the group was seen attached to.
type OptionGroup struct {
	GroupID    string   `json:"group_id"`
	MerchantID string   `json:"merchant_id"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	GroupType  string   `json:"group_type"`
	Min        int      `json:"min"`
	Max        int      `json:"max"`
	ProductIDs []string `json:"product_ids"`
	OptionIDs  []string `json:"option_ids"`
}

type Option struct {
	OptionID    string          `db:"option_id" json:"option_id"`
	MerchantID  string          `db:"merchant_id" json:"merchant_id"`
	GroupID     string          `db:"group_id" json:"group_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	ImagePath   string          `db:"image_path" json:"image_path"`
	Status      string          `db:"status" json:"status"`
	Price       decimal.Decimal `db:"price" json:"price"`
}
