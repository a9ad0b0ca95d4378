package upstream

import (
	"github.com/shopspring/decimal"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

// PriceScale is the number of decimal places the price columns keep.
// Prices are rounded to it before they are compared or stored.
const PriceScale = 4

// CanonicalItem merges an item with its product. Display fields set on the
// item win over the product's.
func CanonicalItem(m domain.Merchant, categoryID string, it Item, p Product) domain.Item {
	return domain.Item{
		MerchantID:   m.ID,
		ItemID:       it.ID,
		CategoryID:   categoryID,
		ProductID:    p.ID,
		UserID:       m.UserID,
		Name:         orElse(it.Name, p.Name),
		Description:  orElse(it.Description, p.Description),
		ImagePath:    orElse(it.ImagePath, p.ImagePath),
		ExternalCode: orElse(it.ExternalCode, p.ExternalCode),
		Status:       it.Status,
		Index:        it.Index,
		Price:        storedPrice(it.Price),
	}
}

// CanonicalGroup builds the group row as seen from one product. Selection
// bounds missing on the group come from the product's reference.
func CanonicalGroup(merchantID string, productID string, g OptionGroup, ref GroupRef) domain.OptionGroup {
	return domain.OptionGroup{
		GroupID:    g.ID,
		MerchantID: merchantID,
		Name:       g.Name,
		Status:     g.Status,
		GroupType:  g.Type,
		Min:        firstInt(g.Min, ref.Min),
		Max:        firstInt(g.Max, ref.Max),
		ProductIDs: []string{productID},
		OptionIDs:  append([]string(nil), g.OptionIDs...),
	}
}

// CanonicalOption takes display fields from the option's product and
// price/status from the option itself.
func CanonicalOption(merchantID string, groupID string, o Option, p Product) domain.Option {
	return domain.Option{
		OptionID:    o.ID,
		MerchantID:  merchantID,
		GroupID:     groupID,
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImagePath:   p.ImagePath,
		Status:      o.Status,
		Price:       storedPrice(o.Price),
	}
}

func storedPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PriceScale)
}

func orElse(v string, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func firstInt(vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
