package upstream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Upstream payloads are not uniform: the same list shows up at the top
// level, under "category" or under "data", or the body is the bare array.
// Lookups try those locations in that order.
var listPrefixes = []string{"", "category.", "data."}

func parseBody(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: body is not valid JSON", ErrMalformedPayload)
	}
	return gjson.ParseBytes(body), nil
}

// listAt returns the first array found for key. rootArray lets a bare
// top-level array stand for the list. A missing list is empty, not an error.
func listAt(root gjson.Result, key string, rootArray bool) ([]gjson.Result, bool) {
	for _, prefix := range listPrefixes {
		if r := root.Get(prefix + key); r.IsArray() {
			return r.Array(), true
		}
	}
	if rootArray && root.IsArray() {
		return root.Array(), true
	}
	return nil, false
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.Get(k).String()); v != "" {
			return v
		}
	}
	return ""
}

// parsePrice accepts 12.5, "12.50" and {"value": 12.5}.
func parsePrice(r gjson.Result) (decimal.Decimal, bool) {
	switch r.Type {
	case gjson.Number:
		d, err := decimal.NewFromString(r.Raw)
		return d, err == nil
	case gjson.String:
		d, err := decimal.NewFromString(strings.TrimSpace(r.Str))
		return d, err == nil
	case gjson.JSON:
		if r.IsObject() {
			return parsePrice(r.Get("value"))
		}
	}
	return decimal.Zero, false
}

func parseInt(r gjson.Result) (int, bool) {
	switch r.Type {
	case gjson.Number:
		return int(r.Int()), true
	case gjson.String:
		i, err := strconv.Atoi(strings.TrimSpace(r.Str))
		return i, err == nil
	}
	return 0, false
}

func intPtr(r gjson.Result) *int {
	if i, ok := parseInt(r); ok {
		return &i
	}
	return nil
}

func parseCatalogs(body []byte) ([]Catalog, error) {
	root, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	rows, _ := listAt(root, "catalogs", true)
	out := make([]Catalog, 0, len(rows))
	for _, r := range rows {
		id := firstString(r, "catalogId", "id")
		if id == "" {
			continue
		}
		c := Catalog{ID: id, Status: r.Get("status").String()}
		for _, ctx := range r.Get("context").Array() {
			c.Contexts = append(c.Contexts, ctx.String())
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCategories(body []byte) ([]Category, error) {
	root, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	rows, _ := listAt(root, "categories", true)
	out := make([]Category, 0, len(rows))
	for i, r := range rows {
		id := firstString(r, "id", "categoryId")
		if id == "" {
			continue
		}
		idx, ok := parseInt(r.Get("index"))
		if !ok {
			idx = i
		}
		out = append(out, Category{
			ID:     id,
			Name:   r.Get("name").String(),
			Status: r.Get("status").String(),
			Index:  idx,
		})
	}
	return out, nil
}

func parseCategoryItems(body []byte, defaultContext string) (*CategoryItems, error) {
	root, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	itemRows, _ := listAt(root, "items", true)
	items := make([]Item, 0, len(itemRows))
	for i, r := range itemRows {
		if it, ok := parseItem(r, i); ok {
			items = append(items, it)
		}
	}

	var products []Product
	if productRows, ok := listAt(root, "products", false); ok {
		for _, r := range productRows {
			if p, ok := parseProduct(r, ""); ok {
				products = append(products, p)
			}
		}
	} else {
		products = productsFromItems(itemRows)
	}

	groupRows, _ := listAt(root, "optionGroups", false)
	groups := make([]OptionGroup, 0, len(groupRows))
	for _, r := range groupRows {
		if g, ok := parseGroup(r); ok {
			groups = append(groups, g)
		}
	}

	optionRows, _ := listAt(root, "options", false)
	options := make([]Option, 0, len(optionRows))
	for _, r := range optionRows {
		if o, ok := parseOption(r, defaultContext); ok {
			options = append(options, o)
		}
	}

	return NewCategoryItems(items, products, groups, options), nil
}

func parseItem(r gjson.Result, pos int) (Item, bool) {
	id := firstString(r, "id", "itemId")
	if id == "" {
		return Item{}, false
	}

	idx, ok := parseInt(r.Get("index"))
	if !ok {
		idx = pos
	}
	price, _ := parsePrice(r.Get("price"))

	return Item{
		ID:           id,
		ProductID:    firstString(r, "productId", "product.id"),
		Status:       r.Get("status").String(),
		ExternalCode: r.Get("externalCode").String(),
		Index:        idx,
		Price:        price,
		Name:         r.Get("name").String(),
		Description:  r.Get("description").String(),
		ImagePath:    r.Get("imagePath").String(),
	}, true
}

func parseProduct(r gjson.Result, fallbackID string) (Product, bool) {
	id := firstString(r, "id", "productId")
	if id == "" {
		id = fallbackID
	}
	if id == "" {
		return Product{}, false
	}

	p := Product{
		ID:           id,
		Name:         r.Get("name").String(),
		Description:  r.Get("description").String(),
		ImagePath:    r.Get("imagePath").String(),
		ExternalCode: r.Get("externalCode").String(),
	}

	for _, g := range r.Get("optionGroups").Array() {
		if g.Type == gjson.String {
			p.Groups = append(p.Groups, GroupRef{GroupID: g.Str})
			continue
		}
		gid := firstString(g, "id", "optionGroupId")
		if gid == "" {
			continue
		}
		p.Groups = append(p.Groups, GroupRef{GroupID: gid, Min: intPtr(g.Get("min")), Max: intPtr(g.Get("max"))})
	}
	if len(p.Groups) == 0 {
		for _, g := range r.Get("optionGroupIds").Array() {
			if gid := strings.TrimSpace(g.String()); gid != "" {
				p.Groups = append(p.Groups, GroupRef{GroupID: gid})
			}
		}
	}
	return p, true
}

// productsFromItems covers payloads without a product list: items either
// embed their product or carry productId plus display fields.
func productsFromItems(itemRows []gjson.Result) []Product {
	var out []Product
	seen := make(map[string]bool)

	for _, r := range itemRows {
		var (
			p  Product
			ok bool
		)
		switch inline := r.Get("product"); {
		case inline.IsObject():
			p, ok = parseProduct(inline, r.Get("productId").String())
		case r.Get("productId").String() != "" && r.Get("name").String() != "":
			p, ok = Product{
				ID:           r.Get("productId").String(),
				Name:         r.Get("name").String(),
				Description:  r.Get("description").String(),
				ImagePath:    r.Get("imagePath").String(),
				ExternalCode: r.Get("externalCode").String(),
			}, true
		}
		if !ok || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func parseGroup(r gjson.Result) (OptionGroup, bool) {
	id := firstString(r, "id", "optionGroupId")
	if id == "" {
		return OptionGroup{}, false
	}

	g := OptionGroup{
		ID:     id,
		Name:   r.Get("name").String(),
		Status: r.Get("status").String(),
		Type:   firstString(r, "optionGroupType", "type"),
		Min:    intPtr(r.Get("min")),
		Max:    intPtr(r.Get("max")),
	}

	if ids := r.Get("optionIds"); ids.IsArray() {
		for _, o := range ids.Array() {
			if oid := strings.TrimSpace(o.String()); oid != "" {
				g.OptionIDs = append(g.OptionIDs, oid)
			}
		}
	} else {
		for _, o := range r.Get("options").Array() {
			if oid := firstString(o, "id", "optionId"); oid != "" {
				g.OptionIDs = append(g.OptionIDs, oid)
			}
		}
	}
	return g, true
}

func parseOption(r gjson.Result, defaultContext string) (Option, bool) {
	id := firstString(r, "id", "optionId")
	if id == "" {
		return Option{}, false
	}

	o := Option{
		ID:        id,
		ProductID: firstString(r, "productId", "product.id"),
		Status:    r.Get("status").String(),
	}
	o.Price, _ = parsePrice(r.Get("price"))

	for _, m := range r.Get("contextModifiers").Array() {
		if m.Get("catalogContext").String() != defaultContext {
			continue
		}
		if s := m.Get("status").String(); s != "" {
			o.Status = s
		}
		if p, ok := parsePrice(m.Get("price")); ok {
			o.Price = p
		}
		break
	}
	return o, true
}
