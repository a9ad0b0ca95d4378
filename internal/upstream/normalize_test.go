package upstream

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

const fullItemsPayload = `{
  "categoryId": "cat-1",
  "items": [
    {"id": "it-1", "productId": "p-1", "status": "AVAILABLE", "index": 0, "price": {"value": 25.9, "originalValue": 30}},
    {"id": "it-2", "productId": "p-2", "status": "UNAVAILABLE", "index": 1, "price": "12.50", "name": "Promo name"},
    {"id": "it-3", "productId": "p-missing", "status": "AVAILABLE", "price": 5}
  ],
  "products": [
    {"id": "p-1", "name": "Burger", "description": "Beef", "imagePath": "img/burger.png",
     "optionGroups": [{"id": "g-1", "min": 1, "max": 2}]},
    {"id": "p-2", "name": "Fries", "description": "Salted", "imagePath": "img/fries.png"},
    {"id": "p-opt-1", "name": "Cheese", "description": "Cheddar", "imagePath": "img/cheese.png"},
    {"id": "p-opt-2", "name": "Bacon"}
  ],
  "optionGroups": [
    {"id": "g-1", "name": "Extras", "status": "AVAILABLE", "optionGroupType": "INGREDIENTS", "optionIds": ["o-1", "o-2"]}
  ],
  "options": [
    {"id": "o-1", "productId": "p-opt-1", "status": "AVAILABLE", "price": {"value": 3},
     "contextModifiers": [
       {"catalogContext": "WHITELABEL", "status": "UNAVAILABLE", "price": {"value": 9}},
       {"catalogContext": "DEFAULT", "status": "UNAVAILABLE", "price": {"value": 4.5}},
       {"catalogContext": "DEFAULT", "status": "AVAILABLE", "price": {"value": 99}}
     ]},
    {"id": "o-2", "productId": "p-opt-2", "status": "AVAILABLE", "price": 2}
  ]
}`

func TestParseCategoryItems_FullShape(t *testing.T) {
	t.Parallel()

	ci, err := parseCategoryItems([]byte(fullItemsPayload), DefaultContext)
	require.NoError(t, err)

	require.Len(t, ci.Items, 3)
	require.Len(t, ci.Products, 4)
	require.Len(t, ci.OptionGroups, 1)
	require.Len(t, ci.Options, 2)

	assert.True(t, ci.Items[0].Price.Equal(decimal.RequireFromString("25.9")))
	assert.True(t, ci.Items[1].Price.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, ci.Items[2].Price.Equal(decimal.NewFromInt(5)))

	p, ok := ci.Product("p-1")
	require.True(t, ok)
	require.Len(t, p.Groups, 1)
	assert.Equal(t, "g-1", p.Groups[0].GroupID)
	require.NotNil(t, p.Groups[0].Min)
	assert.Equal(t, 1, *p.Groups[0].Min)

	_, ok = ci.Product("p-missing")
	assert.False(t, ok)

	g, ok := ci.Group("g-1")
	require.True(t, ok)
	assert.Equal(t, "INGREDIENTS", g.Type)
	assert.Equal(t, []string{"o-1", "o-2"}, g.OptionIDs)
	assert.Nil(t, g.Min)

	o1, ok := ci.Option("o-1")
	require.True(t, ok)
	assert.Equal(t, "UNAVAILABLE", o1.Status, "first DEFAULT modifier wins")
	assert.True(t, o1.Price.Equal(decimal.RequireFromString("4.5")))

	o2, ok := ci.Option("o-2")
	require.True(t, ok)
	assert.Equal(t, "AVAILABLE", o2.Status)
	assert.True(t, o2.Price.Equal(decimal.NewFromInt(2)))
}

func TestParseCategoryItems_ListLocations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "top level", body: `{"items":[{"id":"i1","productId":"p1"}],"products":[{"id":"p1","name":"A"}]}`},
		{name: "under category", body: `{"category":{"items":[{"id":"i1","productId":"p1"}],"products":[{"id":"p1","name":"A"}]}}`},
		{name: "under data", body: `{"data":{"items":[{"id":"i1","productId":"p1"}],"products":[{"id":"p1","name":"A"}]}}`},
		{name: "root array with inline product", body: `[{"id":"i1","product":{"id":"p1","name":"A"}}]`},
		{name: "flat product fields", body: `{"items":[{"id":"i1","productId":"p1","name":"A"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ci, err := parseCategoryItems([]byte(tt.body), DefaultContext)
			require.NoError(t, err)
			require.Len(t, ci.Items, 1)
			assert.Equal(t, "i1", ci.Items[0].ID)
			assert.Equal(t, "p1", ci.Items[0].ProductID)

			p, ok := ci.Product("p1")
			require.True(t, ok)
			assert.Equal(t, "A", p.Name)
		})
	}
}

func TestParseCategoryItems_MissingArraysAreEmpty(t *testing.T) {
	t.Parallel()

	ci, err := parseCategoryItems([]byte(`{"categoryId":"c1"}`), DefaultContext)
	require.NoError(t, err)
	assert.Empty(t, ci.Items)
	assert.Empty(t, ci.Products)
	assert.Empty(t, ci.OptionGroups)
	assert.Empty(t, ci.Options)
}

func TestParse_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := parseCategoryItems([]byte(`{"items": [`), DefaultContext)
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = parseCategories([]byte(`<html>`))
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = parseCatalogs([]byte(``))
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseCategoriesAndCatalogs(t *testing.T) {
	t.Parallel()

	cats, err := parseCategories([]byte(`[{"id":"c1","name":"Drinks","status":"AVAILABLE","index":3},{"name":"no id"},{"id":"c2","name":"Food"}]`))
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, Category{ID: "c1", Name: "Drinks", Status: "AVAILABLE", Index: 3}, cats[0])
	assert.Equal(t, 2, cats[1].Index, "position is the fallback index")

	cats, err = parseCategories([]byte(`{"data":{"categories":[{"id":"c9"}]}}`))
	require.NoError(t, err)
	require.Len(t, cats, 1)

	catalogs, err := parseCatalogs([]byte(`[{"catalogId":"cat-a","context":["DEFAULT"],"status":"AVAILABLE"},{"catalogId":"cat-b"}]`))
	require.NoError(t, err)
	require.Len(t, catalogs, 2)
	assert.Equal(t, "cat-a", catalogs[0].ID)
	assert.Equal(t, []string{"DEFAULT"}, catalogs[0].Contexts)
}

func TestParseOption_CustomDefaultContext(t *testing.T) {
	t.Parallel()

	body := `{"options":[{"id":"o1","status":"AVAILABLE","price":1,
	  "contextModifiers":[{"catalogContext":"WHITELABEL","price":{"value":7}}]}]}`

	ci, err := parseCategoryItems([]byte(body), "WHITELABEL")
	require.NoError(t, err)
	o, ok := ci.Option("o1")
	require.True(t, ok)
	assert.True(t, o.Price.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, "AVAILABLE", o.Status, "modifier without status keeps the option's own")
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	ci, err := parseCategoryItems([]byte(fullItemsPayload), DefaultContext)
	require.NoError(t, err)
	m := domain.Merchant{ID: "m1", UserID: "u1"}

	p1, _ := ci.Product("p-1")
	it := CanonicalItem(m, "cat-1", ci.Items[0], p1)
	assert.Equal(t, "Burger", it.Name)
	assert.Equal(t, "img/burger.png", it.ImagePath)
	assert.Equal(t, "u1", it.UserID)
	assert.Equal(t, "cat-1", it.CategoryID)

	p2, _ := ci.Product("p-2")
	it2 := CanonicalItem(m, "cat-1", ci.Items[1], p2)
	assert.Equal(t, "Promo name", it2.Name, "item override wins")
	assert.Equal(t, "Salted", it2.Description)

	g, _ := ci.Group("g-1")
	dg := CanonicalGroup("m1", "p-1", g, p1.Groups[0])
	assert.Equal(t, 1, dg.Min, "min comes from the product reference")
	assert.Equal(t, 2, dg.Max)
	assert.Equal(t, []string{"p-1"}, dg.ProductIDs)

	o, _ := ci.Option("o-1")
	op, _ := ci.Product("p-opt-1")
	do := CanonicalOption("m1", "g-1", o, op)
	assert.Equal(t, "Cheese", do.Name)
	assert.Equal(t, "Cheddar", do.Description)
	assert.Equal(t, "UNAVAILABLE", do.Status)
	assert.Equal(t, "g-1", do.GroupID)
}

func TestCanonical_RoundsPriceToStoredScale(t *testing.T) {
	t.Parallel()

	m := domain.Merchant{ID: "m1"}
	p := Product{ID: "p1", Name: "Juice"}

	it := CanonicalItem(m, "c1", Item{ID: "i1", ProductID: "p1", Price: decimal.RequireFromString("9.123456")}, p)
	assert.Equal(t, "9.1235", it.Price.String())

	o := CanonicalOption("m1", "g1", Option{ID: "o1", ProductID: "p1", Price: decimal.RequireFromString("0.00004")}, p)
	assert.True(t, o.Price.IsZero(), o.Price.String())
	assert.True(t, it.Price.Equal(decimal.RequireFromString("9.12350000")))
}
