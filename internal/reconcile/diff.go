package reconcile

import (
	"strconv"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

// DiffItem lists the tracked fields that differ between the stored row and
// the canonical upstream record. Prices compare numerically.
func DiffItem(local domain.Item, upstream domain.Item) []Change {
	var out []Change
	add := func(field, from, to string) {
		out = append(out, Change{Kind: ChangeUpdated, Entity: EntityItem, ID: upstream.ItemID, Field: field, Old: from, New: to})
	}

	if local.Status != upstream.Status {
		add("status", local.Status, upstream.Status)
	}
	if !local.Price.Equal(upstream.Price) {
		add("price", local.Price.String(), upstream.Price.String())
	}
	if local.Name != upstream.Name {
		add("name", local.Name, upstream.Name)
	}
	if local.ImagePath != upstream.ImagePath {
		add("image_path", local.ImagePath, upstream.ImagePath)
	}
	if local.Description != upstream.Description {
		add("description", local.Description, upstream.Description)
	}
	return out
}

func DiffCategory(local domain.Category, upstream domain.Category) []Change {
	var out []Change
	add := func(field, from, to string) {
		out = append(out, Change{Kind: ChangeUpdated, Entity: EntityCategory, ID: upstream.CategoryID, Field: field, Old: from, New: to})
	}

	if local.Name != upstream.Name {
		add("name", local.Name, upstream.Name)
	}
	if local.Status != upstream.Status {
		add("status", local.Status, upstream.Status)
	}
	if local.Index != upstream.Index {
		add("index", strconv.Itoa(local.Index), strconv.Itoa(upstream.Index))
	}
	return out
}
