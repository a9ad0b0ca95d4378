package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ETAnderson/catalogsync/internal/domain"
)

func TestDiffItem(t *testing.T) {
	t.Parallel()

	base := domain.Item{ItemID: "i1", Status: "AVAILABLE", Price: price("10.00"), Name: "A", ImagePath: "a.png", Description: "d"}

	tests := []struct {
		name   string
		mutate func(*domain.Item)
		want   []string
	}{
		{name: "identical", mutate: func(*domain.Item) {}},
		{name: "same price different scale", mutate: func(it *domain.Item) { it.Price = price("10") }},
		{name: "status", mutate: func(it *domain.Item) { it.Status = "UNAVAILABLE" }, want: []string{"status"}},
		{name: "image and description", mutate: func(it *domain.Item) { it.ImagePath = "b.png"; it.Description = "" }, want: []string{"image_path", "description"}},
		{name: "index and external code are not tracked", mutate: func(it *domain.Item) { it.Index = 9; it.ExternalCode = "x" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next := base
			tt.mutate(&next)

			var fields []string
			for _, c := range DiffItem(base, next) {
				assert.Equal(t, ChangeUpdated, c.Kind)
				assert.Equal(t, "i1", c.ID)
				fields = append(fields, c.Field)
			}
			assert.Equal(t, tt.want, fields)
		})
	}
}
