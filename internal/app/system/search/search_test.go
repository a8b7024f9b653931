package search

import (
	"testing"

	"github.com/dalemusser/souqhub/internal/domain/models"
)

func TestFiltersApply(t *testing.T) {
	products := []models.Product{
		{ID: "1", Category: "سيارات", Location: "دبي"},
		{ID: "2", Category: "عقارات", Location: "دبي"},
		{ID: "3", Category: "سيارات", Location: "الشارقة"},
	}

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"unset keeps all", Filters{}, []string{"1", "2", "3"}},
		{"all labels keep all", Filters{Category: models.AllCategories, Location: models.AllLocations}, []string{"1", "2", "3"}},
		{"category only", Filters{Category: "سيارات"}, []string{"1", "3"}},
		{"location only", Filters{Location: "دبي"}, []string{"1", "2"}},
		{"both", Filters{Category: "سيارات", Location: "الشارقة"}, []string{"3"}},
		{"no match", Filters{Category: "وظائف"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filters.Apply(products)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d products, want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.ID != tt.want[i] {
					t.Errorf("position %d: got %s, want %s", i, p.ID, tt.want[i])
				}
			}
		})
	}
}
