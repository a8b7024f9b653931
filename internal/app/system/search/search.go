// internal/app/system/search/search.go
package search

import (
	"strings"

	"github.com/dalemusser/souqhub/internal/domain/models"
)

// Filters are the search bar's category and location pickers.
type Filters struct {
	Category string
	Location string
}

// IsAll reports whether v is an "all" picker value (or unset).
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == models.AllCategories || v == models.AllLocations
}

// Active reports whether either picker narrows the results.
func (f Filters) Active() bool {
	return !IsAll(f.Category) || !IsAll(f.Location)
}

// Match reports whether p passes the filters.
func (f Filters) Match(p models.Product) bool {
	if !IsAll(f.Category) && p.Category != strings.TrimSpace(f.Category) {
		return false
	}
	if !IsAll(f.Location) && p.Location != strings.TrimSpace(f.Location) {
		return false
	}
	return true
}

// Apply returns the products that pass the filters, keeping their order.
func (f Filters) Apply(products []models.Product) []models.Product {
	if !f.Active() {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
