// internal/domain/models/product.go
package models

import "time"

// Product is a classified listing.
type Product struct {
	ID          string    `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Price       float64   `bson:"price" json:"price"`
	Category    string    `bson:"category" json:"category"`
	Condition   string    `bson:"condition" json:"condition"`
	Location    string    `bson:"location" json:"location"`
	SellerID    string    `bson:"seller_id" json:"seller_id"`
	Images      []string  `bson:"images" json:"images"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// Summary returns the lightweight form used by the search dropdown.
func (p Product) Summary() ProductSummary {
	return ProductSummary{ID: p.ID, Title: p.Title, Category: p.Category}
}

// MainImage returns the first image URL, or "" when the listing has none.
func (p Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductSummary is a search-dropdown row.
type ProductSummary struct {
	ID       string `bson:"_id" json:"id"`
	Title    string `bson:"title" json:"title"`
	Category string `bson:"category" json:"category"`
}

// ProductCategories are the categories offered when creating a listing.
var ProductCategories = []string{
	"إلكترونيات",
	"أثاث",
	"ملابس",
	"سيارات",
	"عقارات",
	"أخرى",
}

// ProductConditions are the item conditions offered when creating a listing.
var ProductConditions = []string{
	"جديد",
	"مستعمل - ممتاز",
	"مستعمل - جيد",
	"مستعمل - مقبول",
}

// DefaultCondition is preselected on the new-listing form.
const DefaultCondition = "جديد"

// IsProductCategory reports whether c is one of ProductCategories.
func IsProductCategory(c string) bool {
	for _, v := range ProductCategories {
		if v == c {
			return true
		}
	}
	return false
}

// IsProductCondition reports whether c is one of ProductConditions.
func IsProductCondition(c string) bool {
	for _, v := range ProductConditions {
		if v == c {
			return true
		}
	}
	return false
}
