// internal/domain/models/category.go
package models

// Category slugs used in /categories/{category}.
const (
	CategoryCars       = "cars"
	CategoryRealEstate = "real-estate"
	CategoryMarket     = "market"
	CategoryJobs       = "jobs"
)

// CategoryCard is a browse entry on the home page.
type CategoryCard struct {
	Slug  string
	Title string
	// ProductCategory is the listing category that backs this browse page.
	ProductCategory string
}

// CategoryCards lists the browse categories in display order.
var CategoryCards = []CategoryCard{
	{Slug: CategoryCars, Title: "سيارات", ProductCategory: "سيارات"},
	{Slug: CategoryRealEstate, Title: "عقارات", ProductCategory: "عقارات"},
	{Slug: CategoryMarket, Title: "السوق", ProductCategory: ""},
	{Slug: CategoryJobs, Title: "وظائف", ProductCategory: ""},
}

// CategoryTitle returns the heading for a browse slug.
func CategoryTitle(slug string) string {
	for _, c := range CategoryCards {
		if c.Slug == slug {
			return c.Title
		}
	}
	return "نتائج البحث"
}

// CategoryProductFilter returns the listing category a browse slug maps to,
// or "" when the page lists every category.
func CategoryProductFilter(slug string) string {
	for _, c := range CategoryCards {
		if c.Slug == slug {
			return c.ProductCategory
		}
	}
	return ""
}

// FilterOption is one checkbox in a sidebar filter group.
type FilterOption struct {
	ID    string
	Label string
}

// FilterGroup is a titled set of filter options.
//
// Filter groups are presentational; they are rendered on category pages but
// do not narrow the listing query.
type FilterGroup struct {
	Title   string
	Options []FilterOption
}

// FilterGroups returns the sidebar filters shown for a browse slug.
func FilterGroups(slug string) []FilterGroup {
	switch slug {
	case CategoryCars:
		return []FilterGroup{
			{Title: "الماركة", Options: []FilterOption{
				{"brand-toyota", "تويوتا"},
				{"brand-honda", "هوندا"},
				{"brand-nissan", "نيسان"},
				{"brand-bmw", "بي ام دبليو"},
				{"brand-mercedes", "مرسيدس"},
			}},
			{Title: "السنة", Options: []FilterOption{
				{"year-2023", "2023"},
				{"year-2022", "2022"},
				{"year-2021", "2021"},
				{"year-2020", "2020"},
				{"year-2019", "2019"},
			}},
			{Title: "نوع الوقود", Options: []FilterOption{
				{"fuel-petrol", "بنزين"},
				{"fuel-diesel", "ديزل"},
				{"fuel-electric", "كهربائي"},
				{"fuel-hybrid", "هجين"},
			}},
		}
	case CategoryRealEstate:
		return []FilterGroup{
			{Title: "نوع العقار", Options: []FilterOption{
				{"type-apartment", "شقة"},
				{"type-villa", "فيلا"},
				{"type-land", "أرض"},
				{"type-commercial", "تجاري"},
			}},
			{Title: "عدد الغرف", Options: []FilterOption{
				{"rooms-1", "غرفة"},
				{"rooms-2", "غرفتين"},
				{"rooms-3", "3 غرف"},
				{"rooms-4", "4 غرف"},
				{"rooms-5", "5+ غرف"},
			}},
			{Title: "العرض", Options: []FilterOption{
				{"offer-sale", "للبيع"},
				{"offer-rent", "للإيجار"},
			}},
		}
	default:
		return []FilterGroup{
			{Title: "الفئة", Options: []FilterOption{
				{"category-electronics", "إلكترونيات"},
				{"category-clothing", "ملابس"},
				{"category-furniture", "أثاث"},
				{"category-books", "كتب"},
				{"category-sports", "رياضة"},
			}},
			{Title: "الحالة", Options: []FilterOption{
				{"condition-new", "جديد"},
				{"condition-used", "مستعمل بحالة ممتازة"},
				{"condition-good", "مستعمل بحالة جيدة"},
				{"condition-fair", "مستعمل"},
			}},
			{Title: "السعر", Options: []FilterOption{
				{"price-1", "أقل من ٥٠٠ د.إ"},
				{"price-2", "٥٠٠ - ١٠٠٠ د.إ"},
				{"price-3", "١٠٠٠ - ٣٠٠٠ د.إ"},
				{"price-4", "أكثر من ٣٠٠٠ د.إ"},
			}},
		}
	}
}

// AllCategories and AllLocations are the "no filter" labels of the search bar.
const (
	AllCategories = "جميع الفئات"
	AllLocations  = "جميع المناطق"
)

// SearchLocations are offered in the search bar's location picker.
var SearchLocations = []string{
	AllLocations,
	"دبي",
	"أبو ظبي",
	"الشارقة",
	"عجمان",
}
