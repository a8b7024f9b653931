package products

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/souqhub/internal/app/system/inputval"
	"github.com/dalemusser/souqhub/internal/app/system/limits"
	"github.com/dalemusser/souqhub/internal/app/system/normalize"
	"github.com/dalemusser/souqhub/internal/domain/models"
)

// ListingForm is the editable part of a listing as posted by a form.
type ListingForm struct {
	Title       string
	Description string
	Price       string
	Category    string
	Condition   string
	Location    string
	ImageURL    string
}

// ReadListingForm reads and normalizes a posted listing form.
func ReadListingForm(r *http.Request) ListingForm {
	return ListingForm{
		Title:       normalize.Name(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Condition:   strings.TrimSpace(r.FormValue("condition")),
		Location:    normalize.Name(r.FormValue("location")),
		ImageURL:    strings.TrimSpace(r.FormValue("image_url")),
	}
}

// Validate checks f and returns the parsed price.
func (f ListingForm) Validate() (float64, inputval.Result) {
	var res inputval.Result
	res.Check(f.Title != "", "title", "العنوان مطلوب")
	res.Check(inputval.MaxLen(f.Title, limits.MaxTitleLen), "title", "العنوان طويل جدًا")
	res.Check(inputval.MaxLen(f.Description, limits.MaxDescriptionLen), "description", "الوصف طويل جدًا")
	price, ok := inputval.ParsePrice(f.Price)
	res.Check(ok, "price", "السعر غير صالح")
	res.Check(models.IsProductCategory(f.Category), "category", "الرجاء اختيار الفئة")
	res.Check(models.IsProductCondition(f.Condition), "condition", "الرجاء اختيار الحالة")
	res.Check(f.Location != "", "location", "الموقع مطلوب")
	res.Check(f.ImageURL == "" || inputval.IsValidHTTPURL(f.ImageURL), "image_url", "رابط الصورة غير صالح")
	return price, res
}

// FormFrom fills a form from a stored listing.
func FormFrom(p models.Product) ListingForm {
	f := ListingForm{
		Title:       p.Title,
		Description: p.Description,
		Price:       strconv.FormatFloat(p.Price, 'f', -1, 64),
		Category:    p.Category,
		Condition:   p.Condition,
		Location:    p.Location,
	}
	if len(p.Images) > 0 {
		f.ImageURL = p.Images[0]
	}
	return f
}
