package products

import (
	"errors"
	"net/http"

	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/souqhub/internal/app/system/limits"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

type addData struct {
	viewdata.BaseVM
	Form       ListingForm
	Categories []string
	Conditions []string
	Error      string
}

func (h *Handler) renderAdd(w http.ResponseWriter, r *http.Request, form ListingForm, msg string) {
	templates.Render(w, r, "product_add", addData{
		BaseVM:     viewdata.NewBaseVM(r, "إضافة إعلان جديد", "/"),
		Form:       form,
		Categories: models.ProductCategories,
		Conditions: models.ProductConditions,
		Error:      msg,
	})
}

// ServeAddForm handles GET /product/add.
func (h *Handler) ServeAddForm(w http.ResponseWriter, r *http.Request) {
	h.renderAdd(w, r, ListingForm{Condition: models.DefaultCondition}, "")
}

// HandleAdd handles POST /product/add.
//
// An uploaded image goes to the public product-images bucket. When the
// upload fails for any reason the listing falls back to the submitted image
// URL (if any) and the seller is told.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxListingFormSize)
	if err := r.ParseMultipartForm(limits.MaxImageSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.ErrLog.LogBadRequest(w, r, "parse listing form failed", err, "بيانات النموذج غير صالحة", "/product/add")
		return
	}

	form := ReadListingForm(r)
	price, res := form.Validate()
	if res.HasErrors() {
		h.renderAdd(w, r, form, res.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "add listing")
	defer cancel()

	images := []string{}
	if file, fh, err := r.FormFile("image"); err == nil {
		file.Close()
		url, err := uploadImage(ctx, h.Data.Storage(), fh, h.Now())
		if err != nil {
			h.Log.Warn("listing image upload failed, using image url",
				zap.String("filename", fh.Filename), zap.Error(err))
			auth.Notify(r, notify.Notification{Level: notify.Warning, Message: "تعذر رفع الصورة، تم استخدام رابط الصورة بدلاً منها إن وجد"})
		} else {
			images = append(images, url)
		}
	}
	if len(images) == 0 && form.ImageURL != "" {
		images = append(images, form.ImageURL)
	}

	p, err := h.Data.Products().Insert(ctx, models.Product{
		Title:       form.Title,
		Description: htmlsanitize.Sanitize(form.Description),
		Price:       price,
		Category:    form.Category,
		Condition:   form.Condition,
		Location:    form.Location,
		SellerID:    sellerID(r),
		Images:      images,
	})
	if err != nil {
		h.Log.Error("insert listing failed", zap.Error(err))
		h.renderAdd(w, r, form, "حدث خطأ أثناء إضافة المنتج")
		return
	}

	h.Log.Info("listing created", zap.String("product_id", p.ID), zap.String("seller_id", p.SellerID))
	auth.Notify(r, notify.Notification{Level: notify.Success, Message: "تم إضافة المنتج بنجاح"})
	http.Redirect(w, r, "/my/products", http.StatusSeeOther)
}
