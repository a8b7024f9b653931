// internal/app/features/dashboard/products.go
package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/souqhub/internal/app/backend"
	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/app/features/products"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/souqhub/internal/app/system/limits"
	"github.com/dalemusser/souqhub/internal/app/system/navigation"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/paging"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type productListData struct {
	viewdata.BaseVM
	Products []models.Product
	Range    paging.Range
	Self     string // passed as return= so actions land back on this page
}

// ServeProducts handles GET /admin/products, newest first.
func (h *Handler) ServeProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Data.Products().List(ctx, paging.MaxRows)
	if err != nil {
		h.Log.Error("list listings failed", zap.Error(err))
		auth.Notify(r, notify.Notification{Level: notify.Error, Message: "حدث خطأ أثناء جلب المنتجات"})
		rows = nil
	}
	page, rng := paging.Page(rows, paging.ParseStart(r))
	templates.Render(w, r, "admin_products", productListData{
		BaseVM:   viewdata.NewBaseVM(r, "إدارة المنتجات", "/admin"),
		Products: page,
		Range:    rng,
		Self:     r.URL.RequestURI(),
	})
}

type productEditData struct {
	viewdata.BaseVM
	ID         string
	Form       products.ListingForm
	Categories []string
	Conditions []string
	Error      string
	ReturnURL  string
}

func (h *Handler) renderEdit(w http.ResponseWriter, r *http.Request, id string, form products.ListingForm, msg string) {
	templates.Render(w, r, "admin_product_edit", productEditData{
		BaseVM:     viewdata.NewBaseVM(r, "تعديل المنتج", "/admin/products"),
		ID:         id,
		Form:       form,
		Categories: models.ProductCategories,
		Conditions: models.ProductConditions,
		Error:      msg,
		ReturnURL:  navigation.SafeBackURL(r, navigation.AdminProducts),
	})
}

// load fetches the listing named in the URL, answering the request itself
// when it cannot.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context) (models.Product, bool) {
	p, err := h.Data.Products().Get(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, backend.ErrNotFound) {
		uierrors.RenderNotFound(w, r)
		return p, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load listing failed", err, "تعذر تحميل المنتج", "/admin/products")
		return p, false
	}
	return p, true
}

// ServeEditProduct handles GET /admin/products/{id}/edit.
func (h *Handler) ServeEditProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, ok := h.load(w, r, ctx)
	if !ok {
		return
	}
	h.renderEdit(w, r, p.ID, products.FormFrom(p), "")
}

// HandleEditProduct handles POST /admin/products/{id}/edit. The seller and
// creation time are kept; images are only replaced when a URL is posted.
func (h *Handler) HandleEditProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "بيانات النموذج غير صالحة", "/admin/products")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.load(w, r, ctx)
	if !ok {
		return
	}

	form := products.ReadListingForm(r)
	price, res := form.Validate()
	if res.HasErrors() {
		h.renderEdit(w, r, p.ID, form, res.First())
		return
	}

	p.Title = form.Title
	p.Description = htmlsanitize.Sanitize(form.Description)
	p.Price = price
	p.Category = form.Category
	p.Condition = form.Condition
	p.Location = form.Location
	if form.ImageURL != "" && form.ImageURL != p.MainImage() {
		p.Images = append([]string{form.ImageURL}, p.Images...)
	}

	if err := h.Data.Products().Update(ctx, p); err != nil {
		h.Log.Error("update listing failed", zap.String("product_id", p.ID), zap.Error(err))
		h.renderEdit(w, r, p.ID, form, "حدث خطأ أثناء تحديث المنتج")
		return
	}

	h.Log.Info("listing updated by admin", zap.String("product_id", p.ID))
	auth.Notify(r, notify.Notification{Level: notify.Success, Message: "تم تحديث المنتج بنجاح"})
	http.Redirect(w, r, navigation.SafeBackURL(r, navigation.AdminProducts), http.StatusSeeOther)
}

// HandleDeleteProduct handles POST /admin/products/{id}/delete.
func (h *Handler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	switch err := h.Data.Products().Delete(ctx, id); {
	case errors.Is(err, backend.ErrNotFound):
		auth.Notify(r, notify.Notification{Level: notify.Warning, Message: "المنتج غير موجود"})
	case err != nil:
		h.Log.Error("delete listing failed", zap.String("product_id", id), zap.Error(err))
		auth.Notify(r, notify.Notification{Level: notify.Error, Message: "حدث خطأ أثناء حذف المنتج"})
	default:
		h.Log.Info("listing deleted by admin", zap.String("product_id", id))
		auth.Notify(r, notify.Notification{Level: notify.Success, Message: "تم حذف المنتج بنجاح"})
	}
	http.Redirect(w, r, navigation.SafeBackURL(r, navigation.AdminProducts), http.StatusSeeOther)
}
