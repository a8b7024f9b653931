package products

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type mineData struct {
	viewdata.BaseVM
	Products []models.Product
}

// ServeMine handles GET /my/products.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Data.Products().ListBySeller(ctx, sellerID(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list seller listings failed", err, "تعذر تحميل إعلاناتك", "/")
		return
	}
	templates.Render(w, r, "product_mine", mineData{
		BaseVM:   viewdata.NewBaseVM(r, "إعلاناتي", "/"),
		Products: rows,
	})
}

// HandleDeleteMine handles POST /my/products/{id}/delete. Sellers may only
// delete their own listings.
func (h *Handler) HandleDeleteMine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Data.Products().Get(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		uierrors.RenderNotFound(w, r)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load listing failed", err, "تعذر حذف الإعلان", "/my/products")
		return
	}
	if p.SellerID != sellerID(r) {
		uierrors.Render(w, r, http.StatusForbidden, "غير مسموح", "لا يمكنك حذف إعلان لا تملكه", "/my/products")
		return
	}

	if err := h.Data.Products().Delete(ctx, id); err != nil && !errors.Is(err, backend.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "delete listing failed", err, "تعذر حذف الإعلان", "/my/products")
		return
	}
	h.Log.Info("listing deleted by seller", zap.String("product_id", id))
	auth.Notify(r, notify.Notification{Level: notify.Success, Message: "تم حذف الإعلان بنجاح"})
	http.Redirect(w, r, "/my/products", http.StatusSeeOther)
}
