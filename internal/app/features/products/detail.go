package products

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type detailData struct {
	viewdata.BaseVM
	Product     models.Product
	Description template.HTML
	SellerName  string
	IsOwner     bool
}

// ServeDetail handles GET /product/{id}.
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Data.Products().Get(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		uierrors.Render(w, r, http.StatusNotFound, "الإعلان غير موجود", "هذا الإعلان غير موجود أو تم حذفه", "/")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load listing failed", err, "تعذر تحميل الإعلان", "/")
		return
	}

	seller := ""
	if prof, err := h.Data.Profiles().Get(ctx, p.SellerID); err == nil {
		seller = prof.DisplayName()
	} else if !errors.Is(err, backend.ErrNotFound) {
		h.Log.Warn("load seller profile", zap.String("seller_id", p.SellerID), zap.Error(err))
	}

	st := auth.State(r)
	templates.Render(w, r, "product_detail", detailData{
		BaseVM:      viewdata.NewBaseVM(r, p.Title, "/"),
		Product:     p,
		Description: htmlsanitize.PrepareForDisplay(p.Description),
		SellerName:  seller,
		IsOwner:     st.Identity != nil && st.Identity.ID == p.SellerID,
	})
}
