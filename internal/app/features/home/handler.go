package home

import (
	"net/http"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// LatestLimit is how many listings the landing page shows.
const LatestLimit = 8

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	Data backend.Client
	Log  *zap.Logger
}

func NewHandler(data backend.Client, logger *zap.Logger) *Handler {
	return &Handler{
		Data: data,
		Log:  logger,
	}
}

type homeData struct {
	viewdata.BaseVM
	Categories []models.CategoryCard
	Latest     []models.Product
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "home latest listings")
	defer cancel()

	latest, err := h.Data.Products().List(ctx, LatestLimit)
	if err != nil {
		// The landing page still renders without listings.
		h.Log.Warn("load latest listings", zap.Error(err))
		latest = nil
	}

	templates.Render(w, r, "home", homeData{
		BaseVM:     viewdata.NewBaseVM(r, "الرئيسية", "/"),
		Categories: models.CategoryCards,
		Latest:     latest,
	})
}
