package browse

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/souqhub/internal/app/system/livesearch"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /search/suggest?q= – search-as-you-type rows                            |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeSuggest answers the dropdown query. Terms shorter than
// livesearch.MinTermLength runes yield no rows and no backend call; backend
// failures are logged and answered with an empty list.
func (h *Handler) ServeSuggest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	rows := []models.ProductSummary{}
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(term) >= livesearch.MinTermLength {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "search suggest")
		defer cancel()

		found, err := h.Data.Products().TitleContains(ctx, term, livesearch.ResultLimit)
		if err != nil {
			h.Log.Warn("search suggest failed", zap.String("term", term), zap.Error(err))
		} else if found != nil {
			rows = found
		}
	}
	_ = json.NewEncoder(w).Encode(rows)
}
