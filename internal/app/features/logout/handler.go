// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// HandleLogout handles POST /logout. The browser session and its cookie
// survive; only the backend session ends. A failed sign-out leaves the user
// signed in and the manager has already queued the error for the next page.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if m := auth.Manager(r); m != nil && m.State().SignedIn() {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "sign out")
		defer cancel()
		if err := m.SignOut(ctx); err != nil {
			h.Log.Warn("sign out failed", zap.Error(err))
		}
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation to "/".
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
