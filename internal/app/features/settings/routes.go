// internal/app/features/settings/routes.go
package settings

import (
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/guard"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at "/settings".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.Require(guard.Authenticated))
	r.Get("/", h.ServeSettings)
	r.Post("/", h.HandleSettings)
	return r
}
