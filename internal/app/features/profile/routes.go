// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/guard"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at "/profile".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.Require(guard.Authenticated))
	r.Get("/", h.ServeProfile)
	r.Post("/", h.HandleUpdate)
	return r
}
