package products

import (
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/guard"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at "/product".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.With(auth.Require(guard.Authenticated)).Get("/add", h.ServeAddForm)
	r.With(auth.Require(guard.Authenticated)).Post("/add", h.HandleAdd)
	r.Get("/{id}", h.ServeDetail)
	return r
}

// MineRoutes mounts at "/my".
func MineRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.Require(guard.Authenticated))
	r.Get("/products", h.ServeMine)
	r.Post("/products/{id}/delete", h.HandleDeleteMine)
	return r
}
