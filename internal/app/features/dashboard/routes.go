// internal/app/features/dashboard/routes.go
package dashboard

import "github.com/go-chi/chi/v5"

// Routes wires the admin overview and listing management under "/admin".
// The caller guards the mount with the administrator capability.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeOverview)
	r.Get("/products", h.ServeProducts)
	r.Get("/products/{id}/edit", h.ServeEditProduct)
	r.Post("/products/{id}/edit", h.HandleEditProduct)
	r.Post("/products/{id}/delete", h.HandleDeleteProduct)
	return r
}
