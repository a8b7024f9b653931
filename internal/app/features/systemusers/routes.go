// internal/app/features/systemusers/routes.go
package systemusers

import "github.com/go-chi/chi/v5"

// Routes mounts user management under "/admin/users". The caller guards
// the mount with the administrator capability.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/{id}/admin", h.HandleToggleAdmin)
	return r
}
