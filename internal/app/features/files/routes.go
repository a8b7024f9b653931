// internal/app/features/files/routes.go
package files

import "github.com/go-chi/chi/v5"

// Routes mounts at the local storage URL prefix (default "/files").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{bucket}/*", h.ServeObject)
	r.Head("/{bucket}/*", h.ServeObject)
	return r
}
