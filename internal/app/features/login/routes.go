// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes mounts at "/auth".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeAuth)
	r.Post("/login", h.HandleLogin)
	r.Post("/register", h.HandleRegister)
	return r
}
