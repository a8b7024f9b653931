package browse

import "github.com/go-chi/chi/v5"

// SearchRoutes mounts at "/search".
func SearchRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeSearch)
	r.Get("/suggest", h.ServeSuggest)
	return r
}

// CategoryRoutes mounts at "/categories".
func CategoryRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{category}", h.ServeCategory)
	return r
}
