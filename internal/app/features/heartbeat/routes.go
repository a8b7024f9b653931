// internal/app/features/heartbeat/routes.go
package heartbeat

import "github.com/go-chi/chi/v5"

// Routes returns the router for "/session".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/heartbeat", h.ServeHeartbeat)
	r.Get("/events", h.ServeEvents)
	return r
}
