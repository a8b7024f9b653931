// internal/app/features/errors/errors.go
package errors

import "net/http"

// Handler serves the catch-all error routes.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound is the router's fallback.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	RenderNotFound(w, r)
}

// MethodNotAllowed answers routes hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Render(w, r, http.StatusMethodNotAllowed, "طلب غير صالح", "هذه العملية غير مدعومة", "/")
}
