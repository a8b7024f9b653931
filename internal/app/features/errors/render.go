// internal/app/features/errors/render.go
package errors

import (
	"net/http"

	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

type pageData struct {
	viewdata.BaseVM
	Status  int
	Message string
}

// Render writes an error page with status.
func Render(w http.ResponseWriter, r *http.Request, status int, title, msg, backURL string) {
	if backURL == "" {
		backURL = "/"
	}
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, title, backURL),
		Status:  status,
		Message: msg,
	}
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", data)
}

// RenderNotFound renders the 404 page.
func RenderNotFound(w http.ResponseWriter, r *http.Request) {
	Render(w, r, http.StatusNotFound, "الصفحة غير موجودة", "عذرًا، الصفحة التي تبحث عنها غير موجودة", "/")
}
