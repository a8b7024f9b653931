package guard

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/session"
	"github.com/dalemusser/waffle/pantry/templates"
)

// ViewerFunc returns the viewer for a request, or nil when the request has
// no session (treated as signed out).
type ViewerFunc func(r *http.Request) Viewer

// signedOut is used when a request carries no session at all.
type signedOut struct{}

func (signedOut) State() session.State { return session.State{} }
func (signedOut) Notify(notify.Notification) {}

type needKey struct{}

// WithNeed records the capability a page requires. Nested guards keep the
// strongest requirement.
func WithNeed(ctx context.Context, need Capability) context.Context {
	if cur := NeedFrom(ctx); cur >= need {
		return ctx
	}
	return context.WithValue(ctx, needKey{}, need)
}

// NeedFrom returns the capability recorded by WithNeed, or None.
func NeedFrom(ctx context.Context) Capability {
	if c, ok := ctx.Value(needKey{}).(Capability); ok {
		return c
	}
	return None
}

// Middleware enforces need on every request.
//
//   - Wait: a neutral loading page that re-polls (HTML and HTMX), or 503 with
//     Retry-After for API callers.
//   - Redirect: 303 to the target (HTML), HX-Redirect (HTMX), or 401/403 (API).
//     Redirects to the sign-in page carry the original URI as ?return=.
func Middleware(viewer ViewerFunc, need Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var v Viewer
			if viewer != nil {
				v = viewer(r)
			}
			if v == nil {
				v = signedOut{}
			}

			d := Enforce(v, need)
			switch d.Outcome {
			case Allow:
				next.ServeHTTP(w, r.WithContext(WithNeed(r.Context(), need)))
			case Wait:
				serveWait(w, r)
			case Redirect:
				serveRedirect(w, r, d)
			}
		})
	}
}

// RedirectTarget returns where d sends the request, adding the return
// parameter for the sign-in page.
func RedirectTarget(r *http.Request, d Decision) string {
	if d.Target == AuthPath {
		return AuthPath + "?return=" + url.QueryEscape(r.URL.RequestURI())
	}
	return d.Target
}

func serveRedirect(w http.ResponseWriter, r *http.Request, d Decision) {
	status := http.StatusForbidden
	if d.Target == AuthPath {
		status = http.StatusUnauthorized
	}
	dest := RedirectTarget(r, d)

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(status)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

// waitPage is the data of the session_wait page.
type waitPage struct {
	Poll string // URI the page re-requests
}

func serveWait(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if !wantsHTML(r) {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "session loading", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.Render(w, r, "session_wait", waitPage{Poll: r.URL.RequestURI()})
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func wantsHTML(r *http.Request) bool {
	if isHTMX(r) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
