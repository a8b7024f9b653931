// Package navigation validates user-supplied return URLs so redirects stay
// on this site.
package navigation

import (
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
)

// BackURLOptions narrows which return URLs a page accepts.
type BackURLOptions struct {
	// AllowedPrefix, when set, is required (e.g. "/admin/products").
	AllowedPrefix string

	// Excluded rejects URLs containing any of these, so a form never
	// returns to itself or to an action endpoint.
	Excluded []string

	// Fallback is used when the candidate is missing or rejected.
	Fallback string
}

// Accept returns raw when it is a same-site path allowed by opts, else the
// fallback.
func Accept(raw string, opts BackURLOptions) string {
	ret := urlutil.SafeReturn(strings.TrimSpace(raw), "", "")
	if !strings.HasPrefix(ret, "/") || strings.HasPrefix(ret, "//") || strings.HasPrefix(ret, "/\\") {
		return opts.Fallback
	}
	if opts.AllowedPrefix != "" && !strings.HasPrefix(ret, opts.AllowedPrefix) {
		return opts.Fallback
	}
	for _, ex := range opts.Excluded {
		if strings.Contains(ret, ex) {
			return opts.Fallback
		}
	}
	return ret
}

// SafeBackURL reads "return" from the query string, then from the form, and
// validates it with Accept.
func SafeBackURL(r *http.Request, opts BackURLOptions) string {
	raw := query.Get(r, "return")
	if raw == "" {
		raw = r.FormValue("return")
	}
	return Accept(raw, opts)
}

var (
	// AfterSignIn is where the auth page may send a browser once signed in.
	AfterSignIn = BackURLOptions{
		Excluded: []string{"/auth", "/logout"},
		Fallback: "/",
	}

	// AdminProducts keeps listing management inside its filtered list.
	AdminProducts = BackURLOptions{
		AllowedPrefix: "/admin/products",
		Excluded:      []string{"/edit", "/delete"},
		Fallback:      "/admin/products",
	}
)
