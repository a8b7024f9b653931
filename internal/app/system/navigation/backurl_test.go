package navigation

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestAccept(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		opts BackURLOptions
		want string
	}{
		{"empty", "", AfterSignIn, "/"},
		{"local path", "/my/products", AfterSignIn, "/my/products"},
		{"keeps query", "/search?q=phone", AfterSignIn, "/search?q=phone"},
		{"absolute url", "https://evil.example/", AfterSignIn, "/"},
		{"protocol relative", "//evil.example", AfterSignIn, "/"},
		{"backslash trick", "/\\evil.example", AfterSignIn, "/"},
		{"auth loop", "/auth?tab=login", AfterSignIn, "/"},
		{"inside prefix", "/admin/products?category=x", AdminProducts, "/admin/products?category=x"},
		{"outside prefix", "/admin/users", AdminProducts, "/admin/products"},
		{"action page", "/admin/products/p1/edit", AdminProducts, "/admin/products"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accept(tt.raw, tt.opts); got != tt.want {
				t.Errorf("Accept(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSafeBackURL_QueryThenForm(t *testing.T) {
	r := httptest.NewRequest("GET", "/auth?return=%2Fprofile", nil)
	if got := SafeBackURL(r, AfterSignIn); got != "/profile" {
		t.Errorf("query: got %q", got)
	}

	form := url.Values{"return": {"/settings"}}
	r = httptest.NewRequest("POST", "/auth/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if got := SafeBackURL(r, AfterSignIn); got != "/settings" {
		t.Errorf("form: got %q", got)
	}
}
