package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend/memory"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/session"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"go.uber.org/zap"
)

// TestPassword is the password of every user created by these helpers.
const TestPassword = "secret1"

// TestUser describes a signed-in user for handler tests.
type TestUser struct {
	ID       string
	Email    string
	Username string
	Admin    bool
}

// MemberUser returns a non-admin seller.
func MemberUser() TestUser {
	return TestUser{Email: "member@test.com", Username: "member"}
}

// AdminUser returns an administrator.
func AdminUser() TestUser {
	return TestUser{Email: "admin@test.com", Username: "admin", Admin: true}
}

// Browser is one simulated browser: a loaded session manager over a memory
// backend, ready to be attached to requests.
type Browser struct {
	Backend *memory.Backend
	Entry   *auth.Entry
	User    TestUser
}

// NewBrowser returns a signed-out browser whose session has finished loading.
func NewBrowser(t *testing.T, b *memory.Backend) *Browser {
	t.Helper()
	return newBrowser(t, b, &memory.Storage{}, TestUser{})
}

// SignedInBrowser creates u in b (account and profile) and returns a browser
// signed in as u with its profile loaded. u.ID is filled in.
func SignedInBrowser(t *testing.T, b *memory.Backend, u TestUser) *Browser {
	t.Helper()
	acct := b.AddUser(u.Email, TestPassword, map[string]string{"username": u.Username})
	u.ID = acct.ID
	now := time.Now().UTC()
	b.SeedProfile(models.Profile{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.Admin,
		CreatedAt: now,
		UpdatedAt: now,
	})

	st := &memory.Storage{}
	if _, err := b.NewClient(st).Auth().SignInWithPassword(context.Background(), u.Email, TestPassword); err != nil {
		t.Fatalf("sign in %s: %v", u.Email, err)
	}
	return newBrowser(t, b, st, u)
}

func newBrowser(t *testing.T, b *memory.Backend, st *memory.Storage, u TestUser) *Browser {
	t.Helper()
	notes := notify.NewQueue(10)
	m := session.New(b.NewClient(st), notes, zap.NewNop())
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("session init: %v", err)
	}
	t.Cleanup(m.Close)
	return &Browser{
		Backend: b,
		Entry:   &auth.Entry{ID: "test-browser", Manager: m, Notes: notes},
		User:    u,
	}
}

// Attach returns r carrying the browser's session.
func (br *Browser) Attach(r *http.Request) *http.Request {
	return auth.WithEntry(r, br.Entry)
}

// Get builds a GET request for target from this browser.
func (br *Browser) Get(target string) *http.Request {
	return br.Attach(httptest.NewRequest(http.MethodGet, target, nil))
}

// PostForm builds a form POST from this browser.
func (br *Browser) PostForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return br.Attach(req)
}

// Notes drains the browser's pending notifications.
func (br *Browser) Notes() []notify.Notification {
	return br.Entry.Notes.Drain()
}

// NewRequest creates an HTTP request with no session attached.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertRedirect checks for a redirect to the expected location.
func (r *ResponseRecorder) AssertRedirect(t interface{ Errorf(string, ...any) }, expectedLocation string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	if location := r.Header().Get("Location"); location != expectedLocation {
		t.Errorf("redirect location: got %q, want %q", location, expectedLocation)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
