package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/backend/memory"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/guard"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/souqhub/internal/testutil"
	"go.uber.org/zap"
)

// memBrowsers is an in-memory Browsers.
type memBrowsers struct {
	mu      sync.Mutex
	n       int
	open    map[string]*memory.Storage
	touched map[string]string
}

func newMemBrowsers() *memBrowsers {
	return &memBrowsers{open: map[string]*memory.Storage{}, touched: map[string]string{}}
}

func (b *memBrowsers) Open(_ context.Context, ip, ua string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	id := fmt.Sprintf("sid-%d", b.n)
	b.open[id] = &memory.Storage{}
	return id, nil
}

func (b *memBrowsers) Exists(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.open[id]
	return ok, nil
}

func (b *memBrowsers) Touch(_ context.Context, id, page string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touched[id] = page
	return nil
}

func (b *memBrowsers) Storage(id string) backend.SessionStorage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open[id]
}

func (b *memBrowsers) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func newRegistry(t *testing.T, be *memory.Backend, wait time.Duration) (*auth.Registry, *memBrowsers) {
	t.Helper()
	browsers := newMemBrowsers()
	reg, err := auth.NewRegistry(auth.Config{
		SessionKey: "test-session-key-must-be-32-chars-long",
		Name:       "test-session",
		LoadWait:   wait,
	}, browsers, func(st backend.SessionStorage) backend.Client {
		return be.NewClient(st)
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(reg.Shutdown)
	return reg, browsers
}

// capture records the entry each request saw.
func capture(reg *auth.Registry) (http.Handler, *[]*auth.Entry) {
	var seen []*auth.Entry
	h := reg.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, auth.FromRequest(r))
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLoad_NewBrowserGetsCookieAndLoadedManager(t *testing.T) {
	reg, browsers := newRegistry(t, memory.New(), time.Second)
	h, seen := capture(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	c := cookieFrom(t, rec)
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if browsers.Opened() != 1 {
		t.Errorf("expected 1 browser session, got %d", browsers.Opened())
	}
	e := (*seen)[0]
	if e == nil {
		t.Fatal("no entry attached to request")
	}
	if e.Manager.State().Loading {
		t.Error("manager should have loaded within the load wait")
	}
}

func TestLoad_ManagerIsReusedAcrossRequests(t *testing.T) {
	be := memory.New()
	reg, browsers := newRegistry(t, be, time.Second)
	h, seen := capture(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	c := cookieFrom(t, rec)

	for _, path := range []string{"/search", "/product/1", "/"} {
		req := httptest.NewRequest("GET", path, nil)
		req.AddCookie(c)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(*seen) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(*seen))
	}
	for i, e := range *seen {
		if e != (*seen)[0] {
			t.Errorf("request %d got a different entry", i)
		}
	}
	if browsers.Opened() != 1 {
		t.Errorf("expected one browser session, got %d", browsers.Opened())
	}
	if n := be.CallCount(memory.OpGetSession); n != 1 {
		t.Errorf("session initialised %d times, want 1", n)
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", reg.Len())
	}
}

func TestLoad_SignedInSessionSurvivesRestart(t *testing.T) {
	be := memory.New()
	be.AddUser("a@example.com", "secret1", nil)
	reg, browsers := newRegistry(t, be, time.Second)
	h, seen := capture(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	c := cookieFrom(t, rec)
	if err := (*seen)[0].Manager.SignIn(context.Background(), "a@example.com", "secret1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	// A new process with the same browser store and cookie key.
	reg2, err := auth.NewRegistry(auth.Config{
		SessionKey: "test-session-key-must-be-32-chars-long",
		Name:       "test-session",
	}, browsers, func(st backend.SessionStorage) backend.Client { return be.NewClient(st) }, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer reg2.Shutdown()

	var st2 bool
	h2 := reg2.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st2 = auth.State(r).SignedIn()
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(c)
	h2.ServeHTTP(httptest.NewRecorder(), req)
	if !st2 {
		t.Error("expected the stored session to be restored")
	}
}

func TestLoad_UnknownSidOpensNewSession(t *testing.T) {
	reg, browsers := newRegistry(t, memory.New(), time.Second)
	h, _ := capture(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	c := cookieFrom(t, rec)

	browsers.mu.Lock()
	delete(browsers.open, "sid-1")
	browsers.mu.Unlock()
	reg.Close("sid-1")

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if browsers.Opened() != 2 {
		t.Errorf("expected a replacement browser session, got %d opened", browsers.Opened())
	}
	cookieFrom(t, rec)
}

func TestLoad_TamperedCookieStartsFresh(t *testing.T) {
	reg, browsers := newRegistry(t, memory.New(), time.Second)
	h, seen := capture(reg)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "not-a-valid-cookie"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if (*seen)[0] == nil || browsers.Opened() != 1 {
		t.Error("expected a fresh browser session")
	}
}

func TestLoad_SlowInitServesLoadingState(t *testing.T) {
	testutil.BootTemplates(t)
	be := memory.New()
	release := make(chan struct{})
	be.Hook = func(ctx context.Context, op string) error {
		if op == memory.OpGetSession {
			<-release
		}
		return nil
	}
	defer close(release)

	reg, _ := newRegistry(t, be, 20*time.Millisecond)
	h := reg.Load(auth.Require(guard.Authenticated)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler must not run while loading")
	})))

	req := httptest.NewRequest("GET", "/my/products", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "refresh") {
		t.Errorf("expected the loading page, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Error("must not redirect while loading")
	}
}

func TestRequire_SignedOutRedirectsToAuth(t *testing.T) {
	reg, _ := newRegistry(t, memory.New(), time.Second)
	h := reg.Load(auth.Require(guard.Authenticated)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler ran for a signed-out browser")
	})))

	req := httptest.NewRequest("GET", "/profile", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/auth") {
		t.Errorf("expected /auth redirect, got %q", loc)
	}
}

func TestNotifyAndDrain(t *testing.T) {
	reg, _ := newRegistry(t, memory.New(), time.Second)
	var drained []notify.Notification
	h := reg.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Notify(r, notify.Notification{Level: notify.Info, Message: "hello"})
		drained = auth.Drain(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(drained) != 1 || drained[0].Message != "hello" {
		t.Errorf("unexpected notifications %+v", drained)
	}
}

func TestCloseIdle(t *testing.T) {
	reg, _ := newRegistry(t, memory.New(), time.Second)
	h, seen := capture(reg)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if ids := reg.CloseIdle(time.Hour); len(ids) != 0 {
		t.Errorf("fresh entry closed: %v", ids)
	}
	time.Sleep(5 * time.Millisecond)
	ids := reg.CloseIdle(time.Millisecond)
	if len(ids) != 1 || ids[0] != (*seen)[0].ID {
		t.Errorf("expected the idle entry to close, got %v", ids)
	}
	if reg.Len() != 0 {
		t.Errorf("expected no entries, got %d", reg.Len())
	}
}

func TestAccessorsWithoutEntry(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if auth.Manager(req) != nil || auth.Viewer(req) != nil {
		t.Error("expected nil manager and viewer")
	}
	if auth.State(req).SignedIn() {
		t.Error("request without a session must be signed out")
	}
	auth.Notify(req, notify.Notification{Message: "dropped"})
	if auth.Drain(req) != nil {
		t.Error("expected nothing to drain")
	}
}

func TestRefreshUser_AppliesAdminChange(t *testing.T) {
	be := memory.New()
	u := be.AddUser("a@example.com", "secret1", nil)
	be.SeedProfile(models.Profile{ID: u.ID, Username: "a"})
	reg, _ := newRegistry(t, be, time.Second)
	h, seen := capture(reg)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	m := (*seen)[0].Manager
	if err := m.SignIn(context.Background(), "a@example.com", "secret1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for m.State().Profile == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.State().IsAdmin() {
		t.Fatal("should start as a member")
	}

	if err := be.NewClient(&memory.Storage{}).Profiles().SetAdmin(context.Background(), u.ID, true); err != nil {
		t.Fatal(err)
	}
	if n := reg.RefreshUser(context.Background(), u.ID); n != 1 {
		t.Errorf("refreshed %d sessions, want 1", n)
	}
	if !m.State().IsAdmin() {
		t.Error("admin flag not applied to the live session")
	}
	if n := reg.RefreshUser(context.Background(), "someone-else"); n != 0 {
		t.Errorf("refreshed %d sessions for an unknown user", n)
	}
}

// backendClock is a settable clock for the memory backend.
type backendClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *backendClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *backendClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// signedInEntry returns a handler and the entry of one browser that has
// signed in as email, with its profile loaded.
func signedInEntry(t *testing.T, reg *auth.Registry, email string) (http.Handler, *http.Cookie, *auth.Entry) {
	t.Helper()
	h, seen := capture(reg)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	e := (*seen)[0]
	if err := e.Manager.SignIn(context.Background(), email, "secret1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for e.Manager.State().Profile == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return h, cookieFrom(t, rec), e
}

func TestLoad_RefreshesExpiredSession(t *testing.T) {
	clk := &backendClock{now: time.Now()}
	be := memory.New()
	be.Now = clk.Now
	u := be.AddUser("a@example.com", "secret1", nil)
	be.SeedProfile(models.Profile{ID: u.ID, Username: "a"})
	browsers := newMemBrowsers()
	reg, err := auth.NewRegistry(auth.Config{
		SessionKey:   "test-session-key-must-be-32-chars-long",
		Name:         "test-session",
		LoadWait:     time.Second,
		RefreshEvery: time.Nanosecond,
	}, browsers, func(st backend.SessionStorage) backend.Client {
		return be.NewClient(st)
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(reg.Shutdown)

	h, cookie, e := signedInEntry(t, reg, "a@example.com")
	before := e.Manager.State().Token

	clk.Advance(2 * time.Hour)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)

	st := e.Manager.State()
	if !st.SignedIn() || st.Token == before {
		t.Fatalf("expected a renewed session, signed in=%v", st.SignedIn())
	}

	be.RevokeRefreshTokens()
	clk.Advance(2 * time.Hour)
	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if e.Manager.State().SignedIn() {
		t.Error("a revoked refresh token must sign the browser out")
	}
}

func TestLoad_RefreshIsRateLimited(t *testing.T) {
	be := memory.New()
	u := be.AddUser("a@example.com", "secret1", nil)
	be.SeedProfile(models.Profile{ID: u.ID, Username: "a"})
	reg, _ := newRegistry(t, be, time.Second)

	h, cookie, _ := signedInEntry(t, reg, "a@example.com")
	calls := be.CallCount(memory.OpGetSession)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(cookie)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if got := be.CallCount(memory.OpGetSession); got != calls {
		t.Errorf("session read %d more times within the refresh interval", got-calls)
	}
}
