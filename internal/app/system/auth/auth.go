// Package auth ties browser cookies to long-lived session managers.
//
// Each browser gets a random browser-session id in a signed cookie. The
// Registry keeps one session.Manager per id, created and initialised on the
// first request and reused by every request after it, so navigation never
// re-runs session initialisation.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/guard"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/ratelimit"
	"github.com/dalemusser/souqhub/internal/app/system/session"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	DefaultSessionName  = "souqhub-session"
	DefaultLoadWait     = 2 * time.Second
	DefaultRefreshEvery = time.Minute

	sidKey = "sid"

	// notification backlog kept per browser between page renders
	notifyBacklog = 10
)

// Browsers persists browser sessions.
type Browsers interface {
	// Open records a new signed-out browser session and returns its id.
	Open(ctx context.Context, ip, userAgent string) (string, error)
	// Exists reports whether id names an open browser session.
	Exists(ctx context.Context, id string) (bool, error)
	Touch(ctx context.Context, id, page string) error
	// Storage returns where the backend keeps this browser's auth session.
	Storage(id string) backend.SessionStorage
}

// ClientFactory builds the backend client for one browser.
type ClientFactory func(storage backend.SessionStorage) backend.Client

// Config configures the session cookie.
type Config struct {
	SessionKey string
	Name       string
	Domain     string
	Secure     bool
	// LoadWait bounds how long a request waits for a new manager to finish
	// loading before it is served in the loading state.
	LoadWait time.Duration
	// RefreshEvery is the minimum gap between backend session refreshes of
	// one browser. Refreshes run on requests, heartbeats included.
	RefreshEvery time.Duration
}

// Entry is one browser's session.
type Entry struct {
	ID      string
	Manager *session.Manager
	Notes   *notify.Queue

	lastSeen    atomic.Int64
	lastRefresh atomic.Int64
}

// LastSeen is when a request last used the entry.
func (e *Entry) LastSeen() time.Time { return time.Unix(0, e.lastSeen.Load()) }

func (e *Entry) touch(now time.Time) { e.lastSeen.Store(now.UnixNano()) }

// Registry maps browser-session ids to managers.
type Registry struct {
	cookies   *sessions.CookieStore
	name      string
	loadWait  time.Duration
	refresh   time.Duration
	browsers  Browsers
	newClient ClientFactory
	opts      []session.Option
	log       *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry
}

// NewRegistry creates a Registry. An empty session key is replaced by a
// random one, which invalidates cookies on every restart.
func NewRegistry(cfg Config, browsers Browsers, newClient ClientFactory, logger *zap.Logger, opts ...session.Option) (*Registry, error) {
	if browsers == nil || newClient == nil {
		return nil, fmt.Errorf("auth: browsers and client factory are required")
	}
	key := []byte(cfg.SessionKey)
	switch {
	case len(key) == 0:
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, fmt.Errorf("auth: generate session key")
		}
		logger.Warn("session_key not set; using a random key (sessions end on restart)")
	case len(key) < 32:
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Domain:   cfg.Domain,
		Path:     "/",
		Secure:   cfg.Secure,
		HttpOnly: true,
		MaxAge:   0,
		SameSite: http.SameSiteLaxMode,
	}

	name := cfg.Name
	if name == "" {
		name = DefaultSessionName
	}
	wait := cfg.LoadWait
	if wait <= 0 {
		wait = DefaultLoadWait
	}
	every := cfg.RefreshEvery
	if every <= 0 {
		every = DefaultRefreshEvery
	}

	logger.Info("session registry initialized",
		zap.String("cookie", name),
		zap.Bool("secure", cfg.Secure),
		zap.Duration("load_wait", wait))

	return &Registry{
		cookies:   store,
		name:      name,
		loadWait:  wait,
		refresh:   every,
		browsers:  browsers,
		newClient: newClient,
		opts:      opts,
		log:       logger,
		now:       time.Now,
		entries:   map[string]*Entry{},
	}, nil
}

type entryKey struct{}

// FromRequest returns the browser's entry, or nil.
func FromRequest(r *http.Request) *Entry {
	e, _ := r.Context().Value(entryKey{}).(*Entry)
	return e
}

// WithEntry returns r carrying e. Used by Load and by handler tests.
func WithEntry(r *http.Request, e *Entry) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), entryKey{}, e))
}

// Manager returns the browser's session manager, or nil.
func Manager(r *http.Request) *session.Manager {
	if e := FromRequest(r); e != nil {
		return e.Manager
	}
	return nil
}

// State returns the browser's session snapshot; a request without a
// session is signed out.
func State(r *http.Request) session.State {
	if m := Manager(r); m != nil {
		return m.State()
	}
	return session.State{}
}

// Viewer adapts the request's manager for the guard.
func Viewer(r *http.Request) guard.Viewer {
	if m := Manager(r); m != nil {
		return m
	}
	return nil
}

// Require guards a route with need.
func Require(need guard.Capability) func(http.Handler) http.Handler {
	return guard.Middleware(Viewer, need)
}

// Notify queues n for the browser's next page.
func Notify(r *http.Request, n notify.Notification) {
	if e := FromRequest(r); e != nil {
		e.Notes.Notify(n)
	}
}

// Drain returns and clears the browser's pending notifications.
func Drain(r *http.Request) []notify.Notification {
	if e := FromRequest(r); e != nil {
		return e.Notes.Drain()
	}
	return nil
}

// Load attaches the browser's entry to the request, creating the browser
// session and its manager when needed, and waits up to the load wait for
// the manager to finish loading. Failures are logged and the request is
// served signed out.
func (reg *Registry) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, err := reg.attach(w, r)
		if err != nil {
			reg.log.Error("attach browser session", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		wait, cancel := context.WithTimeout(r.Context(), reg.loadWait)
		_ = e.Manager.WaitLoaded(wait)
		cancel()
		reg.refreshSession(r.Context(), e)

		next.ServeHTTP(w, WithEntry(r, e))
	})
}

func (reg *Registry) attach(w http.ResponseWriter, r *http.Request) (*Entry, error) {
	// A cookie that fails verification still yields a fresh session.
	cs, _ := reg.cookies.Get(r, reg.name)
	sid, _ := cs.Values[sidKey].(string)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if sid != "" {
		if e := reg.lookup(sid); e != nil {
			reg.seen(ctx, e, r)
			return e, nil
		}
		ok, err := reg.browsers.Exists(ctx, sid)
		if err != nil {
			return nil, fmt.Errorf("lookup browser session: %w", err)
		}
		if !ok {
			sid = ""
		}
	}

	if sid == "" {
		id, err := reg.browsers.Open(ctx, ratelimit.ClientIP(r), r.UserAgent())
		if err != nil {
			return nil, fmt.Errorf("open browser session: %w", err)
		}
		sid = id
		cs.Values[sidKey] = sid
		if err := cs.Save(r, w); err != nil {
			return nil, fmt.Errorf("save session cookie: %w", err)
		}
	}

	e := reg.entry(sid)
	reg.seen(ctx, e, r)
	return e, nil
}

func (reg *Registry) seen(ctx context.Context, e *Entry, r *http.Request) {
	e.touch(reg.now())
	if r.Method != http.MethodGet {
		return
	}
	if err := reg.browsers.Touch(ctx, e.ID, r.URL.Path); err != nil {
		reg.log.Debug("touch browser session", zap.String("sid", e.ID), zap.Error(err))
	}
}

// refreshSession renews the browser's backend session when the last
// refresh is older than the refresh interval. Only one request per
// interval does the work.
func (reg *Registry) refreshSession(ctx context.Context, e *Entry) {
	select {
	case <-e.Manager.Loaded():
	default:
		return
	}
	now := reg.now()
	last := e.lastRefresh.Load()
	if now.Sub(time.Unix(0, last)) < reg.refresh {
		return
	}
	if !e.lastRefresh.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	if err := e.Manager.Refresh(ctx); err != nil {
		reg.log.Debug("session refresh", zap.String("sid", e.ID), zap.Error(err))
	}
}

func (reg *Registry) lookup(sid string) *Entry {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.entries[sid]
}

// entry returns the entry for sid, creating and initialising its manager on
// first use.
func (reg *Registry) entry(sid string) *Entry {
	reg.mu.Lock()
	if e, ok := reg.entries[sid]; ok {
		reg.mu.Unlock()
		return e
	}
	notes := notify.NewQueue(notifyBacklog)
	client := reg.newClient(reg.browsers.Storage(sid))
	m := session.New(client, notes, reg.log.With(zap.String("sid", sid)), reg.opts...)
	e := &Entry{ID: sid, Manager: m, Notes: notes}
	e.touch(reg.now())
	e.lastRefresh.Store(reg.now().UnixNano())
	reg.entries[sid] = e
	reg.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
		defer cancel()
		if err := m.Init(ctx); err != nil {
			reg.log.Warn("session init failed", zap.String("sid", sid), zap.Error(err))
		}
	}()
	return e
}

// Close drops the entry for sid and stops its manager.
func (reg *Registry) Close(sid string) bool {
	reg.mu.Lock()
	e, ok := reg.entries[sid]
	delete(reg.entries, sid)
	reg.mu.Unlock()
	if ok {
		e.Manager.Close()
	}
	return ok
}

// CloseIdle closes every entry unused for longer than idle and returns
// their ids.
func (reg *Registry) CloseIdle(idle time.Duration) []string {
	cutoff := reg.now().Add(-idle)
	reg.mu.Lock()
	var stale []*Entry
	for id, e := range reg.entries {
		if e.LastSeen().Before(cutoff) {
			stale = append(stale, e)
			delete(reg.entries, id)
		}
	}
	reg.mu.Unlock()

	ids := make([]string, 0, len(stale))
	for _, e := range stale {
		e.Manager.Close()
		ids = append(ids, e.ID)
	}
	return ids
}

// RefreshUser reloads the profile in every live session signed in as
// userID, so a changed administrator flag applies on the next request.
// It returns how many sessions were refreshed.
func (reg *Registry) RefreshUser(ctx context.Context, userID string) int {
	reg.mu.Lock()
	var hits []*Entry
	for _, e := range reg.entries {
		if id := e.Manager.State().Identity; id != nil && id.ID == userID {
			hits = append(hits, e)
		}
	}
	reg.mu.Unlock()

	n := 0
	for _, e := range hits {
		if err := e.Manager.RefreshProfile(ctx); err != nil {
			reg.log.Warn("profile refresh failed", zap.String("sid", e.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

// Len returns the number of live entries.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.entries)
}

// Shutdown closes every manager.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	all := reg.entries
	reg.entries = map[string]*Entry{}
	reg.mu.Unlock()
	for _, e := range all {
		e.Manager.Close()
	}
}
