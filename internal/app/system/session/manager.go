// Package session keeps one agent's view of who is signed in and what they
// may do.
//
// A Manager subscribes to its backend client's auth events before reading
// the current session, so no event is lost between the two. Profile loads
// triggered by an auth event are handed to a Scheduler and never run inside
// the backend's dispatch.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/normalize"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"go.uber.org/zap"
)

const (
	opSignIn        = "signIn"
	opSignUp        = "signUp"
	opSignOut       = "signOut"
	opUpdateProfile = "updateProfile"
	opRefresh       = "refreshProfile"
	opRefreshAuth   = "refreshSession"
)

// DefaultProfileTimeout bounds a scheduled profile load.
const DefaultProfileTimeout = 10 * time.Second

// Scheduler runs fn later, outside the caller's stack.
type Scheduler func(fn func())

// ErrClosed is returned by Init when the manager is closed before it
// finishes loading.
var ErrClosed = errors.New("session: manager closed")

// Go runs each task on its own goroutine.
func Go(fn func()) { go fn() }

// SignUpOutcome tells the caller what happened after a successful sign-up.
type SignUpOutcome int

const (
	// NotSignedUp is returned with every error.
	NotSignedUp SignUpOutcome = iota
	// SignedIn: the account, its profile and a session were created.
	SignedIn
	// ConfirmationPending: the account and profile exist but the email must
	// be confirmed before signing in.
	ConfirmationPending
)

type Option func(*Manager)

// WithScheduler replaces the default goroutine scheduler.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.schedule = s }
}

// WithRedirectTarget sets the post-registration redirect sent to the backend.
func WithRedirectTarget(url string) Option {
	return func(m *Manager) { m.redirectTo = url }
}

// WithProfileTimeout bounds scheduled profile loads.
func WithProfileTimeout(d time.Duration) Option {
	return func(m *Manager) { m.profileTimeout = d }
}

type subscriber struct {
	id        int
	fn        func(State)
	last      uint64
	delivered bool
}

type queued struct {
	version uint64
	state   State
	only    *subscriber // nil: every subscriber
}

// Manager is the reactive session store for one agent.
type Manager struct {
	client         backend.Client
	notifier       notify.Notifier
	log            *zap.Logger
	schedule       Scheduler
	redirectTo     string
	profileTimeout time.Duration

	base   context.Context
	cancel context.CancelFunc

	initOnce sync.Once
	initErr  error
	loaded   chan struct{}

	mu           sync.Mutex
	state        State
	initializing bool
	closed       bool
	sub          backend.Subscription
	version      uint64
	nextSubID    int
	subscribers  []*subscriber
	queue        []queued
	draining     bool
}

// New creates a Manager. Call Init before using it.
func New(client backend.Client, notifier notify.Notifier, logger *zap.Logger, opts ...Option) *Manager {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	m := &Manager{
		client:         client,
		notifier:       notifier,
		log:            logger,
		schedule:       Go,
		profileTimeout: DefaultProfileTimeout,
		base:           base,
		cancel:         cancel,
		loaded:         make(chan struct{}),
		state:          State{Loading: true},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Init runs the initialization protocol once. Later calls return the first
// call's result.
func (m *Manager) Init(ctx context.Context) error {
	m.initOnce.Do(func() { m.initErr = m.init(ctx) })
	return m.initErr
}

func (m *Manager) init(ctx context.Context) error {
	// 1. Subscribe before reading the session.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(m.loaded)
		return ErrClosed
	}
	m.initializing = true
	startVersion := m.version
	m.mu.Unlock()

	sub := m.client.Auth().OnAuthStateChange(m.onAuthEvent)
	m.mu.Lock()
	m.sub = sub
	closed := m.closed
	m.mu.Unlock()
	if closed {
		sub.Unsubscribe()
	}

	// 2. Snapshot.
	sess, err := m.client.Auth().GetSession(ctx)
	if err != nil {
		m.log.Warn("read current session failed", zap.Error(err))
	}

	// 3. Populate. Events that arrived during the snapshot describe the same
	// or a newer state, so they win.
	m.commit(func(s *State) bool {
		if m.version != startVersion || err != nil {
			return false
		}
		return applySession(s, sess)
	})

	failed := ""
	for {
		m.mu.Lock()
		if m.closed {
			m.initializing = false
			m.mu.Unlock()
			close(m.loaded)
			return ErrClosed
		}
		id := identityID(m.state)
		done := id == "" || id == failed || (m.state.Profile != nil && m.state.Profile.ID == id)
		if done {
			// 4. Loaded.
			m.initializing = false
			m.mu.Unlock()
			m.commit(func(s *State) bool { s.Loading = false; return true })
			close(m.loaded)
			return nil
		}
		m.mu.Unlock()

		if !m.fetchProfile(ctx, id) {
			failed = id
		}
	}
}

func identityID(s State) string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

// applySession sets token and identity from sess, dropping a profile that
// belongs to someone else. It reports whether s changed.
func applySession(s *State, sess *backend.Session) bool {
	if sess == nil {
		changed := s.Token != "" || s.Identity != nil || s.Profile != nil
		s.Token = ""
		s.Identity = nil
		s.Profile = nil
		return changed
	}
	changed := s.Token != sess.AccessToken || s.Identity == nil || *s.Identity != *identityFrom(sess.User)
	s.Token = sess.AccessToken
	s.Identity = identityFrom(sess.User)
	if s.Profile != nil && s.Profile.ID != sess.User.ID {
		s.Profile = nil
		changed = true
	}
	return changed
}

// onAuthEvent runs inside the backend's dispatch. It must not call the
// backend; the profile load is scheduled instead.
func (m *Manager) onAuthEvent(_ context.Context, event backend.Event, sess *backend.Session) {
	var fetchID string
	m.commit(func(s *State) bool {
		if sess != nil && !m.initializing {
			fetchID = sess.User.ID
		}
		return applySession(s, sess)
	})
	m.log.Debug("auth event", zap.String("event", string(event)), zap.Bool("signed_in", sess != nil))

	if fetchID != "" {
		m.schedule(func() {
			ctx, cancel := context.WithTimeout(m.base, m.profileTimeout)
			defer cancel()
			m.fetchProfile(ctx, fetchID)
		})
	}
}

// fetchProfile loads the profile for id and applies it if id is still the
// current identity. It reports whether the load succeeded.
func (m *Manager) fetchProfile(ctx context.Context, id string) bool {
	p, err := m.client.Profiles().Get(ctx, id)
	if err != nil {
		m.log.Warn("profile fetch failed", zap.String("user_id", id), zap.Error(err))
		return false
	}
	m.applyProfile(p)
	return true
}

func (m *Manager) applyProfile(p models.Profile) {
	m.commit(func(s *State) bool {
		if s.Identity == nil || s.Identity.ID != p.ID {
			return false
		}
		s.Profile = &p
		return true
	})
}

// commit mutates the state under the lock and, when fn reports a change,
// queues the new snapshot for subscribers. Snapshots are delivered in commit
// order, with no lock held, by whichever goroutine finds the queue idle.
func (m *Manager) commit(fn func(s *State) bool) {
	m.mu.Lock()
	if m.closed || !fn(&m.state) {
		m.mu.Unlock()
		return
	}
	m.version++
	m.queue = append(m.queue, queued{version: m.version, state: m.state.clone()})
	m.drainLocked()
}

// drainLocked delivers queued snapshots. Called with mu held; returns with
// mu released.
func (m *Manager) drainLocked() {
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	for len(m.queue) > 0 && !m.closed {
		q := m.queue[0]
		m.queue = m.queue[1:]
		targets := m.subscribers
		if q.only != nil {
			targets = []*subscriber{q.only}
		}
		targets = append([]*subscriber(nil), targets...)
		m.mu.Unlock()

		for _, sub := range targets {
			if sub.delivered && q.version <= sub.last {
				continue
			}
			sub.last = q.version
			sub.delivered = true
			sub.fn(q.state.clone())
		}

		m.mu.Lock()
	}
	m.queue = nil
	m.draining = false
	m.mu.Unlock()
}

// Subscribe calls fn with the current state and then with every change,
// in order. fn must not block. The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(State)) (cancel func()) {
	m.mu.Lock()
	m.nextSubID++
	sub := &subscriber{id: m.nextSubID, fn: fn}
	m.subscribers = append(m.subscribers, sub)
	m.queue = append(m.queue, queued{version: m.version, state: m.state.clone(), only: sub})
	m.drainLocked()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subscribers {
				if s == sub {
					m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Loaded is closed once Init has resolved the first session.
func (m *Manager) Loaded() <-chan struct{} { return m.loaded }

// WaitLoaded blocks until Init has finished or ctx is done.
func (m *Manager) WaitLoaded(ctx context.Context) error {
	select {
	case <-m.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify forwards a notification to the manager's notifier.
func (m *Manager) Notify(n notify.Notification) { m.notifier.Notify(n) }

// Client returns the backend client the manager runs against.
func (m *Manager) Client() backend.Client { return m.client }

// Close unsubscribes from auth events and stops pending profile loads.
// Subscribers receive nothing further.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sub := m.sub
	m.subscribers = nil
	m.queue = nil
	m.mu.Unlock()

	m.cancel()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// fail logs err, notifies the user and returns it.
func (m *Manager) fail(e *Error) error {
	m.log.Warn("session operation failed",
		zap.String("op", e.Op),
		zap.String("kind", e.Kind.String()),
		zap.Error(e.Err))
	notify.Errorf(m.notifier, "%s", e.Message())
	return e
}

// SignIn authenticates with email and password. State changes arrive
// through the auth event, not from this call.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	_, err := m.client.Auth().SignInWithPassword(ctx, normalize.Email(email), password)
	if err != nil {
		return m.fail(classify(opSignIn, err))
	}
	notify.Successf(m.notifier, "تم تسجيل الدخول بنجاح")
	return nil
}

// SignUp creates the account and its profile, then signs in.
func (m *Manager) SignUp(ctx context.Context, email, password, username string) (SignUpOutcome, error) {
	email = normalize.Email(email)
	username = normalize.Username(username)

	u, _, err := m.client.Auth().SignUp(ctx, email, password, map[string]string{"username": username}, m.redirectTo)
	if err != nil {
		return NotSignedUp, m.fail(classify(opSignUp, err))
	}

	now := time.Now().UTC()
	err = m.client.Profiles().Insert(ctx, models.Profile{
		ID:        u.ID,
		Username:  username,
		IsAdmin:   false,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		e := &Error{Op: opSignUp, Kind: KindPartialSuccess, Err: err}
		m.log.Error("profile insert after sign-up failed",
			zap.String("user_id", u.ID),
			zap.Error(err))
		notify.Warnf(m.notifier, "%s", e.Message())
		return NotSignedUp, e
	}
	notify.Successf(m.notifier, "تم إنشاء الحساب بنجاح")

	_, err = m.client.Auth().SignInWithPassword(ctx, email, password)
	switch {
	case errors.Is(err, backend.ErrEmailNotConfirmed):
		notify.Infof(m.notifier, "تم إرسال رابط تأكيد إلى بريدك الإلكتروني، الرجاء التحقق من بريدك وتأكيد حسابك")
		return ConfirmationPending, nil
	case err != nil:
		return NotSignedUp, m.fail(classify(opSignIn, err))
	}
	notify.Successf(m.notifier, "تم تسجيل دخولك تلقائيًا")
	return SignedIn, nil
}

// SignOut ends the session. The auth event clears identity and profile.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.client.Auth().SignOut(ctx); err != nil {
		return m.fail(classify(opSignOut, err))
	}
	notify.Successf(m.notifier, "تم تسجيل الخروج بنجاح")
	return nil
}

// UpdateProfile edits the signed-in user's profile and applies the result.
func (m *Manager) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (models.Profile, error) {
	id := identityID(m.State())
	if id == "" {
		return models.Profile{}, m.fail(&Error{Op: opUpdateProfile, Kind: KindNotSignedIn})
	}
	p, err := m.client.Profiles().Update(ctx, id, upd)
	if err != nil {
		return models.Profile{}, m.fail(classify(opUpdateProfile, err))
	}
	m.applyProfile(p)
	notify.Successf(m.notifier, "تم تحديث الملف الشخصي بنجاح")
	return p, nil
}

// Refresh re-reads the backend session. An expired access token is renewed
// (TOKEN_REFRESHED) and an unusable refresh token signs the agent out
// (SIGNED_OUT), both through the auth event. A state left signed out by a
// failed read during Init is repaired, and a missing profile is loaded.
// Before Init has finished, Refresh does nothing.
func (m *Manager) Refresh(ctx context.Context) error {
	select {
	case <-m.loaded:
	default:
		return nil
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}

	sess, err := m.client.Auth().GetSession(ctx)
	if err != nil {
		m.log.Warn("session refresh failed", zap.Error(err))
		return classify(opRefreshAuth, err)
	}
	m.commit(func(s *State) bool { return applySession(s, sess) })

	st := m.State()
	if st.Identity != nil && st.Profile == nil {
		m.fetchProfile(ctx, st.Identity.ID)
	}
	return nil
}

// RefreshProfile reloads the signed-in user's profile now.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	id := identityID(m.State())
	if id == "" {
		return &Error{Op: opRefresh, Kind: KindNotSignedIn}
	}
	p, err := m.client.Profiles().Get(ctx, id)
	if err != nil {
		return classify(opRefresh, err)
	}
	m.applyProfile(p)
	return nil
}
