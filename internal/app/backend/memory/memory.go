// Package memory is an in-process backend used by tests and local tooling.
//
// It follows the same contract as the Mongo backend: sign-up never creates a
// session, sessions refresh through rotating refresh tokens, and listener
// contexts are rejected. With StrictReentrancy set, every call on a client
// fails while that client is dispatching an event, whatever context it
// carries.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/app/system/inputval"
	"github.com/dalemusser/souqhub/internal/app/system/normalize"
	"github.com/dalemusser/souqhub/internal/domain/models"
)

// Operation names passed to hooks and failure injection.
const (
	OpSignIn        = "auth.signIn"
	OpSignUp        = "auth.signUp"
	OpSignOut       = "auth.signOut"
	OpGetSession    = "auth.getSession"
	OpProfileGet    = "profiles.get"
	OpProfileInsert = "profiles.insert"
	OpProfileUpdate = "profiles.update"
	OpProfileAdmin  = "profiles.setAdmin"
	OpProfileList   = "profiles.list"
	OpProfileCount  = "profiles.count"
	OpProductGet    = "products.get"
	OpProductInsert = "products.insert"
	OpProductUpdate = "products.update"
	OpProductDelete = "products.delete"
	OpProductTitle  = "products.titleContains"
	OpProductSearch = "products.search"
	OpProductList   = "products.list"
	OpProductCount  = "products.count"
	OpSettingsGet   = "settings.get"
	OpSettingsSave  = "settings.save"
	OpStorage       = "storage"
)

type account struct {
	user     backend.User
	password string
}

// Backend holds the shared records. Create clients with NewClient.
type Backend struct {
	// StrictReentrancy rejects every call made while a client dispatches.
	StrictReentrancy bool
	// RequireEmailConfirmation blocks sign-in for unconfirmed accounts.
	RequireEmailConfirmation bool
	// AccessTTL is the access-token lifetime (default one hour).
	AccessTTL time.Duration
	// Now is the clock (default time.Now).
	Now func() time.Time
	// Hook, when set, runs at the start of every operation. A non-nil
	// error fails the operation. It may block.
	Hook func(ctx context.Context, op string) error

	mu        sync.Mutex
	seq       int
	accounts  map[string]*account // by email
	refresh   map[string]string   // refresh token -> user id
	profiles  map[string]models.Profile
	products  []models.Product
	settings  map[string]models.UserSettings
	failures  map[string][]error
	calls     []string
	blobStore *Blobs
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		accounts:  map[string]*account{},
		refresh:   map[string]string{},
		profiles:  map[string]models.Profile{},
		settings:  map[string]models.UserSettings{},
		failures:  map[string][]error{},
		blobStore: NewBlobs("https://blobs.test"),
	}
}

func (b *Backend) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Backend) accessTTL() time.Duration {
	if b.AccessTTL > 0 {
		return b.AccessTTL
	}
	return time.Hour
}

// Fail makes the next call of op fail with err. Repeated calls queue errors.
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = append(b.failures[op], err)
}

// Calls returns the operations performed so far, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CallCount returns how many times op was called.
func (b *Backend) CallCount(op string) int {
	n := 0
	for _, c := range b.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// enter records op and applies hooks and injected failures.
func (b *Backend) enter(ctx context.Context, op string) error {
	b.mu.Lock()
	b.calls = append(b.calls, op)
	var injected error
	if q := b.failures[op]; len(q) > 0 {
		injected = q[0]
		b.failures[op] = q[1:]
	}
	hook := b.Hook
	b.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, op); err != nil {
			return err
		}
	}
	if injected != nil {
		return injected
	}
	return ctx.Err()
}

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

// AddUser registers a confirmed account directly.
func (b *Backend) AddUser(email, password string, metadata map[string]string) backend.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.createLocked(email, password, metadata, true)
	return u
}

func (b *Backend) createLocked(email, password string, metadata map[string]string, confirmed bool) backend.User {
	now := b.now()
	u := backend.User{
		ID:        b.nextID("user"),
		Email:     normalize.Email(email),
		Metadata:  copyMeta(metadata),
		CreatedAt: now,
	}
	if confirmed {
		u.ConfirmedAt = &now
	}
	b.accounts[u.Email] = &account{user: u, password: password}
	return u
}

// ConfirmEmail marks an account as confirmed.
func (b *Backend) ConfirmEmail(email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[normalize.Email(email)]
	if !ok {
		return backend.ErrNotFound
	}
	now := b.now()
	a.user.ConfirmedAt = &now
	return nil
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh = map[string]string{}
}

// SeedProfile stores p as-is.
func (b *Backend) SeedProfile(p models.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles[p.ID] = p
}

// SeedProduct appends p, assigning an id when empty.
func (b *Backend) SeedProduct(p models.Product) models.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = b.nextID("product")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = b.now()
	}
	b.products = append(b.products, p)
	return p
}

// Profile returns the stored profile for id.
func (b *Backend) Profile(id string) (models.Profile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[id]
	return p, ok
}

// Blobs returns the shared blob store.
func (b *Backend) Blobs() *Blobs { return b.blobStore }

func (b *Backend) issueLocked(u backend.User) *backend.Session {
	rt := b.nextID("refresh")
	b.refresh[rt] = u.ID
	return &backend.Session{
		AccessToken:  b.nextID("access"),
		RefreshToken: rt,
		ExpiresAt:    b.now().Add(b.accessTTL()),
		User:         u,
	}
}

func (b *Backend) userByIDLocked(id string) (backend.User, bool) {
	for _, a := range b.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return backend.User{}, false
}

func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySession(s *backend.Session) *backend.Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.User.Metadata = copyMeta(s.User.Metadata)
	return &cp
}

// ---- client ----

// Client is one agent's view of a Backend.
type Client struct {
	b       *Backend
	storage backend.SessionStorage
	events  backend.Dispatcher

	mu      sync.Mutex
	loaded  bool
	current *backend.Session
}

// NewClient creates a client. A nil storage keeps the session in memory.
func (b *Backend) NewClient(storage backend.SessionStorage) *Client {
	if storage == nil {
		storage = &Storage{}
	}
	return &Client{b: b, storage: storage}
}

var _ backend.Client = (*Client)(nil)

func (c *Client) Auth() backend.Auth              { return (*auth)(c) }
func (c *Client) Profiles() backend.ProfileTable  { return profiles{c} }
func (c *Client) Products() backend.ProductTable  { return products{c} }
func (c *Client) Settings() backend.SettingsTable { return settings{c} }
func (c *Client) Storage() blob.Store             { return storageTable{c} }

// Listeners returns the number of auth listeners registered on the client.
func (c *Client) Listeners() int { return c.events.Listeners() }

// Emit dispatches an event directly, as if the backend had produced it.
// The client's current session is updated to match.
func (c *Client) Emit(ctx context.Context, event backend.Event, s *backend.Session) {
	c.mu.Lock()
	c.loaded = true
	c.current = copySession(s)
	c.mu.Unlock()
	c.events.Emit(ctx, event, s)
}

func (c *Client) enter(ctx context.Context, op string) error {
	if err := backend.CheckReentrant(ctx); err != nil {
		return err
	}
	if c.b.StrictReentrancy && c.events.Dispatching() {
		return backend.ErrReentrantCall
	}
	return c.b.enter(ctx, op)
}

type auth Client

func (a *auth) client() *Client { return (*Client)(a) }

func (a *auth) OnAuthStateChange(fn backend.AuthListener) backend.Subscription {
	return a.events.Subscribe(fn)
}

func (a *auth) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	c := a.client()
	if err := c.enter(ctx, OpSignIn); err != nil {
		return nil, err
	}

	b := c.b
	b.mu.Lock()
	acc, ok := b.accounts[normalize.Email(email)]
	if !ok || acc.password != password {
		b.mu.Unlock()
		return nil, backend.ErrInvalidCredentials
	}
	if b.RequireEmailConfirmation && acc.user.ConfirmedAt == nil {
		b.mu.Unlock()
		return nil, backend.ErrEmailNotConfirmed
	}
	sess := b.issueLocked(acc.user)
	b.mu.Unlock()

	c.set(ctx, sess)
	c.events.Emit(ctx, backend.EventSignedIn, sess)
	return copySession(sess), nil
}

func (a *auth) SignUp(ctx context.Context, email, password string, metadata map[string]string, redirectTo string) (*backend.User, *backend.Session, error) {
	c := a.client()
	if err := c.enter(ctx, OpSignUp); err != nil {
		return nil, nil, err
	}
	email = normalize.Email(email)
	if !inputval.IsValidEmail(email) {
		return nil, nil, backend.ErrInvalidEmail
	}
	if len([]rune(password)) < backend.MinPasswordLength {
		return nil, nil, backend.ErrWeakPassword
	}

	b := c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[email]; exists {
		return nil, nil, backend.ErrAlreadyRegistered
	}
	u := b.createLocked(email, password, metadata, !b.RequireEmailConfirmation)
	return &u, nil, nil
}

func (a *auth) SignOut(ctx context.Context) error {
	c := a.client()
	if err := c.enter(ctx, OpSignOut); err != nil {
		return err
	}
	c.mu.Lock()
	if c.current != nil {
		c.b.mu.Lock()
		delete(c.b.refresh, c.current.RefreshToken)
		c.b.mu.Unlock()
	}
	c.mu.Unlock()

	c.set(ctx, nil)
	c.events.Emit(ctx, backend.EventSignedOut, nil)
	return nil
}

func (a *auth) GetSession(ctx context.Context) (*backend.Session, error) {
	c := a.client()
	if err := c.enter(ctx, OpGetSession); err != nil {
		return nil, err
	}

	c.mu.Lock()
	first := !c.loaded
	if first {
		s, err := c.storage.Load(ctx)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.current = s
		c.loaded = true
	}
	cur := copySession(c.current)
	c.mu.Unlock()

	if cur == nil {
		return nil, nil
	}

	if cur.Expired(c.b.now()) {
		b := c.b
		b.mu.Lock()
		uid, ok := b.refresh[cur.RefreshToken]
		var u backend.User
		if ok {
			delete(b.refresh, cur.RefreshToken)
			u, ok = b.userByIDLocked(uid)
		}
		if !ok {
			b.mu.Unlock()
			c.set(ctx, nil)
			c.events.Emit(ctx, backend.EventSignedOut, nil)
			return nil, nil
		}
		next := b.issueLocked(u)
		b.mu.Unlock()

		c.set(ctx, next)
		if first {
			c.events.Emit(ctx, backend.EventInitialSession, next)
		} else {
			c.events.Emit(ctx, backend.EventTokenRefreshed, next)
		}
		return copySession(next), nil
	}

	if first {
		c.events.Emit(ctx, backend.EventInitialSession, cur)
	}
	return cur, nil
}

func (c *Client) set(ctx context.Context, s *backend.Session) {
	c.mu.Lock()
	c.current = copySession(s)
	c.loaded = true
	c.mu.Unlock()
	if s == nil {
		_ = c.storage.Clear(ctx)
	} else {
		_ = c.storage.Save(ctx, s)
	}
}

// ---- tables ----

type profiles struct{ c *Client }

func (t profiles) Get(ctx context.Context, id string) (models.Profile, error) {
	if err := t.c.enter(ctx, OpProfileGet); err != nil {
		return models.Profile{}, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[id]
	if !ok {
		return models.Profile{}, backend.ErrNotFound
	}
	return p, nil
}

func (t profiles) Insert(ctx context.Context, p models.Profile) error {
	if err := t.c.enter(ctx, OpProfileInsert); err != nil {
		return err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.profiles[p.ID]; exists {
		return fmt.Errorf("profile %s already exists", p.ID)
	}
	now := b.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	b.profiles[p.ID] = p
	return nil
}

func (t profiles) Update(ctx context.Context, id string, upd models.ProfileUpdate) (models.Profile, error) {
	if err := t.c.enter(ctx, OpProfileUpdate); err != nil {
		return models.Profile{}, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[id]
	if !ok {
		return models.Profile{}, backend.ErrNotFound
	}
	if upd.Username != nil {
		p.Username = normalize.Username(*upd.Username)
	}
	if upd.FirstName != nil {
		p.FirstName = normalize.Name(*upd.FirstName)
	}
	if upd.LastName != nil {
		p.LastName = normalize.Name(*upd.LastName)
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = *upd.AvatarURL
	}
	p.UpdatedAt = b.now()
	b.profiles[id] = p
	return p, nil
}

func (t profiles) SetAdmin(ctx context.Context, id string, admin bool) error {
	if err := t.c.enter(ctx, OpProfileAdmin); err != nil {
		return err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[id]
	if !ok {
		return backend.ErrNotFound
	}
	p.IsAdmin = admin
	b.profiles[id] = p
	return nil
}

func (t profiles) List(ctx context.Context, limit int64) ([]models.Profile, error) {
	if err := t.c.enter(ctx, OpProfileList); err != nil {
		return nil, err
	}
	b := t.c.b
	b.mu.Lock()
	out := make([]models.Profile, 0, len(b.profiles))
	for _, p := range b.profiles {
		out = append(out, p)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t profiles) Count(ctx context.Context) (int64, error) {
	if err := t.c.enter(ctx, OpProfileCount); err != nil {
		return 0, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.profiles)), nil
}

func (t profiles) CountAdmins(ctx context.Context) (int64, error) {
	if err := t.c.enter(ctx, OpProfileCount); err != nil {
		return 0, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for _, p := range b.profiles {
		if p.IsAdmin {
			n++
		}
	}
	return n, nil
}

type products struct{ c *Client }

func (t products) Get(ctx context.Context, id string) (models.Product, error) {
	if err := t.c.enter(ctx, OpProductGet); err != nil {
		return models.Product{}, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, backend.ErrNotFound
}

func (t products) Insert(ctx context.Context, p models.Product) (models.Product, error) {
	if err := t.c.enter(ctx, OpProductInsert); err != nil {
		return models.Product{}, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	p.ID = b.nextID("product")
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Images == nil {
		p.Images = []string{}
	}
	b.products = append(b.products, p)
	return p, nil
}

func (t products) Update(ctx context.Context, p models.Product) error {
	if err := t.c.enter(ctx, OpProductUpdate); err != nil {
		return err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cur := range b.products {
		if cur.ID == p.ID {
			p.SellerID = cur.SellerID
			p.CreatedAt = cur.CreatedAt
			p.UpdatedAt = b.now()
			b.products[i] = p
			return nil
		}
	}
	return backend.ErrNotFound
}

func (t products) Delete(ctx context.Context, id string) error {
	if err := t.c.enter(ctx, OpProductDelete); err != nil {
		return err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.products {
		if p.ID == id {
			b.products = append(b.products[:i], b.products[i+1:]...)
			return nil
		}
	}
	return backend.ErrNotFound
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (t products) TitleContains(ctx context.Context, term string, limit int64) ([]models.ProductSummary, error) {
	if err := t.c.enter(ctx, OpProductTitle); err != nil {
		return nil, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.ProductSummary{}
	for _, p := range b.products {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		if containsFold(p.Title, term) {
			out = append(out, p.Summary())
		}
	}
	return out, nil
}

// newestFirst filters the products and sorts them by CreatedAt, newest first.
func (b *Backend) newestFirst(keep func(models.Product) bool, limit int64) []models.Product {
	b.mu.Lock()
	out := []models.Product{}
	for _, p := range b.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	b.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func (t products) Search(ctx context.Context, term string, limit int64) ([]models.Product, error) {
	if err := t.c.enter(ctx, OpProductSearch); err != nil {
		return nil, err
	}
	return t.c.b.newestFirst(func(p models.Product) bool {
		return containsFold(p.Title, term) || containsFold(p.Description, term)
	}, limit), nil
}

func (t products) ListByCategory(ctx context.Context, category string, limit int64) ([]models.Product, error) {
	if err := t.c.enter(ctx, OpProductList); err != nil {
		return nil, err
	}
	return t.c.b.newestFirst(func(p models.Product) bool {
		return category == "" || p.Category == category
	}, limit), nil
}

func (t products) ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	if err := t.c.enter(ctx, OpProductList); err != nil {
		return nil, err
	}
	return t.c.b.newestFirst(func(p models.Product) bool { return p.SellerID == sellerID }, 0), nil
}

func (t products) List(ctx context.Context, limit int64) ([]models.Product, error) {
	if err := t.c.enter(ctx, OpProductList); err != nil {
		return nil, err
	}
	return t.c.b.newestFirst(func(models.Product) bool { return true }, limit), nil
}

func (t products) Count(ctx context.Context) (int64, error) {
	if err := t.c.enter(ctx, OpProductCount); err != nil {
		return 0, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.products)), nil
}

func (t products) CountByCategory(ctx context.Context) (map[string]int64, error) {
	if err := t.c.enter(ctx, OpProductCount); err != nil {
		return nil, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[string]int64{}
	for _, p := range b.products {
		out[p.Category]++
	}
	return out, nil
}

type settings struct{ c *Client }

func (t settings) Get(ctx context.Context, userID string) (models.UserSettings, error) {
	if err := t.c.enter(ctx, OpSettingsGet); err != nil {
		return models.UserSettings{}, err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.settings[userID]
	if !ok {
		return models.UserSettings{}, backend.ErrNotFound
	}
	return s, nil
}

func (t settings) Save(ctx context.Context, s models.UserSettings) error {
	if err := t.c.enter(ctx, OpSettingsSave); err != nil {
		return err
	}
	b := t.c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	s.UpdatedAt = &now
	b.settings[s.UserID] = s
	return nil
}
