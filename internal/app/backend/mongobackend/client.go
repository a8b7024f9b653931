package mongobackend

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/blob"
	"go.uber.org/zap"
)

// Client is one agent's connection to the Service.
//
// Auth operations are serialised and their events are dispatched before the
// operation returns. Listeners receive a ctx that marks the dispatch; calls
// made with it fail with backend.ErrReentrantCall. A listener must not call
// auth operations with any other context.
type Client struct {
	svc     *Service
	storage backend.SessionStorage
	events  backend.Dispatcher

	opMu    sync.Mutex
	loaded  bool
	current *backend.Session
}

// NewClient creates a client whose session is kept in storage. A nil
// storage keeps the session in memory only.
func (s *Service) NewClient(storage backend.SessionStorage) *Client {
	if storage == nil {
		storage = &memoryStorage{}
	}
	return &Client{svc: s, storage: storage}
}

var _ backend.Client = (*Client)(nil)
var _ backend.Auth = (*Client)(nil)

func (c *Client) Auth() backend.Auth            { return c }
func (c *Client) Profiles() backend.ProfileTable { return profileTable{store: c.svc.profiles} }
func (c *Client) Products() backend.ProductTable { return productTable{store: c.svc.products} }
func (c *Client) Settings() backend.SettingsTable {
	return settingsTable{store: c.svc.settings}
}

// Storage returns the blob store, or nil when none is configured.
func (c *Client) Storage() blob.Store {
	if c.svc.blobs == nil {
		return nil
	}
	return guardedBlobs{Store: c.svc.blobs}
}

// OnAuthStateChange registers fn for this client's auth events.
func (c *Client) OnAuthStateChange(fn backend.AuthListener) backend.Subscription {
	return c.events.Subscribe(fn)
}

// SignInWithPassword authenticates and makes the result the current session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	sess, err := c.svc.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.setCurrent(ctx, sess)
	c.events.Emit(ctx, backend.EventSignedIn, sess)
	return copySession(sess), nil
}

// SignUp registers an account. It never changes the current session.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]string, redirectTo string) (*backend.User, *backend.Session, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, nil, err
	}
	u, err := c.svc.CreateUser(ctx, email, password, metadata, redirectTo, !c.svc.cfg.RequireEmailConfirmation)
	if err != nil {
		return nil, nil, err
	}
	return u, nil, nil
}

// SignOut revokes the refresh token and clears the session.
func (c *Client) SignOut(ctx context.Context) error {
	if err := backend.CheckReentrant(ctx); err != nil {
		return err
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.load(ctx); err != nil {
		return err
	}
	if c.current != nil {
		if err := c.svc.tokens.Revoke(ctx, c.current.RefreshToken); err != nil {
			c.svc.log.Warn("revoke refresh token failed", zap.Error(err))
		}
	}
	c.setCurrent(ctx, nil)
	c.events.Emit(ctx, backend.EventSignedOut, nil)
	return nil
}

// GetSession returns the current session, refreshing it when the access
// token is no longer valid.
func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	first := !c.loaded
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	if c.current == nil {
		return nil, nil
	}

	if c.needsRefresh(c.current) {
		sess, err := c.svc.refresh(ctx, c.current.RefreshToken)
		if errors.Is(err, backend.ErrInvalidToken) {
			c.setCurrent(ctx, nil)
			c.events.Emit(ctx, backend.EventSignedOut, nil)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		c.setCurrent(ctx, sess)
		if first {
			c.events.Emit(ctx, backend.EventInitialSession, sess)
		} else {
			c.events.Emit(ctx, backend.EventTokenRefreshed, sess)
		}
		return copySession(sess), nil
	}

	if first {
		c.events.Emit(ctx, backend.EventInitialSession, c.current)
	}
	return copySession(c.current), nil
}

func (c *Client) needsRefresh(s *backend.Session) bool {
	if s.Expired(c.svc.now()) {
		return true
	}
	_, err := c.svc.VerifyAccessToken(s.AccessToken)
	return err != nil
}

// load reads the stored session once. Caller holds opMu.
func (c *Client) load(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	s, err := c.storage.Load(ctx)
	if err != nil {
		return err
	}
	c.current = s
	c.loaded = true
	return nil
}

// setCurrent replaces the session and persists it. Caller holds opMu.
func (c *Client) setCurrent(ctx context.Context, s *backend.Session) {
	c.current = copySession(s)
	c.loaded = true

	var err error
	if s == nil {
		err = c.storage.Clear(ctx)
	} else {
		err = c.storage.Save(ctx, s)
	}
	if err != nil {
		c.svc.log.Warn("persist auth session failed", zap.Error(err))
	}
}

func copySession(s *backend.Session) *backend.Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.User.Metadata != nil {
		cp.User.Metadata = make(map[string]string, len(s.User.Metadata))
		for k, v := range s.User.Metadata {
			cp.User.Metadata[k] = v
		}
	}
	return &cp
}

type memoryStorage struct {
	mu sync.Mutex
	s  *backend.Session
}

func (m *memoryStorage) Load(context.Context) (*backend.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.s), nil
}

func (m *memoryStorage) Save(_ context.Context, s *backend.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = copySession(s)
	return nil
}

func (m *memoryStorage) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}
