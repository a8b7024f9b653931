// Package backend defines the data, authentication and blob-storage service
// the marketplace runs against.
//
// A Client represents one user agent (one browser session in the web app, the
// process in the CLI) and owns that agent's authentication session. Record
// tables and storage are shared across clients.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/domain/models"
)

// Event is the kind of an authentication state change.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

var (
	ErrInvalidCredentials = errors.New("backend: invalid login credentials")
	ErrAlreadyRegistered  = errors.New("backend: user already registered")
	ErrEmailNotConfirmed  = errors.New("backend: email not confirmed")
	ErrWeakPassword       = errors.New("backend: password should be at least 6 characters")
	ErrInvalidEmail       = errors.New("backend: invalid email address")
	ErrInvalidToken       = errors.New("backend: invalid or expired token")
	ErrNotFound           = errors.New("backend: record not found")
	// ErrReentrantCall is returned when a backend call is made from inside an
	// auth-state listener while the event is still being dispatched.
	ErrReentrantCall = errors.New("backend: call made from inside an auth state listener")
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

// User is an authenticated account as seen by the application.
type User struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
}

// Session is an authentication session: a short-lived access token plus the
// refresh token that renews it.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AuthListener receives auth state changes. ctx identifies the dispatch; any
// backend call made with it fails with ErrReentrantCall.
type AuthListener func(ctx context.Context, event Event, session *Session)

// Subscription is returned by OnAuthStateChange.
type Subscription interface {
	Unsubscribe()
}

// Auth is the per-agent authentication surface.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignUp creates an account. It never signs the agent in: the returned
	// session is always nil in this implementation.
	SignUp(ctx context.Context, email, password string, metadata map[string]string, redirectTo string) (*User, *Session, error)
	SignOut(ctx context.Context) error
	// GetSession returns the current session or nil. An expired access token
	// is refreshed (TOKEN_REFRESHED); an unusable one is dropped (SIGNED_OUT).
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(fn AuthListener) Subscription
}

// ProfileTable is the "profiles" record table.
type ProfileTable interface {
	Get(ctx context.Context, id string) (models.Profile, error)
	Insert(ctx context.Context, p models.Profile) error
	Update(ctx context.Context, id string, upd models.ProfileUpdate) (models.Profile, error)
	SetAdmin(ctx context.Context, id string, admin bool) error
	List(ctx context.Context, limit int64) ([]models.Profile, error)
	Count(ctx context.Context) (int64, error)
	CountAdmins(ctx context.Context) (int64, error)
}

// ProductTable is the "products" record table.
type ProductTable interface {
	Get(ctx context.Context, id string) (models.Product, error)
	Insert(ctx context.Context, p models.Product) (models.Product, error)
	Update(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id string) error
	// TitleContains matches title case-insensitively against %term% and
	// returns at most limit rows in store order (no sort is applied).
	TitleContains(ctx context.Context, term string, limit int64) ([]models.ProductSummary, error)
	// Search matches title or description against %term%, newest first.
	Search(ctx context.Context, term string, limit int64) ([]models.Product, error)
	ListByCategory(ctx context.Context, category string, limit int64) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error)
	List(ctx context.Context, limit int64) ([]models.Product, error)
	Count(ctx context.Context) (int64, error)
	CountByCategory(ctx context.Context) (map[string]int64, error)
}

// SettingsTable is the "user_settings" record table.
type SettingsTable interface {
	// Get returns ErrNotFound when the user has never saved settings.
	Get(ctx context.Context, userID string) (models.UserSettings, error)
	Save(ctx context.Context, s models.UserSettings) error
}

// Client is one agent's view of the backend.
type Client interface {
	Auth() Auth
	Profiles() ProfileTable
	Products() ProductTable
	Settings() SettingsTable
	Storage() blob.Store
}

// SessionStorage persists an agent's session between processes or requests.
type SessionStorage interface {
	// Load returns nil, nil when nothing is stored.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}
