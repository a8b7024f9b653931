// Package mongobackend implements the backend contract on MongoDB.
//
// A Service holds the shared stores and signing key. Each user agent gets its
// own Client from NewClient; the client owns that agent's auth session and
// persists it through a backend.SessionStorage.
package mongobackend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/blob"
	accountstore "github.com/dalemusser/souqhub/internal/app/store/accounts"
	productstore "github.com/dalemusser/souqhub/internal/app/store/products"
	profilestore "github.com/dalemusser/souqhub/internal/app/store/profiles"
	tokenstore "github.com/dalemusser/souqhub/internal/app/store/refreshtokens"
	settingsstore "github.com/dalemusser/souqhub/internal/app/store/settings"
	"github.com/dalemusser/souqhub/internal/app/system/inputval"
	"github.com/dalemusser/souqhub/internal/app/system/normalize"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinSecretLength is the shortest accepted JWT signing secret.
const MinSecretLength = 32

// Default token lifetimes.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// ErrSecretTooShort is returned by New for a weak signing secret.
var ErrSecretTooShort = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)

// Config controls token issuance and sign-in policy.
type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RequireEmailConfirmation blocks password sign-in until ConfirmEmail
	// has been called for the account.
	RequireEmailConfirmation bool
}

// Service is the shared half of the backend.
type Service struct {
	accounts *accountstore.Store
	tokens   *tokenstore.Store
	profiles *profilestore.Store
	products *productstore.Store
	settings *settingsstore.Store
	blobs    blob.Store

	cfg    Config
	secret []byte
	now    func() time.Time
	log    *zap.Logger
}

// New builds a Service on db. blobs may be nil when no storage is configured.
func New(db *mongo.Database, blobs blob.Store, cfg Config, logger *zap.Logger) (*Service, error) {
	if len(cfg.JWTSecret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		accounts: accountstore.New(db),
		tokens:   tokenstore.New(db),
		profiles: profilestore.New(db),
		products: productstore.New(db),
		settings: settingsstore.New(db),
		blobs:    blobs,
		cfg:      cfg,
		secret:   []byte(cfg.JWTSecret),
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger,
	}, nil
}

// CreateUser registers an account. confirmed marks the email as already
// confirmed (operator-created accounts, or when confirmation is not required).
func (s *Service) CreateUser(ctx context.Context, email, password string, metadata map[string]string, redirectTo string, confirmed bool) (*backend.User, error) {
	email = normalize.Email(email)
	if !inputval.IsValidEmail(email) {
		return nil, backend.ErrInvalidEmail
	}
	if len([]rune(password)) < backend.MinPasswordLength {
		return nil, backend.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	a := models.Account{
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     metadata,
		RedirectTo:   redirectTo,
	}
	if confirmed {
		now := s.now()
		a.ConfirmedAt = &now
	}

	created, err := s.accounts.Create(ctx, a)
	if errors.Is(err, accountstore.ErrDuplicateEmail) {
		return nil, backend.ErrAlreadyRegistered
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("account created",
		zap.String("account_id", created.ID),
		zap.Bool("confirmed", confirmed))
	return userFromAccount(created), nil
}

// ConfirmEmail marks the account with email as confirmed.
func (s *Service) ConfirmEmail(ctx context.Context, email string) (*backend.User, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, accountstore.ErrNotFound) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Confirm(ctx, a.ID); err != nil {
		return nil, err
	}
	a, err = s.accounts.GetByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return userFromAccount(a), nil
}

// LookupUser returns the account registered under email.
func (s *Service) LookupUser(ctx context.Context, email string) (*backend.User, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, accountstore.ErrNotFound) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userFromAccount(a), nil
}

// PurgeTokens deletes refresh tokens that expired or were revoked before cutoff.
func (s *Service) PurgeTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.tokens.DeleteStale(ctx, cutoff)
}

// authenticate checks a password and issues a fresh session.
func (s *Service) authenticate(ctx context.Context, email, password string) (*backend.Session, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, accountstore.ErrNotFound) {
		return nil, backend.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, backend.ErrInvalidCredentials
	}
	if s.cfg.RequireEmailConfirmation && !a.IsConfirmed() {
		return nil, backend.ErrEmailNotConfirmed
	}

	rt, err := s.tokens.Issue(ctx, a.ID, s.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return s.newSession(a, rt.Token)
}

// refresh exchanges a refresh token for a new session.
func (s *Service) refresh(ctx context.Context, refreshToken string) (*backend.Session, error) {
	rt, err := s.tokens.Exchange(ctx, refreshToken, s.cfg.RefreshTTL)
	if errors.Is(err, tokenstore.ErrInvalid) {
		return nil, backend.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	a, err := s.accounts.GetByID(ctx, rt.AccountID)
	if errors.Is(err, accountstore.ErrNotFound) {
		_ = s.tokens.Revoke(ctx, rt.Token)
		return nil, backend.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return s.newSession(a, rt.Token)
}

func (s *Service) newSession(a models.Account, refreshToken string) (*backend.Session, error) {
	now := s.now()
	exp := now.Add(s.cfg.AccessTTL)
	access, err := s.signAccessToken(a, now, exp)
	if err != nil {
		return nil, err
	}
	return &backend.Session{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    exp,
		User:         *userFromAccount(a),
	}, nil
}

func userFromAccount(a models.Account) *backend.User {
	return &backend.User{
		ID:          a.ID,
		Email:       a.Email,
		Metadata:    a.Metadata,
		CreatedAt:   a.CreatedAt,
		ConfirmedAt: a.ConfirmedAt,
	}
}
