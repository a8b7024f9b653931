package mongobackend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"go.uber.org/zap"
)

// AdminResult reports what EnsureAdmin changed.
type AdminResult struct {
	User           *backend.User
	AccountCreated bool
	ProfileCreated bool
	Promoted       bool
}

// EnsureAdmin makes email an administrator. A missing account is created
// (already confirmed) with password, a missing profile is created with
// username, and the profile's administrator flag is set. An existing
// account keeps its password.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, username string) (AdminResult, error) {
	var res AdminResult

	u, err := s.LookupUser(ctx, email)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		if password == "" {
			return res, fmt.Errorf("admin account %s does not exist and no password was given", email)
		}
		meta := map[string]string{"username": username}
		u, err = s.CreateUser(ctx, email, password, meta, "", true)
		if err != nil {
			return res, fmt.Errorf("create admin account: %w", err)
		}
		res.AccountCreated = true
	case err != nil:
		return res, fmt.Errorf("lookup admin account: %w", err)
	case u.ConfirmedAt == nil:
		if u, err = s.ConfirmEmail(ctx, email); err != nil {
			return res, fmt.Errorf("confirm admin account: %w", err)
		}
	}
	res.User = u

	if strings.TrimSpace(username) == "" {
		username, _, _ = strings.Cut(u.Email, "@")
	}

	profiles := profileTable{store: s.profiles}
	p, err := profiles.Get(ctx, u.ID)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		now := s.now()
		p = models.Profile{ID: u.ID, Username: username, IsAdmin: true, CreatedAt: now, UpdatedAt: now}
		if err := profiles.Insert(ctx, p); err != nil {
			return res, fmt.Errorf("create admin profile: %w", err)
		}
		res.ProfileCreated = true
		res.Promoted = true
	case err != nil:
		return res, fmt.Errorf("load admin profile: %w", err)
	case !p.IsAdmin:
		if err := profiles.SetAdmin(ctx, u.ID, true); err != nil {
			return res, fmt.Errorf("promote admin: %w", err)
		}
		res.Promoted = true
	}

	s.log.Info("administrator ensured",
		zap.String("user_id", u.ID),
		zap.Bool("account_created", res.AccountCreated),
		zap.Bool("profile_created", res.ProfileCreated),
		zap.Bool("promoted", res.Promoted))
	return res, nil
}
