package session

import (
	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/domain/models"
)

// Identity is the signed-in account.
type Identity struct {
	ID       string
	Email    string
	Username string // from sign-up metadata; may be empty
}

func identityFrom(u backend.User) *Identity {
	return &Identity{ID: u.ID, Email: u.Email, Username: u.Metadata["username"]}
}

// State is a snapshot of the session. Snapshots are values; mutating one
// does not affect the Manager.
type State struct {
	Token    string
	Identity *Identity
	Profile  *models.Profile
	// Loading is true until the first session resolution has completed.
	Loading bool
}

// SignedIn reports whether an identity is present.
func (s State) SignedIn() bool { return s.Identity != nil }

// IsAdmin derives from the profile and is false while the profile is absent.
func (s State) IsAdmin() bool { return s.Profile != nil && s.Profile.IsAdmin }

// DisplayName returns the best name to show for the signed-in user.
func (s State) DisplayName() string {
	if s.Profile != nil {
		if n := s.Profile.DisplayName(); n != "" {
			return n
		}
	}
	if s.Identity == nil {
		return ""
	}
	if s.Identity.Username != "" {
		return s.Identity.Username
	}
	return s.Identity.Email
}

func (s State) clone() State {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	return out
}
