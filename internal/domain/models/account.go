// internal/domain/models/account.go
package models

import "time"

// Account is a backend authentication record. Passwords are stored only as
// bcrypt hashes; Metadata holds sign-up metadata (for example "username").
type Account struct {
	ID           string            `bson:"_id" json:"id"`
	Email        string            `bson:"email" json:"email"`
	PasswordHash string            `bson:"password_hash" json:"-"`
	Metadata     map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	RedirectTo   string            `bson:"redirect_to,omitempty" json:"redirect_to,omitempty"`
	ConfirmedAt  *time.Time        `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	CreatedAt    time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at" json:"updated_at"`
}

// IsConfirmed reports whether the account's email address has been confirmed.
func (a *Account) IsConfirmed() bool {
	return a.ConfirmedAt != nil
}

// RefreshToken is an opaque, single-use token that can be exchanged for a new
// access token. Tokens rotate: a successful refresh revokes the old one.
type RefreshToken struct {
	Token     string     `bson:"_id" json:"token"`
	AccountID string     `bson:"account_id" json:"account_id"`
	ExpiresAt time.Time  `bson:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `bson:"revoked_at,omitempty" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}

// Usable reports whether the token can still be exchanged at time now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
