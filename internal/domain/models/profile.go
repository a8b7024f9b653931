// internal/domain/models/profile.go
package models

import (
	"strings"
	"time"
)

// Profile is the application-level record that sits beside a backend account.
// Its ID is the account (identity) id; the backend does not create it, the
// application does right after sign-up.
type Profile struct {
	ID        string    `bson:"_id" json:"id"`
	Username  string    `bson:"username" json:"username"`
	FirstName string    `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName  string    `bson:"last_name,omitempty" json:"last_name,omitempty"`
	AvatarURL string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	IsAdmin   bool      `bson:"is_admin" json:"is_admin"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DisplayName returns the best available human name for the profile.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	full := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if full != "" {
		return full
	}
	return p.Username
}

// ProfileUpdate carries the user-editable profile fields.
// Nil pointers are left untouched.
type ProfileUpdate struct {
	Username  *string
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Username == nil && u.FirstName == nil && u.LastName == nil && u.AvatarURL == nil
}
