// internal/domain/models/signin.go
package models

import "time"

// SignInRecord is one successful sign-in through the web site.
// CreatedAt is indexed for the admin overview.
type SignInRecord struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Email     string    `bson:"email"`
	IP        string    `bson:"ip"`
	UserAgent string    `bson:"user_agent,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}
