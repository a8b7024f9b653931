// Package tokenstore persists opaque refresh tokens.
//
// Tokens rotate: Exchange atomically revokes the presented token and issues a
// successor, so a token can be used at most once.
package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/dalemusser/souqhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrInvalid is returned for unknown, revoked or expired tokens.
var ErrInvalid = errors.New("refresh token is invalid or expired")

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("refresh_tokens"), now: func() time.Time { return time.Now().UTC() }}
}

// Issue creates a new token for accountID valid for ttl.
func (s *Store) Issue(ctx context.Context, accountID string, ttl time.Duration) (models.RefreshToken, error) {
	tok, err := randomToken()
	if err != nil {
		return models.RefreshToken{}, err
	}
	now := s.now()
	rt := models.RefreshToken{
		Token:     tok,
		AccountID: accountID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, rt); err != nil {
		return models.RefreshToken{}, err
	}
	return rt, nil
}

// Exchange revokes token and issues its successor.
func (s *Store) Exchange(ctx context.Context, token string, ttl time.Duration) (models.RefreshToken, error) {
	now := s.now()
	var old models.RefreshToken
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": token, "revoked_at": nil, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"revoked_at": now}},
	).Decode(&old)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RefreshToken{}, ErrInvalid
	}
	if err != nil {
		return models.RefreshToken{}, err
	}
	return s.Issue(ctx, old.AccountID, ttl)
}

// Revoke revokes a single token. Unknown tokens are ignored.
func (s *Store) Revoke(ctx context.Context, token string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": token, "revoked_at": nil},
		bson.M{"$set": bson.M{"revoked_at": s.now()}},
	)
	return err
}

// DeleteStale removes tokens that expired or were revoked before cutoff.
func (s *Store) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"expires_at": bson.M{"$lt": cutoff}},
		bson.M{"revoked_at": bson.M{"$lt": cutoff}},
	}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
