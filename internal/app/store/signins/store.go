// internal/app/store/signins/store.go
package signins

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/souqhub/internal/app/system/ratelimit"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxUserAgent = 256

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("signin_records")}
}

// Create inserts rec, assigning an id and CreatedAt when empty.
func (s *Store) Create(ctx context.Context, rec models.SignInRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, rec)
	return err
}

// RecordFrom builds a record for userID from the request's client IP and
// user agent, and inserts it.
func (s *Store) RecordFrom(ctx context.Context, r *http.Request, userID, email string) error {
	ua := r.UserAgent()
	if len(ua) > maxUserAgent {
		ua = ua[:maxUserAgent]
	}
	return s.Create(ctx, models.SignInRecord{
		UserID:    userID,
		Email:     email,
		IP:        ratelimit.ClientIP(r),
		UserAgent: ua,
	})
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]models.SignInRecord, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SignInRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountSince counts sign-ins at or after t.
func (s *Store) CountSince(ctx context.Context, t time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": t}})
}
