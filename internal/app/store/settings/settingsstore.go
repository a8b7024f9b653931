// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/souqhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by Get when the user has never saved settings.
var ErrNotFound = errors.New("user settings not found")

// Store provides access to the user_settings collection.
// Each user has at most one document, keyed by user id.
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("user_settings")}
}

// Get returns the saved settings for a user.
func (s *Store) Get(ctx context.Context, userID string) (models.UserSettings, error) {
	var settings models.UserSettings
	err := s.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.UserSettings{}, ErrNotFound
	}
	if err != nil {
		return models.UserSettings{}, err
	}
	return settings, nil
}

// GetOrDefault returns the saved settings, or the defaults when none exist.
func (s *Store) GetOrDefault(ctx context.Context, userID string) (models.UserSettings, error) {
	settings, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return models.DefaultUserSettings(userID), nil
	}
	return settings, err
}

// Save writes the settings for settings.UserID.
// Uses upsert so it works whether settings exist or not.
func (s *Store) Save(ctx context.Context, settings models.UserSettings) error {
	now := time.Now().UTC()
	settings.UpdatedAt = &now

	update := bson.M{
		"$set": bson.M{
			"notifications": settings.Notifications,
			"privacy":       settings.Privacy,
			"interface":     settings.Interface,
			"updated_at":    settings.UpdatedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": settings.UserID}, update, opts)
	return err
}

// Exists checks if settings have been saved for a user.
func (s *Store) Exists(ctx context.Context, userID string) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes a user's settings.
func (s *Store) Delete(ctx context.Context, userID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}
