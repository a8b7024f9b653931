package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateProfile inserts a profile with a fresh id.
func (f *Fixtures) CreateProfile(ctx context.Context, username string, admin bool) models.Profile {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Profile{
		ID:        uuid.NewString(),
		Username:  username,
		IsAdmin:   admin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// CreateProduct inserts a listing owned by sellerID.
func (f *Fixtures) CreateProduct(ctx context.Context, title, category, sellerID string) models.Product {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Product{
		ID:          uuid.NewString(),
		Title:       title,
		Description: "وصف " + title,
		Price:       100,
		Category:    category,
		Condition:   models.DefaultCondition,
		Location:    "دبي",
		SellerID:    sellerID,
		Images:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("products").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test product: %v", err)
	}
	return p
}
