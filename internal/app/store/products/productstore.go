// Package productstore persists marketplace listings.
package productstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no listing has the requested id.
var ErrNotFound = errors.New("product not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("products")}
}

// containsRegex matches term anywhere in the field, ignoring case. term is
// literal text, never a pattern.
func containsRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

func (s *Store) Get(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrNotFound
	}
	return p, err
}

// Insert assigns an id and timestamps and stores the listing.
func (s *Store) Insert(ctx context.Context, p models.Product) (models.Product, error) {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Images == nil {
		p.Images = []string{}
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// Update replaces the editable fields of an existing listing.
func (s *Store) Update(ctx context.Context, p models.Product) error {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"title":       p.Title,
		"description": p.Description,
		"price":       p.Price,
		"category":    p.Category,
		"condition":   p.Condition,
		"location":    p.Location,
		"images":      images,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// TitleContains returns up to limit listings whose title contains term.
// Results come back in natural store order.
func (s *Store) TitleContains(ctx context.Context, term string, limit int64) ([]models.ProductSummary, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "title": 1, "category": 1}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"title": containsRegex(term)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ProductSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search matches title or description, newest first.
func (s *Store) Search(ctx context.Context, term string, limit int64) ([]models.Product, error) {
	re := containsRegex(term)
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"title": re},
		bson.M{"description": re},
	}}, limit)
}

// ListByCategory lists a category newest first. An empty category lists all.
func (s *Store) ListByCategory(ctx context.Context, category string, limit int64) ([]models.Product, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	return s.find(ctx, filter, limit)
}

// ListBySeller returns every listing owned by sellerID, newest first.
func (s *Store) ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	return s.find(ctx, bson.M{"seller_id": sellerID}, 0)
}

func (s *Store) List(ctx context.Context, limit int64) ([]models.Product, error) {
	return s.find(ctx, bson.M{}, limit)
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// CountByCategory returns the number of listings per category.
func (s *Store) CountByCategory(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$category", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Category string `bson:"_id"`
			N        int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Category] = row.N
	}
	return out, cur.Err()
}

func (s *Store) find(ctx context.Context, filter bson.M, limit int64) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
