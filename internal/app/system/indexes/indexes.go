// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"accounts", ensureAccounts},
		{"refresh_tokens", ensureRefreshTokens},
		{"profiles", ensureProfiles},
		{"products", ensureProducts},
		{"browser_sessions", ensureBrowserSessions},
		{"signin_records", ensureSignIns},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// desired describes one index we want to exist.
type desired struct {
	model  mongo.IndexModel
	name   string
	unique *bool
	sig    string
}

func describe(m mongo.IndexModel) desired {
	d := desired{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = m.Options.Unique
	}
	return d
}

func (d desired) isUnique() bool { return d.unique != nil && *d.unique }

func existingBySig(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// createErr formats a create failure, calling out duplicates that block a
// unique index.
func createErr(coll *mongo.Collection, d desired, err error) string {
	if isDuplicateKeyErr(err) && d.isUnique() {
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), d.name, d.sig)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err)
}

// replace drops the index called oldName and creates d in its place.
func replace(ctx context.Context, coll *mongo.Collection, oldName string, d desired) error {
	if _, err := coll.Indexes().DropOne(ctx, oldName); err != nil {
		return fmt.Errorf("%s(%s): drop failed: %v", coll.Name(), d.name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		return errors.New(createErr(coll, d, err))
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		d := describe(m)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.isUnique()))

		ex, found := existingBySig(ctx, coll)[d.sig]
		switch {
		case found && sameBoolPtr(d.unique, ex.Unique) && (d.name == "" || ex.Name == d.name):
			log.Info("reusing existing index", zap.String("took", time.Since(start).String()))

		case found:
			// Name or uniqueness differs: drop and recreate.
			if err := replace(ctx, coll, ex.Name, d); err != nil {
				log.Warn("index replace failed", zap.String("from", ex.Name), zap.Error(err))
				errs = append(errs, err.Error())
				continue
			}
			log.Info("index dropped and recreated",
				zap.String("from", ex.Name),
				zap.String("took", time.Since(start).String()))

		default:
			created, err := coll.Indexes().CreateOne(ctx, m)
			if err == nil {
				log.Info("index ensured",
					zap.String("created_name", created),
					zap.String("took", time.Since(start).String()))
				continue
			}
			if isOptionsConflictErr(err) {
				// Someone created the same keys concurrently; reconcile against it.
				if ex2, ok := existingBySig(ctx, coll)[d.sig]; ok {
					if sameBoolPtr(d.unique, ex2.Unique) {
						log.Info("reusing existing index (post-conflict)", zap.String("existing", ex2.Name))
						continue
					}
					if rerr := replace(ctx, coll, ex2.Name, d); rerr != nil {
						errs = append(errs, rerr.Error())
						continue
					}
					log.Info("index dropped and recreated (post-conflict)")
					continue
				}
			}
			log.Warn("index ensure failed",
				zap.String("took", time.Since(start).String()),
				zap.Error(err))
			errs = append(errs, createErr(coll, d, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureAccounts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("accounts"), []mongo.IndexModel{
		// One account per email (stored lowercased)
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_accounts_email"),
		},
	})
}

func ensureRefreshTokens(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("refresh_tokens"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().SetName("idx_refresh_tokens_account"),
		},
		// Cleanup sweeps by expiry
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_refresh_tokens_expires"),
		},
	})
}

func ensureProfiles(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("profiles"), []mongo.IndexModel{
		// Admin user list, newest first
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_profiles_created"),
		},
		{
			Keys:    bson.D{{Key: "is_admin", Value: 1}},
			Options: options.Index().SetName("idx_profiles_admin"),
		},
	})
}

func ensureProducts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("products"), []mongo.IndexModel{
		// Category browse pages, newest first
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_products_category_created"),
		},
		// "My products"
		{
			Keys:    bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_products_seller_created"),
		},
		// Full listing and search sort
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_products_created"),
		},
	})
}

func ensureBrowserSessions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("browser_sessions"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "closed_at", Value: 1}, {Key: "last_active_at", Value: -1}},
			Options: options.Index().SetName("idx_browser_sessions_open"),
		},
	})
}

func ensureSignIns(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("signin_records"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_signin_records_created"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_signin_records_user"),
		},
	})
}
