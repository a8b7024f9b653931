// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It applies timeout overrides, makes sure the configured administrator
// exists, and creates the public image bucket.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if appCfg.AdminEmail != "" {
		if _, err := deps.Backend.EnsureAdmin(ctx, appCfg.AdminEmail, appCfg.AdminPassword, appCfg.AdminUsername); err != nil {
			logger.Error("ensure administrator failed", zap.String("email", appCfg.AdminEmail), zap.Error(err))
			return err
		}
	}

	return ensureImageBucket(ctx, deps.Blobs, logger)
}

// ensureImageBucket creates the public listing-image bucket. Storage
// problems are logged and do not stop the app: uploads fall back to image
// URLs.
func ensureImageBucket(ctx context.Context, store blob.Store, logger *zap.Logger) error {
	if store == nil {
		return nil
	}
	created, err := blob.EnsureBucket(ctx, store, models.ProductImagesBucket, true)
	if err != nil {
		logger.Warn("ensure image bucket failed", zap.String("bucket", models.ProductImagesBucket), zap.Error(err))
		return nil
	}
	if created {
		logger.Info("created image bucket", zap.String("bucket", models.ProductImagesBucket))
	}
	return nil
}
