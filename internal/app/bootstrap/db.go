// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/souqhub/internal/app/backend/mongobackend"
	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/app/system/indexes"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB, opens the blob store and builds the backend
// service on top of both.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("souqhub")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	blobs, err := newBlobStore(ctx, appCfg, logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, err
	}

	svc, err := mongobackend.New(db, blobs, mongobackend.Config{
		JWTSecret:                appCfg.JWTSecret,
		AccessTTL:                appCfg.AccessTokenTTL,
		RefreshTTL:               appCfg.RefreshTokenTTL,
		RequireEmailConfirmation: appCfg.RequireEmailConfirmation,
	}, logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("backend init: %w", err)
	}

	return DBDeps{
		SouqHubMongoClient:   client,
		SouqHubMongoDatabase: db,
		Backend:              svc,
		Blobs:                blobs,
		Live:                 &Live{},
	}, nil
}

// newBlobStore opens the configured listing-image store. It returns a nil
// store for storage_type "none".
func newBlobStore(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (blob.Store, error) {
	switch appCfg.StorageType {
	case StorageLocal:
		l, err := blob.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
		if err != nil {
			return nil, fmt.Errorf("local storage: %w", err)
		}
		logger.Info("using local blob storage",
			zap.String("path", appCfg.StorageLocalPath),
			zap.String("url", appCfg.StorageLocalURL))
		return l, nil
	case StorageS3:
		s, err := blob.NewS3(ctx, blob.S3Config{
			Bucket:    appCfg.StorageS3Bucket,
			Region:    appCfg.StorageS3Region,
			Endpoint:  appCfg.StorageS3Endpoint,
			AccessKey: appCfg.StorageS3AccessKey,
			SecretKey: appCfg.StorageS3SecretKey,
			PublicURL: appCfg.StoragePublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		logger.Info("using S3 blob storage",
			zap.String("bucket", appCfg.StorageS3Bucket),
			zap.String("region", appCfg.StorageS3Region),
			zap.String("endpoint", appCfg.StorageS3Endpoint))
		return s, nil
	default:
		logger.Warn("blob storage disabled; listings accept image URLs only")
		return nil, nil
	}
}

// EnsureSchema creates the collection indexes.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	if err := indexes.EnsureAll(ctx, deps.SouqHubMongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	logger.Info("indexes ensured")
	return nil
}
