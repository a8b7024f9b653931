// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, closes live sessions and disconnects
// from MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if live := deps.Live; live != nil {
		if live.Reaper != nil {
			live.Reaper.Stop()
		}
		if live.Limiter != nil {
			live.Limiter.Stop()
		}
		if live.Registry != nil {
			live.Registry.Shutdown()
		}
	}
	if deps.SouqHubMongoClient != nil {
		logger.Info("disconnecting SouqHub MongoDB client")
		if err := deps.SouqHubMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
