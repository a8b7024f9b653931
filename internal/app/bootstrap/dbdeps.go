// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/souqhub/internal/app/backend/mongobackend"
	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/ratelimit"
	"github.com/dalemusser/souqhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	SouqHubMongoClient   *mongo.Client
	SouqHubMongoDatabase *mongo.Database

	// Backend is the auth and data service every browser's client is made from.
	Backend *mongobackend.Service

	// Blobs is nil when storage_type is "none".
	Blobs blob.Store

	// Live is filled in by BuildHandler and torn down by Shutdown.
	Live *Live
}

// Live holds the in-process state created while building the handler.
type Live struct {
	Registry *auth.Registry
	Reaper   *workers.SessionReaper
	Limiter  *ratelimit.AuthLimiter
}
