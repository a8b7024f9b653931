package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger checks the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

type mongoPinger struct{ c *mongo.Client }

func (p mongoPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx, readpref.Primary()) }

// MongoPinger pings the primary of c.
func MongoPinger(c *mongo.Client) Pinger { return mongoPinger{c} }

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB      Pinger
	Storage blob.Store // nil when blob storage is not configured
	Log     *zap.Logger
}

// NewHandler constructs a health Handler. storage may be nil.
func NewHandler(db Pinger, storage blob.Store, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Storage: storage,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "storage":"ok" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…"}
//
// Storage is informational: "ok", "unavailable", or "disabled".
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Storage:  "disabled",
	}

	if err := h.DB.Ping(ctx); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Storage = ""
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Storage != nil {
		resp.Storage = "ok"
		if _, err := h.Storage.ListBuckets(ctx); err != nil {
			h.Log.Warn("health-check: blob storage unavailable", zap.Error(err))
			resp.Storage = "unavailable"
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
