// internal/app/features/heartbeat/handler.go
package heartbeat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"go.uber.org/zap"
)

// Toucher records browser activity.
type Toucher interface {
	Touch(ctx context.Context, id, page string) error
}

// Handler serves the page-side session endpoints: activity heartbeats and
// the server-sent event stream that re-evaluates a page's guard.
type Handler struct {
	Browsers Toucher
	Log      *zap.Logger

	// KeepAlive is the interval between SSE comment frames.
	KeepAlive time.Duration
}

// NewHandler creates a new heartbeat handler.
func NewHandler(browsers Toucher, logger *zap.Logger) *Handler {
	return &Handler{
		Browsers:  browsers,
		Log:       logger,
		KeepAlive: 25 * time.Second,
	}
}

// heartbeatRequest is the JSON body for the heartbeat endpoint.
type heartbeatRequest struct {
	Page string `json:"page"`
}

// ServeHeartbeat handles POST /session/heartbeat.
// Records the page the browser is on; the session middleware has already
// refreshed the entry's last-seen time. Always answers 204.
func (h *Handler) ServeHeartbeat(w http.ResponseWriter, r *http.Request) {
	e := auth.FromRequest(r)
	if e == nil {
		w.WriteHeader(http.StatusNoContent) // Silent fail - no browser session
		return
	}

	var req heartbeatRequest
	if r.Body != nil {
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req) // page is optional
	}
	page := strings.TrimSpace(req.Page)
	if !strings.HasPrefix(page, "/") {
		page = ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Browsers.Touch(ctx, e.ID, page); err != nil {
		h.Log.Warn("failed to touch browser session",
			zap.Error(err),
			zap.String("sid", e.ID))
	}
	w.WriteHeader(http.StatusNoContent)
}
