package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/souqhub/internal/app/backend/memory"
	"github.com/dalemusser/souqhub/internal/app/features/health"
	"github.com/dalemusser/souqhub/internal/testutil"
	"go.uber.org/zap"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
	Message  string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var out response
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, out
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := health.NewHandler(health.MongoPinger(db.Client()), nil, zap.NewNop())

	rec, resp := serve(t, h)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if resp.Status != "ok" || resp.Database != "connected" || resp.Storage != "disabled" {
		t.Errorf("response = %+v", resp)
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	h := health.NewHandler(pingFunc(func(context.Context) error { return errors.New("no reachable servers") }), nil, zap.NewNop())

	rec, resp := serve(t, h)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if resp.Status != "error" || resp.Message != "Database unavailable" {
		t.Errorf("response = %+v", resp)
	}
}

func TestServe_StorageReported(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })

	_, resp := serve(t, health.NewHandler(ok, memory.NewBlobs("https://blobs.test"), zap.NewNop()))
	if resp.Storage != "ok" {
		t.Errorf("storage = %q", resp.Storage)
	}

	b := memory.New()
	b.Fail(memory.OpStorage, errors.New("denied"))
	rec, resp := serve(t, health.NewHandler(ok, b.NewClient(&memory.Storage{}).Storage(), zap.NewNop()))
	if rec.Code != http.StatusOK || resp.Storage != "unavailable" {
		t.Errorf("got %d %+v", rec.Code, resp)
	}
}
