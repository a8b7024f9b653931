package files_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/app/features/files"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

func newServer(t *testing.T) (*blob.Objects, http.Handler) {
	t.Helper()
	l, err := blob.NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return l, files.Routes(files.NewHandler(l, zap.NewNop()))
}

func TestServeObject_PublicBucket(t *testing.T) {
	l, h := newServer(t)
	ctx := context.Background()
	if err := l.CreateBucket(ctx, "product-images", true); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	body := "png-bytes"
	if err := l.Upload(ctx, "product-images", "products/2026/05/ab12cd34-car.png", strings.NewReader(body), int64(len(body)), "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/product-images/products/2026/05/ab12cd34-car.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != body {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestServeObject_PrivateBucketIsHidden(t *testing.T) {
	l, h := newServer(t)
	ctx := context.Background()
	if err := l.CreateBucket(ctx, "private", false); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if err := l.Upload(ctx, "private", "secret.txt", strings.NewReader("x"), 1, "text/plain"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/private/secret.txt", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServeObject_BucketMetadataIsHidden(t *testing.T) {
	l, h := newServer(t)
	if err := l.CreateBucket(context.Background(), "product-images", true); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/product-images/.bucket.json", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServeObject_NonSeekableBackend(t *testing.T) {
	ctx := context.Background()
	o := blob.New(storage.NewMemory(storage.MemoryConfig{BaseURL: "/files"}))
	if err := o.CreateBucket(ctx, "product-images", true); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if err := o.Upload(ctx, "product-images", "a.png", strings.NewReader("abc"), 3, "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	h := files.Routes(files.NewHandler(o, zap.NewNop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/product-images/a.png", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "abc" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if cl := rec.Header().Get("Content-Length"); cl != "3" {
		t.Errorf("Content-Length = %q", cl)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("HEAD", "/product-images/a.png", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD got %d with %d body bytes", rec.Code, rec.Body.Len())
	}
}

func TestServeObject_RangeRequest(t *testing.T) {
	l, h := newServer(t)
	ctx := context.Background()
	if err := l.CreateBucket(ctx, "product-images", true); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if err := l.Upload(ctx, "product-images", "b.png", strings.NewReader("0123456789"), 10, "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	req := httptest.NewRequest("GET", "/product-images/b.png", nil)
	req.Header.Set("Range", "bytes=2-4")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusPartialContent || rec.Body.String() != "234" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}
