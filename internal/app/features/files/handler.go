// internal/app/features/files/handler.go
package files

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Opener opens stored objects in public buckets. *blob.Objects implements it.
type Opener interface {
	OpenPublic(ctx context.Context, bucket, key string) (io.ReadCloser, *storage.ObjectInfo, error)
}

// Handler serves uploaded images kept on the local disk.
type Handler struct {
	Store Opener
	Log   *zap.Logger
}

func NewHandler(store Opener, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Log: logger}
}

// ServeObject handles GET /files/{bucket}/*.
func (h *Handler) ServeObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")
	if bucket == "" || key == "" {
		http.NotFound(w, r)
		return
	}

	rc, info, err := h.Store.OpenPublic(r.Context(), bucket, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrInvalidPath) {
			h.Log.Warn("open stored file failed",
				zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		}
		http.NotFound(w, r)
		return
	}
	defer rc.Close()

	ct := info.ContentType
	if ct == "" {
		ct = storage.DetectContentType(key, nil)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	// Local files seek, so range and conditional requests work.
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(key), info.LastModified, rs)
		return
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Debug("copy stored file failed", zap.String("key", key), zap.Error(err))
	}
}
