package products

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/app/system/limits"
	"github.com/dalemusser/souqhub/internal/domain/models"
)

// ImageKeyPrefix prefixes every uploaded listing image key.
const ImageKeyPrefix = "products"

var errNoStorage = fmt.Errorf("no blob storage configured")

// uploadImage stores fh in the public product-images bucket, creating the
// bucket when it is missing, and returns the image's public URL.
func uploadImage(ctx context.Context, store blob.Store, fh *multipart.FileHeader, now time.Time) (string, error) {
	if store == nil {
		return "", errNoStorage
	}
	if fh.Size > limits.MaxImageSize {
		return "", fmt.Errorf("image is %d bytes, limit is %d", fh.Size, limits.MaxImageSize)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		head := make([]byte, 512)
		n, _ := f.Read(head)
		contentType = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, 0); err != nil {
			return "", fmt.Errorf("rewind upload: %w", err)
		}
	}

	if _, err := blob.EnsureBucket(ctx, store, models.ProductImagesBucket, true); err != nil {
		return "", err
	}
	key := blob.ObjectKey(ImageKeyPrefix, fh.Filename, now)
	if err := store.Upload(ctx, models.ProductImagesBucket, key, f, fh.Size, contentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return store.PublicURL(models.ProductImagesBucket, key), nil
}
