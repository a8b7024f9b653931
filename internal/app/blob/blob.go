// Package blob stores listing images in named buckets and hands out public URLs.
//
// Objects implements Store over any pantry storage backend. NewLocal keeps a
// directory per bucket, served by the app under a URL prefix. NewS3 keeps a
// prefix per bucket inside one S3 (or MinIO) bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBucketNotFound is returned when an operation names a missing bucket.
	ErrBucketNotFound = errors.New("blob: bucket not found")
	// ErrBucketExists is returned by CreateBucket when the bucket already exists.
	ErrBucketExists = errors.New("blob: bucket already exists")
	// ErrInvalidName is returned for bucket names or keys that would escape the store.
	ErrInvalidName = errors.New("blob: invalid name")
)

// Bucket describes a storage bucket.
type Bucket struct {
	Name      string
	Public    bool
	CreatedAt time.Time
}

// Store is the blob storage surface used by the application.
type Store interface {
	ListBuckets(ctx context.Context) ([]Bucket, error)
	CreateBucket(ctx context.Context, name string, public bool) error
	Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	PublicURL(bucket, key string) string
}

// EnsureBucket creates bucket name (public when requested) unless it already
// exists. It returns true when the bucket was created by this call.
func EnsureBucket(ctx context.Context, s Store, name string, public bool) (bool, error) {
	buckets, err := s.ListBuckets(ctx)
	if err != nil {
		return false, fmt.Errorf("list buckets: %w", err)
	}
	for _, b := range buckets {
		if b.Name == name {
			return false, nil
		}
	}
	if err := s.CreateBucket(ctx, name, public); err != nil {
		if errors.Is(err, ErrBucketExists) {
			return false, nil
		}
		return false, fmt.Errorf("create bucket %q: %w", name, err)
	}
	return true, nil
}

// ObjectKey builds a unique key of the form prefix/YYYY/MM/xxxxxxxx-filename.
func ObjectKey(prefix, filename string, now time.Time) string {
	now = now.UTC()
	dateDir := fmt.Sprintf("%s/%04d/%02d", prefix, now.Year(), now.Month())
	return path.Join(dateDir, uuid.New().String()[:8]+"-"+SanitizeFilename(filename))
}

// SanitizeFilename removes or replaces characters that could be problematic in keys.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))
	if filename == "." || filename == "/" {
		filename = ""
	}

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		// Truncate but preserve extension if present
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}

// validBucketName follows the S3 rules loosely: 3-63 chars of [a-z0-9.-],
// starting and ending with a letter or digit.
func validBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		alnum := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !alnum && c != '-' && c != '.' {
			return false
		}
		if (i == 0 || i == len(name)-1) && !alnum {
			return false
		}
	}
	return true
}
