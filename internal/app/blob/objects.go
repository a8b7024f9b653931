package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
)

// bucketMetaFile marks a top-level prefix as a bucket and records its visibility.
const bucketMetaFile = ".bucket.json"

type bucketMeta struct {
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// Objects is a Store over a pantry storage backend. Each bucket is a
// top-level prefix holding a .bucket.json marker.
type Objects struct {
	store storage.Store
	now   func() time.Time
}

// New wraps store.
func New(store storage.Store) *Objects {
	return &Objects{store: store, now: time.Now}
}

// NewLocal returns a Store rooted at the directory root whose public URLs
// start with baseURL. The directory is created if it does not exist.
func NewLocal(root, baseURL string) (*Objects, error) {
	l, err := storage.NewLocal(storage.LocalConfig{BasePath: root, BaseURL: baseURL})
	if err != nil {
		return nil, err
	}
	return New(l), nil
}

// Backend reports the underlying backend ("local", "s3", "memory").
func (o *Objects) Backend() string { return o.store.Backend() }

func (o *Objects) ListBuckets(ctx context.Context) ([]Bucket, error) {
	res, err := o.store.List(ctx, "", &storage.ListOptions{Delimiter: "/"})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	out := make([]Bucket, 0, len(res.CommonPrefixes))
	for _, p := range res.CommonPrefixes {
		name := strings.TrimSuffix(p, "/")
		meta, err := o.readMeta(ctx, name)
		if err != nil {
			// Prefixes without a marker are not buckets.
			continue
		}
		out = append(out, Bucket{Name: name, Public: meta.Public, CreatedAt: meta.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (o *Objects) CreateBucket(ctx context.Context, name string, public bool) error {
	if !validBucketName(name) {
		return ErrInvalidName
	}
	b, err := json.Marshal(bucketMeta{Public: public, CreatedAt: o.now().UTC()})
	if err != nil {
		return err
	}
	err = o.store.PutBytes(ctx, name+"/"+bucketMetaFile, b, &storage.PutOptions{
		ContentType: "application/json",
		IfNotExists: true,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return ErrBucketExists
	}
	return err
}

func (o *Objects) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	meta, err := o.readMeta(ctx, bucket)
	if err != nil {
		return err
	}
	p, err := objectPath(bucket, key)
	if err != nil {
		return err
	}
	opts := &storage.PutOptions{ContentType: contentType}
	if meta.Public {
		opts.ACL = "public-read"
	}
	return o.store.Put(ctx, p, r, opts)
}

func (o *Objects) PublicURL(bucket, key string) string {
	return o.store.URL(bucket + "/" + strings.TrimLeft(key, "/"))
}

// OpenPublic returns an object stored in a public bucket along with its
// metadata. Objects in private buckets and bucket markers report
// storage.ErrNotFound.
func (o *Objects) OpenPublic(ctx context.Context, bucket, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	meta, err := o.readMeta(ctx, bucket)
	if err != nil || !meta.Public {
		return nil, nil, storage.ErrNotFound
	}
	p, err := objectPath(bucket, key)
	if err != nil {
		return nil, nil, storage.ErrNotFound
	}
	return o.store.GetWithInfo(ctx, p)
}

func (o *Objects) readMeta(ctx context.Context, bucket string) (bucketMeta, error) {
	var meta bucketMeta
	if !validBucketName(bucket) {
		return meta, ErrInvalidName
	}
	b, err := o.store.GetBytes(ctx, bucket+"/"+bucketMetaFile)
	if errors.Is(err, storage.ErrNotFound) {
		return meta, ErrBucketNotFound
	}
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return meta, fmt.Errorf("bucket %q marker: %w", bucket, err)
	}
	return meta, nil
}

// objectPath clamps key inside bucket and keeps the marker out of reach.
func objectPath(bucket, key string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "" || clean == bucketMetaFile {
		return "", ErrInvalidName
	}
	return bucket + "/" + clean, nil
}
