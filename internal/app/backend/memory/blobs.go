package memory

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/waffle/pantry/storage"
)

// Object is an uploaded blob.
type Object struct {
	Data        []byte
	ContentType string
}

// Blobs is a blob.Store kept in process memory.
type Blobs struct {
	*blob.Objects
	mem *storage.Memory
}

// NewBlobs returns an empty store whose public URLs start with baseURL.
func NewBlobs(baseURL string) *Blobs {
	mem := storage.NewMemory(storage.MemoryConfig{BaseURL: strings.TrimRight(baseURL, "/")})
	return &Blobs{Objects: blob.New(mem), mem: mem}
}

var _ blob.Store = (*Blobs)(nil)

// Object returns a stored object.
func (s *Blobs) Object(bucket, key string) (Object, bool) {
	rc, info, err := s.mem.GetWithInfo(context.Background(), bucket+"/"+key)
	if err != nil {
		return Object{}, false
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Object{}, false
	}
	return Object{Data: data, ContentType: info.ContentType}, true
}

// Keys lists the object keys stored in bucket.
func (s *Blobs) Keys(bucket string) []string {
	res, err := s.mem.List(context.Background(), bucket+"/", nil)
	if err != nil {
		return nil
	}
	var out []string
	prefix := bucket + "/"
	for _, o := range res.Objects {
		k := strings.TrimPrefix(o.Path, prefix)
		if k == ".bucket.json" {
			continue
		}
		out = append(out, k)
	}
	return out
}

// storageTable routes a client's storage calls through its checks.
type storageTable struct{ c *Client }

func (t storageTable) ListBuckets(ctx context.Context) ([]blob.Bucket, error) {
	if err := t.c.enter(ctx, OpStorage); err != nil {
		return nil, err
	}
	return t.c.b.blobStore.ListBuckets(ctx)
}

func (t storageTable) CreateBucket(ctx context.Context, name string, public bool) error {
	if err := t.c.enter(ctx, OpStorage); err != nil {
		return err
	}
	return t.c.b.blobStore.CreateBucket(ctx, name, public)
}

func (t storageTable) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if err := t.c.enter(ctx, OpStorage); err != nil {
		return err
	}
	return t.c.b.blobStore.Upload(ctx, bucket, key, r, size, contentType)
}

func (t storageTable) PublicURL(bucket, key string) string {
	return t.c.b.blobStore.PublicURL(bucket, key)
}

// Storage is an in-memory backend.SessionStorage.
type Storage struct {
	mu sync.Mutex
	s  *backend.Session
}

func (m *Storage) Load(context.Context) (*backend.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.s), nil
}

func (m *Storage) Save(_ context.Context, s *backend.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = copySession(s)
	return nil
}

func (m *Storage) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}
