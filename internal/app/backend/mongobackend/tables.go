package mongobackend

import (
	"context"
	"errors"
	"io"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/blob"
	productstore "github.com/dalemusser/souqhub/internal/app/store/products"
	profilestore "github.com/dalemusser/souqhub/internal/app/store/profiles"
	settingsstore "github.com/dalemusser/souqhub/internal/app/store/settings"
	"github.com/dalemusser/souqhub/internal/domain/models"
)

// Table adapters: each call rejects a dispatch ctx and maps store sentinels to
// backend errors.

type profileTable struct{ store *profilestore.Store }

func mapProfileErr(err error) error {
	if errors.Is(err, profilestore.ErrNotFound) {
		return backend.ErrNotFound
	}
	return err
}

func (t profileTable) Get(ctx context.Context, id string) (models.Profile, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return models.Profile{}, err
	}
	p, err := t.store.Get(ctx, id)
	return p, mapProfileErr(err)
}

func (t profileTable) Insert(ctx context.Context, p models.Profile) error {
	if err := backend.CheckReentrant(ctx); err != nil {
		return err
	}
	return t.store.Insert(ctx, p)
}

func (t profileTable) Update(ctx context.Context, id string, upd models.ProfileUpdate) (models.Profile, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return models.Profile{}, err
	}
	p, err := t.store.Update(ctx, id, upd)
	return p, mapProfileErr(err)
}

func (t profileTable) SetAdmin(ctx context.Context, id string, admin bool) error {
	if err := backend.CheckReentrant(ctx); err != nil {
		return err
	}
	return mapProfileErr(t.store.SetAdmin(ctx, id, admin))
}

func (t profileTable) List(ctx context.Context, limit int64) ([]models.Profile, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	return t.store.List(ctx, limit)
}

func (t profileTable) Count(ctx context.Context) (int64, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return 0, err
	}
	return t.store.Count(ctx)
}

func (t profileTable) CountAdmins(ctx context.Context) (int64, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return 0, err
	}
	return t.store.CountAdmins(ctx)
}

type productTable struct{ store *productstore.Store }

func mapProductErr(err error) error {
	if errors.Is(err, productstore.ErrNotFound) {
		return backend.ErrNotFound
	}
	return err
}

func (t productTable) Get(ctx context.Context, id string) (models.Product, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return models.Product{}, err
	}
	p, err := t.store.Get(ctx, id)
	return p, mapProductErr(err)
}

func (t productTable) Insert(ctx context.Context, p models.Product) (models.Product, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return models.Product{}, err
	}
	return t.store.Insert(ctx, p)
}

func (t productTable) Update(ctx context.Context, p models.Product) error {
	if err := backend.CheckReentrant(ctx); err != nil {
		return err
	}
	return mapProductErr(t.store.Update(ctx, p))
}

func (t productTable) Delete(ctx context.Context, id string) error {
	if err := backend.CheckReentrant(ctx); err != nil {
		return err
	}
	return mapProductErr(t.store.Delete(ctx, id))
}

func (t productTable) TitleContains(ctx context.Context, term string, limit int64) ([]models.ProductSummary, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	return t.store.TitleContains(ctx, term, limit)
}

func (t productTable) Search(ctx context.Context, term string, limit int64) ([]models.Product, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	return t.store.Search(ctx, term, limit)
}

func (t productTable) ListByCategory(ctx context.Context, category string, limit int64) ([]models.Product, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	return t.store.ListByCategory(ctx, category, limit)
}

func (t productTable) ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	return t.store.ListBySeller(ctx, sellerID)
}

func (t productTable) List(ctx context.Context, limit int64) ([]models.Product, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	return t.store.List(ctx, limit)
}

func (t productTable) Count(ctx context.Context) (int64, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return 0, err
	}
	return t.store.Count(ctx)
}

func (t productTable) CountByCategory(ctx context.Context) (map[string]int64, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	return t.store.CountByCategory(ctx)
}

type settingsTable struct{ store *settingsstore.Store }

func (t settingsTable) Get(ctx context.Context, userID string) (models.UserSettings, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return models.UserSettings{}, err
	}
	s, err := t.store.Get(ctx, userID)
	if errors.Is(err, settingsstore.ErrNotFound) {
		return models.UserSettings{}, backend.ErrNotFound
	}
	return s, err
}

func (t settingsTable) Save(ctx context.Context, s models.UserSettings) error {
	if err := backend.CheckReentrant(ctx); err != nil {
		return err
	}
	return t.store.Save(ctx, s)
}

// guardedBlobs rejects storage calls made from inside a dispatch.
type guardedBlobs struct{ blob.Store }

func (g guardedBlobs) ListBuckets(ctx context.Context) ([]blob.Bucket, error) {
	if err := backend.CheckReentrant(ctx); err != nil {
		return nil, err
	}
	return g.Store.ListBuckets(ctx)
}

func (g guardedBlobs) CreateBucket(ctx context.Context, name string, public bool) error {
	if err := backend.CheckReentrant(ctx); err != nil {
		return err
	}
	return g.Store.CreateBucket(ctx, name, public)
}

func (g guardedBlobs) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if err := backend.CheckReentrant(ctx); err != nil {
		return err
	}
	return g.Store.Upload(ctx, bucket, key, r, size, contentType)
}
