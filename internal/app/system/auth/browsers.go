package auth

import (
	"context"
	"errors"

	"github.com/dalemusser/souqhub/internal/app/backend"
	browserstore "github.com/dalemusser/souqhub/internal/app/store/sessions"
)

// StoreBrowsers keeps browser sessions in the browser_sessions collection.
type StoreBrowsers struct {
	Store *browserstore.Store
}

func (b StoreBrowsers) Open(ctx context.Context, ip, userAgent string) (string, error) {
	s, err := b.Store.Create(ctx, ip, userAgent)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

func (b StoreBrowsers) Exists(ctx context.Context, id string) (bool, error) {
	_, err := b.Store.GetOpen(ctx, id)
	if errors.Is(err, browserstore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (b StoreBrowsers) Touch(ctx context.Context, id, page string) error {
	_, err := b.Store.Touch(ctx, id, page)
	return err
}

func (b StoreBrowsers) Storage(id string) backend.SessionStorage {
	return b.Store.Storage(id)
}
