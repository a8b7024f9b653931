package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := &FileStorage{Path: filepath.Join(t.TempDir(), "nested", "session.json")}

	got, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "no file means signed out")

	s := &backend.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		User:         backend.User{ID: "u1", Email: "layla@example.com"},
	}
	require.NoError(t, f.Save(ctx, s))

	info, err := os.Stat(f.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err = f.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.Equal(t, "layla@example.com", got.User.Email)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, f.Clear(ctx))
	require.NoError(t, f.Clear(ctx), "clearing twice is fine")
	got, err = f.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStorage_CorruptFileIsSignedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	got, err := (&FileStorage{Path: path}).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}
