package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dalemusser/souqhub/internal/app/backend"
)

// FileStorage keeps the backend session in a JSON file so a sign-in
// survives between souqctl runs.
type FileStorage struct {
	Path string

	mu sync.Mutex
}

var _ backend.SessionStorage = (*FileStorage)(nil)

func (f *FileStorage) Load(context.Context) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var s backend.Session
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt file is treated as signed out.
		return nil, nil
	}
	return &s, nil
}

func (f *FileStorage) Save(_ context.Context, s *backend.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

func (f *FileStorage) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
