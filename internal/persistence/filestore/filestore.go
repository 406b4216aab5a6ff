// Package filestore хранит снимок ledger в JSON-файле.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/persistence"
)

const dirPerm = 0o750

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load(_ context.Context) (*domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore] reading %s: %w: %s", s.path, domain.ErrIO, err.Error())
	}

	var snap domain.Snapshot
	if err = json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("[filestore] parsing %s: %w: %s", s.path, domain.ErrIO, err.Error())
	}
	if snap.IsEmpty() {
		return nil, persistence.ErrEmpty
	}
	return &snap, nil
}

// Save пишет снимок во временный файл рядом с целевым и переименовывает его, так что
// файл всегда содержит целый снимок.
func (s *Store) Save(_ context.Context, snap domain.Snapshot) (err error) {
	dir := filepath.Dir(s.path)
	if mkErr := os.MkdirAll(dir, dirPerm); mkErr != nil {
		return fmt.Errorf("[filestore] creating %s: %w: %s", dir, domain.ErrIO, mkErr.Error())
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("[filestore] creating temp file: %w: %s", domain.ErrIO, err.Error())
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = json.NewEncoder(tmp).Encode(snap); err != nil {
		return fmt.Errorf("[filestore] encoding snapshot: %w: %s", domain.ErrIO, err.Error())
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("[filestore] syncing: %w: %s", domain.ErrIO, err.Error())
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("[filestore] closing: %w: %s", domain.ErrIO, err.Error())
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("[filestore] renaming to %s: %w: %s", s.path, domain.ErrIO, err.Error())
	}
	return nil
}
