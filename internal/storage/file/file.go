// Package file persists ledger entries as one JSON object on local disk,
// the closest analogue of a browser's local storage.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"budgetbook/internal/storage"
)

var (
	_ storage.KeyValueStore = (*Store)(nil)
	_ storage.Pinger        = (*Store)(nil)
)

type Store struct {
	mu   sync.Mutex
	path string
}

// New prepares a store at path, creating the parent directory if needed.
// The file itself is created on first write.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty data file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read(ctx)
	if err != nil {
		return err
	}
	values[key] = value
	return s.write(values)
}

// Ping checks that the data directory is still reachable.
func (s *Store) Ping(context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	return nil
}

// read returns the current entries. A missing file is empty; an unparsable
// file is treated as empty as well and will be replaced on the next write.
func (s *Store) read(ctx context.Context) (map[string]string, error) {
	values := make(map[string]string)
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	if len(b) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(b, &values); err != nil {
		slog.WarnContext(ctx, "Data file is not a JSON object, treating as empty",
			"path", s.path, "error", err)
		return make(map[string]string), nil
	}
	return values, nil
}

// write replaces the file atomically via a temp file and rename.
func (s *Store) write(values map[string]string) error {
	b, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
