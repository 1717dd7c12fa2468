package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"budgetbook/internal/storage"
)

// Ensure interface conformance
var (
	_ storage.KeyValueStore = (*Store)(nil)
	_ storage.Pinger        = (*Store)(nil)
)

// Store keeps entries in process memory; everything is lost on exit.
type Store struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func New() *Store {
	return &Store{values: make(map[string]string)}
}

// NewWithValues seeds the store, e.g. with entries exported from a browser.
func NewWithValues(seed map[string]string) *Store {
	s := New()
	for k, v := range seed {
		s.values[k] = v
	}
	return s
}

// NewFromFile seeds the store from a JSON object of entries, the format the
// file backend writes. A missing or unparsable file yields an empty store;
// nothing is ever written back.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed map[string]string
	if err := json.Unmarshal(b, &seed); err != nil {
		slog.Warn("Seed file is not a JSON object, starting empty", "path", path, "error", err)
		return New(), nil
	}
	return NewWithValues(seed), nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.writes++
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// Writes reports how many Set calls the store has served.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
