package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/config/values"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory driven.ConfigStore. It backs tests and runs
// where the config file cannot be opened. Typed getters coerce strings, so
// values copied from the environment read as ints and bools.
type ConfigStore struct {
	values.Typed

	mu   sync.RWMutex
	data map[string]any
}

// NewConfigStore creates a store seeded with the given maps, later maps
// overriding earlier ones.
func NewConfigStore(seed ...map[string]any) *ConfigStore {
	s := &ConfigStore{data: make(map[string]any)}
	for _, m := range seed {
		maps.Copy(s.data, m)
	}
	s.Typed = values.Typed{Lookup: s.Get}
	return s
}

// Get returns the raw value for key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

// Save is a no-op.
func (s *ConfigStore) Save() error { return nil }

// Load is a no-op.
func (s *ConfigStore) Load() error { return nil }

// Path reports ":memory:".
func (s *ConfigStore) Path() string { return ":memory:" }
