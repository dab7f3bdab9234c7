package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/config/values"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigDirName is the per-user directory under $HOME.
const ConfigDirName = ".earnings-rag"

const configFileName = "config.toml"

// ConfigStore keeps config.toml as flat dot keys ("llm.provider") in
// memory and writes it back as nested tables.
type ConfigStore struct {
	values.Typed

	mu   sync.RWMutex
	path string
	data map[string]any
}

// DefaultConfigDir returns ~/.earnings-rag.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDirName), nil
}

// NewConfigStore opens <configDir>/config.toml, creating the directory.
// An empty configDir means DefaultConfigDir. A missing file is an empty
// configuration; a malformed one is an error.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, err
	}

	s := &ConfigStore{path: filepath.Join(configDir, configFileName)}
	s.Typed = values.Typed{Lookup: s.Get}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the raw value for key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.write()
}

// Save rewrites the file from memory.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// write replaces the file through a temporary sibling so a crash never
// leaves a truncated config. Callers hold mu.
func (s *ConfigStore) write() error {
	encoded, err := toml.Marshal(nestMap(s.data))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), configFileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load replaces the in-memory values with the file contents.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.data = make(map[string]any)
		return nil
	}
	if err != nil {
		return err
	}

	var tables map[string]any
	if err := toml.Unmarshal(raw, &tables); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}
	s.data = flattenMap(tables, "")
	return nil
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.path
}

// flattenMap turns {"a": {"b": 1}} into {"a.b": 1}.
func flattenMap(tables map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	for key, v := range tables {
		if prefix != "" {
			key = prefix + "." + key
		}
		nested, ok := v.(map[string]any)
		if !ok {
			flat[key] = v
			continue
		}
		for k, nv := range flattenMap(nested, key) {
			flat[k] = nv
		}
	}
	return flat
}

// nestMap is the inverse of flattenMap. Keys are visited in sorted order so
// a scalar that collides with a table prefix wins deterministically.
func nestMap(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		if table := descend(root, parts[:len(parts)-1]); table != nil {
			leaf := parts[len(parts)-1]
			if _, isTable := table[leaf].(map[string]any); !isTable {
				table[leaf] = flat[key]
			}
		}
	}
	return root
}

// descend walks to the table at path, creating tables on the way. It
// returns nil when a scalar already occupies part of the path.
func descend(root map[string]any, path []string) map[string]any {
	table := root
	for _, part := range path {
		existing, ok := table[part]
		if !ok {
			next := make(map[string]any)
			table[part] = next
			table = next
			continue
		}
		next, isTable := existing.(map[string]any)
		if !isTable {
			return nil
		}
		table = next
	}
	return table
}
