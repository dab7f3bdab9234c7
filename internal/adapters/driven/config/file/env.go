package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/config/values"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// Ensure EnvConfigStore implements the interface.
var _ driven.ConfigStore = (*EnvConfigStore)(nil)

// DebugKey is set from DEBUG and read by the CLI to enable verbose output.
const DebugKey = "debug"

// LoadEnv loads KEY=VALUE files into the process environment. Variables
// already set are not overwritten and missing files are skipped. With no
// paths it loads ".env" from the working directory.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// EnvConfigStore overlays environment variables on a ConfigStore. Reads
// prefer the environment; writes go to the underlying store.
type EnvConfigStore struct {
	values.Typed

	base   driven.ConfigStore
	lookup LookupFunc

	mu        sync.RWMutex
	overrides map[string]any
}

// NewEnvConfigStore wraps base. A nil lookup uses os.LookupEnv.
func NewEnvConfigStore(base driven.ConfigStore, lookup LookupFunc) *EnvConfigStore {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	s := &EnvConfigStore{base: base, lookup: lookup}
	s.Typed = values.Typed{Lookup: s.Get}
	s.refresh()
	return s
}

// Overrides returns the config keys currently supplied by the environment.
func (s *EnvConfigStore) Overrides() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

func (s *EnvConfigStore) refresh() {
	overrides := envOverrides(s.lookup, s.base)
	s.mu.Lock()
	s.overrides = overrides
	s.mu.Unlock()
}

// envOverrides maps environment variables onto config keys. Provider keys
// route the shared API key variables: OPENAI_API_KEY serves whichever of
// embedding and llm resolves to openai.
func envOverrides(lookup LookupFunc, base driven.ConfigStore) map[string]any {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}
	out := make(map[string]any)
	setStr := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	setStr("embedding.provider", get("EMBEDDING_PROVIDER"))
	setStr("vector.backend", get("VECTOR_BACKEND"))
	setStr("vector.namespace", get("VECTOR_NAMESPACE"))
	setStr("vector.qdrant_url", get("QDRANT_URL"))
	setStr("vector.qdrant_api_key", get("QDRANT_API_KEY"))
	setStr("vector.mongo_uri", get("MONGODB_URI"))

	if dim, err := strconv.Atoi(get("FALLBACK_EMBEDDING_DIM")); err == nil && dim > 0 {
		out["embedding.dimensions"] = dim
	}
	if debug, err := strconv.ParseBool(get("DEBUG")); err == nil {
		out[DebugKey] = debug
	}

	resolve := func(key string) string {
		if v, ok := out[key].(string); ok {
			return v
		}
		return base.GetString(key)
	}

	openaiKey := get("OPENAI_API_KEY")
	groqKey := get("GROQ_API_KEY")

	embedProvider := resolve("embedding.provider")
	if embedProvider == "" && openaiKey != "" {
		embedProvider = "openai"
		out["embedding.provider"] = embedProvider
	}

	llmProvider := resolve("llm.provider")
	if llmProvider == "" && groqKey != "" {
		llmProvider = "groq"
		out["llm.provider"] = llmProvider
	}

	providerKeys := map[string]string{
		"openai":    openaiKey,
		"groq":      groqKey,
		"anthropic": get("ANTHROPIC_API_KEY"),
		"gemini":    get("GEMINI_API_KEY"),
	}
	setStr("embedding.api_key", providerKeys[embedProvider])
	setStr("llm.api_key", providerKeys[llmProvider])

	switch embedProvider {
	case "openai":
		setStr("embedding.model", get("OPENAI_EMBEDDING_MODEL"))
		setStr("embedding.base_url", get("OPENAI_BASE_URL"))
	}
	switch llmProvider {
	case "openai":
		setStr("llm.model", get("OPENAI_MODEL"))
		setStr("llm.base_url", get("OPENAI_BASE_URL"))
	case "groq":
		setStr("llm.model", get("GROQ_MODEL"))
	}

	return out
}

// Get retrieves a configuration value, preferring the environment.
func (s *EnvConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	val, ok := s.overrides[key]
	s.mu.RUnlock()
	if ok {
		return val, true
	}
	return s.base.Get(key)
}

// Set writes to the underlying store. An environment value for the same
// key still wins on read.
func (s *EnvConfigStore) Set(key string, value any) error {
	return s.base.Set(key, value)
}

// Save persists the underlying store.
func (s *EnvConfigStore) Save() error {
	return s.base.Save()
}

// Load reloads the underlying store and re-reads the environment.
func (s *EnvConfigStore) Load() error {
	if err := s.base.Load(); err != nil {
		return err
	}
	s.refresh()
	return nil
}

// Path returns the underlying configuration file path.
func (s *EnvConfigStore) Path() string {
	return s.base.Path()
}
