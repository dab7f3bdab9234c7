package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// promptVerbs is the number of %s verbs each formatted prompt must keep.
// An edited file that changes the count is ignored in favour of the default.
var promptVerbs = map[string]int{
	driven.PromptSynthesisUser: 2,
}

const promptReadme = `# earnings-rag prompts

Editable prompt templates used by the router and the answer synthesizer.

- router_system.txt: classifies a query as retrieve, clarify or direct
- synthesis_system.txt: grounded answer instructions with citation ids
- synthesis_user.txt: the question, then the labelled sources
- direct_system.txt: conceptual answers without retrieval

synthesis_user.txt must keep exactly two %s verbs (question, then sources);
otherwise the built-in template is used. Edits apply on the next command.
`

// PromptStore serves prompt templates from <dir>/<name>.txt. Missing
// files are written from the defaults on first Load; unreadable or invalid
// files fall back to the defaults.
type PromptStore struct {
	dir      string
	defaults map[string]string

	prepare    sync.Once
	prepareErr error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store over dir, or ~/.earnings-rag/prompts when
// dir is empty. It does no I/O.
func NewPromptStore(dir string, defaults map[string]string) (*PromptStore, error) {
	if dir == "" {
		root, err := DefaultConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(root, "prompts")
	}

	own := make(map[string]string, len(defaults))
	for k, v := range defaults {
		own[k] = v
	}
	return &PromptStore{dir: dir, defaults: own, cache: make(map[string]string)}, nil
}

// Load returns the template called name.
func (s *PromptStore) Load(name string) (string, error) {
	s.prepare.Do(s.seed)

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// resolve reads the file for name and applies the default fallbacks.
func (s *PromptStore) resolve(name string) (string, error) {
	fallback, hasDefault := s.defaults[name]

	if s.prepareErr != nil {
		if hasDefault {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.prepareErr)
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if hasDefault {
			return fallback, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	prompt := strings.TrimSpace(string(data))
	if want, ok := promptVerbs[name]; ok && hasDefault {
		if got := strings.Count(prompt, "%s"); got != want {
			logger.Warn("prompt %s has %d %%s verbs, want %d; using built-in template", name, got, want)
			return fallback, nil
		}
	}
	return prompt, nil
}

// Reload drops cached templates so the next Load reads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed creates the directory, the default files and a README, leaving
// existing files untouched.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.prepareErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	files := map[string]string{filepath.Join(s.dir, "README.md"): promptReadme}
	for name, content := range s.defaults {
		files[s.path(name)] = content
	}
	for path, content := range files {
		if err := writeIfMissing(path, content); err != nil {
			s.prepareErr = fmt.Errorf("create %s: %w", filepath.Base(path), err)
			return
		}
	}
}

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
