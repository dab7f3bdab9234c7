// Package filesystem loads transcript records from a local directory and
// watches it for new or changed files.
package filesystem

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/logger"
	"github.com/custodia-labs/earnings-rag/internal/normalisers/transcript"
)

// DatasetName is recorded as source_dataset on every filesystem record.
const DatasetName = "filesystem"

// DefaultDebounce is how long a file must be quiet before it is reloaded.
const DefaultDebounce = 300 * time.Millisecond

// maxLineSize bounds a single JSONL row.
const maxLineSize = 16 * 1024 * 1024

// Supported file extensions.
var supportedExts = map[string]bool{
	".jsonl": true,
	".json":  true,
	".txt":   true,
	".md":    true,
	".html":  true,
	".htm":   true,
}

// Ensure Source implements the interfaces.
var (
	_ driven.RecordSource    = (*Source)(nil)
	_ driven.WatchableSource = (*Source)(nil)
)

// Source reads *.jsonl, *.json, *.txt, *.md and *.html files under a root.
type Source struct {
	root     string
	debounce time.Duration

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// Option configures the source.
type Option func(*Source)

// WithDebounce sets the quiet period before a changed file is reloaded.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// New creates a filesystem source rooted at root.
func New(root string, opts ...Option) *Source {
	s := &Source{root: root, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the source name.
func (s *Source) Name() string {
	return "filesystem"
}

// Root returns the directory being read.
func (s *Source) Root() string {
	return s.root
}

// Load walks the root in lexical order and returns up to limit records.
// A limit <= 0 means no limit.
func (s *Source) Load(ctx context.Context, limit int) ([]domain.Record, error) {
	if err := s.validateRoot(); err != nil {
		return nil, err
	}

	var records []domain.Record
	errStop := errors.New("limit reached")

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if path != s.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isSupported(path) {
			return nil
		}

		recs, err := s.loadFile(path)
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			return nil
		}
		records = append(records, recs...)

		if limit > 0 && len(records) >= limit {
			records = records[:limit]
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}

	logger.Info("Loaded %d records from %s", len(records), s.root)
	return records, nil
}

// Watch reports records from files created or written under the root.
// Changes to one file are debounced; removals are logged and ignored.
// The channel closes when ctx is cancelled or the source is closed.
func (s *Source) Watch(ctx context.Context) (<-chan []domain.Record, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("source is closed")
	}
	s.mu.Unlock()

	if err := s.validateRoot(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addRecursive(w, s.root); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", s.root, err)
	}

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	out := make(chan []domain.Record)
	go s.run(ctx, w, out)
	return out, nil
}

// run turns fsnotify events into debounced record batches.
func (s *Source) run(ctx context.Context, w *fsnotify.Watcher, out chan<- []domain.Record) {
	defer close(out)
	defer w.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(s.debounce/3, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
					if err := addRecursive(w, event.Name); err != nil {
						logger.Warn("Failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if path := s.handleFsEvent(event); path != "" {
				pending[path] = time.Now()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)

		case now := <-ticker.C:
			var ready []string
			for path, changed := range pending {
				if now.Sub(changed) >= s.debounce {
					ready = append(ready, path)
					delete(pending, path)
				}
			}
			for _, path := range ready {
				recs, err := s.loadFile(path)
				if err != nil {
					logger.Warn("Failed to reload %s: %v", path, err)
					continue
				}
				if len(recs) == 0 {
					continue
				}
				logger.Debug("Reloaded %d records from %s", len(recs), path)
				select {
				case out <- recs:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleFsEvent returns the file to reload for an event, or "" when the
// event does not produce records.
func (s *Source) handleFsEvent(event fsnotify.Event) string {
	if isHidden(filepath.Base(event.Name)) || !isSupported(event.Name) {
		return ""
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		logger.Debug("Ignoring removal of %s", event.Name)
		return ""
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return ""
	}

	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return ""
	}
	return event.Name
}

// Close stops any running watch.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}

// ErrUnsupportedFile is returned by LoadFile for extensions the source skips.
var ErrUnsupportedFile = errors.New("unsupported file type")

// LoadFile reads a single file into records, relative to its own directory.
func LoadFile(path string) ([]domain.Record, error) {
	if !isSupported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	}
	return New(filepath.Dir(path)).loadFile(path)
}

func (s *Source) validateRoot() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", s.root)
	}
	return nil
}

// loadFile reads one file into records. Structured files yield one record
// per row; text files yield a single record whose source is the file path.
func (s *Source) loadFile(path string) ([]domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return loadJSONL(data, rel)
	case ".json":
		return loadJSON(data, rel)
	case ".md":
		return textRecord(transcript.FromMarkdown(string(data)), rel), nil
	case ".html", ".htm":
		return textRecord(transcript.FromHTML(string(data)), rel), nil
	default:
		return textRecord(string(data), rel), nil
	}
}

func loadJSONL(data []byte, rel string) ([]domain.Record, error) {
	var records []domain.Record

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		row, err := transcript.DecodeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		records = append(records, rowRecord(row, line, rel))
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func loadJSON(data []byte, rel string) ([]domain.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] != '[' {
		row, err := transcript.DecodeRow(trimmed)
		if err != nil {
			return nil, err
		}
		return []domain.Record{rowRecord(row, 0, rel)}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	records := make([]domain.Record, 0, len(raws))
	for i, raw := range raws {
		row, err := transcript.DecodeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, rowRecord(row, i, rel))
	}
	return records, nil
}

// rowRecord canonicalises a structured row, defaulting source to the file.
func rowRecord(row map[string]any, index int, rel string) domain.Record {
	if _, ok := row[domain.MetaSource]; !ok {
		row[domain.MetaSource] = rel
	}
	return transcript.CanonicalizeRow(row, index, DatasetName)
}

func textRecord(text, rel string) []domain.Record {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	row := map[string]any{
		"text":            text,
		domain.MetaSource: rel,
		"title":           strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)),
	}
	return []domain.Record{transcript.CanonicalizeRow(row, 0, DatasetName)}
}

func addRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func isSupported(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

// isHidden reports whether a file or directory name starts with a dot.
// "." and ".." are not hidden.
func isHidden(name string) bool {
	return name != "." && name != ".." && strings.HasPrefix(name, ".")
}
