// Package huggingface loads earnings-call QA rows from the HuggingFace
// datasets-server REST API and canonicalises them into records.
package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/custodia-labs/earnings-rag/internal/connectors"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/logger"
	"github.com/custodia-labs/earnings-rag/internal/normalisers/transcript"
)

const (
	// DefaultBaseURL is the public datasets-server endpoint.
	DefaultBaseURL = "https://datasets-server.huggingface.co"

	// DefaultSplit is the dataset split loaded when none is set.
	DefaultSplit = "train"

	// PageSize is the maximum rows the API returns per request.
	PageSize = 100

	// SmallModeLimit caps records in small mode when no limit is given.
	SmallModeLimit = 100

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// Mode selects how many rows are fetched.
type Mode string

// Available load modes.
const (
	// ModeSmall loads at most SmallModeLimit rows for quick iteration.
	ModeSmall Mode = "small"

	// ModeFull pages through the whole split unless a limit is given.
	ModeFull Mode = "full"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSmall, ModeFull:
		return Mode(s), nil
	case "":
		return ModeSmall, nil
	default:
		return "", fmt.Errorf("%w: mode must be either 'small' or 'full', got %q", domain.ErrInvalidInput, s)
	}
}

// Ensure Loader implements the interface.
var _ driven.RecordSource = (*Loader)(nil)

// Loader fetches dataset rows page by page.
type Loader struct {
	baseURL string
	dataset string
	config  string
	split   string
	mode    Mode
	client  *http.Client
	limiter *connectors.Throttle
}

// Option configures the loader.
type Option func(*Loader)

// WithBaseURL overrides the datasets-server endpoint.
func WithBaseURL(u string) Option {
	return func(l *Loader) { l.baseURL = u }
}

// WithDataset sets the dataset path and split.
func WithDataset(dataset, split string) Option {
	return func(l *Loader) {
		if dataset != "" {
			l.dataset = dataset
		}
		if split != "" {
			l.split = split
		}
	}
}

// WithMode sets the load mode.
func WithMode(m Mode) Option {
	return func(l *Loader) { l.mode = m }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithRate sets the request rate.
func WithRate(r connectors.Rate) Option {
	return func(l *Loader) { l.limiter = connectors.NewThrottle(r) }
}

// New creates a loader for lamini/earnings-calls-qa in small mode.
func New(opts ...Option) *Loader {
	l := &Loader{
		baseURL: DefaultBaseURL,
		dataset: transcript.DefaultDataset,
		config:  "default",
		split:   DefaultSplit,
		mode:    ModeSmall,
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: connectors.NewThrottle(connectors.DefaultRate),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the source name.
func (l *Loader) Name() string {
	return "huggingface"
}

// Split returns the dataset split the loader reads.
func (l *Loader) Split() string {
	return l.split
}

// Load returns canonical records. If the dataset cannot be fetched the
// loader logs a warning and returns a single demo record so offline runs
// still have something to index.
func (l *Loader) Load(ctx context.Context, limit int) ([]domain.Record, error) {
	records, err := l.Fetch(ctx, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Failed to load HuggingFace dataset %s; using a tiny fallback sample: %v", l.dataset, err)
		return DemoRecords(), nil
	}
	return records, nil
}

// Fetch pages through the dataset and canonicalises every row.
func (l *Loader) Fetch(ctx context.Context, limit int) ([]domain.Record, error) {
	if limit <= 0 && l.mode == ModeSmall {
		limit = SmallModeLimit
	}

	logger.Info("Loading dataset %s split %s (mode %s, limit %d)", l.dataset, l.split, l.mode, limit)

	var records []domain.Record
	offset := 0
	for {
		length := PageSize
		if limit > 0 && limit-len(records) < length {
			length = limit - len(records)
		}
		if length <= 0 {
			break
		}

		page, err := l.fetchPage(ctx, offset, length)
		if err != nil {
			return nil, err
		}

		for _, r := range page.Rows {
			row, err := transcript.DecodeRow(r.Row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", r.RowIdx, err)
			}
			rec := transcript.CanonicalizeRow(row, r.RowIdx, l.dataset)
			if rec.Question == "" || rec.Answer == "" {
				logger.Debug("Row %d missing question/answer fields after normalization (%s)", r.RowIdx, rec.DocID)
			}
			records = append(records, rec)
		}

		offset += len(page.Rows)
		if len(page.Rows) < length || (page.NumRowsTotal > 0 && offset >= page.NumRowsTotal) {
			break
		}
	}

	logger.Info("Loaded %d canonical records", len(records))
	return records, nil
}

type rowsResponse struct {
	Rows []struct {
		RowIdx int             `json:"row_idx"`
		Row    json.RawMessage `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

func (l *Loader) fetchPage(ctx context.Context, offset, length int) (*rowsResponse, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("dataset", l.dataset)
	q.Set("config", l.config)
	q.Set("split", l.split)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("length", strconv.Itoa(length))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/rows?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		l.limiter.Pause(time.Duration(secs) * time.Second)
		return nil, fmt.Errorf("datasets-server rate limited (offset %d)", offset)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("datasets-server returned status %d", resp.StatusCode)
	}

	var page rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return &page, nil
}

// DemoRecords returns the one-row sample used when the dataset is unreachable.
func DemoRecords() []domain.Record {
	row := map[string]any{
		"question":   "What was management's outlook?",
		"answer":     "Management expected moderate growth next quarter.",
		"transcript": "Operator: We now discuss guidance. CFO: We expect moderate growth.",
		"ticker":     "DEMO",
	}
	return []domain.Record{transcript.CanonicalizeRow(row, 0, transcript.DefaultDataset)}
}
