package driven

import (
	"context"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// RecordSource loads transcript records from a dataset or a directory.
type RecordSource interface {
	// Name identifies the source (e.g. "huggingface", "filesystem").
	Name() string

	// Load returns up to limit records. A limit <= 0 means no limit.
	Load(ctx context.Context, limit int) ([]domain.Record, error)
}

// WatchableSource is a RecordSource that can report new or changed records.
type WatchableSource interface {
	RecordSource

	// Watch emits batches of records whenever the underlying data changes.
	// The channel closes when ctx is cancelled.
	Watch(ctx context.Context) (<-chan []domain.Record, error)
}
