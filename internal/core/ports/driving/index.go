package driving

import (
	"context"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// IndexService chunks, embeds and upserts transcript records.
type IndexService interface {
	// Index processes records into the namespace using the given chunking parameters.
	Index(ctx context.Context, records []domain.Record, namespace string, params domain.ChunkParams) (*domain.IndexSummary, error)

	// Chunk splits records into chunks without embedding them.
	Chunk(ctx context.Context, records []domain.Record, params domain.ChunkParams) ([]domain.Chunk, error)
}
