package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// Split chunks documents with the strategy named in params.
// Parameters are validated before any document is processed; the output
// is deterministic for identical documents and parameters.
func (r *Registry) Split(ctx context.Context, docs []domain.Document, params domain.ChunkParams) ([]domain.Chunk, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	processor, err := r.processor(params)
	if err != nil {
		return nil, err
	}

	var out []domain.Chunk
	for i := range docs {
		chunks, err := processor.Process(ctx, &docs[i], nil)
		if err != nil {
			return nil, fmt.Errorf("processor %s: document %s: %w", processor.Name(), docs[i].DocID(), err)
		}
		out = append(out, chunks...)
	}

	logger.Debug("%s chunking: %d documents -> %d chunks", processor.Name(), len(docs), len(out))
	return out, nil
}

// Split chunks documents using the built-in strategies.
func Split(ctx context.Context, docs []domain.Document, params domain.ChunkParams) ([]domain.Chunk, error) {
	return DefaultRegistry().Split(ctx, docs, params)
}
