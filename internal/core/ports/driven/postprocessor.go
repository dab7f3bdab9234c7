package driven

import (
	"context"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// PostProcessor is one stage of the chunking pipeline. The first stage, a
// chunker, receives nil and splits doc; later stages rewrite the chunks
// they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}
