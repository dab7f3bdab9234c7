// Package hash provides deterministic offline embeddings.
//
// Vectors carry no semantics. They keep indexing and retrieval runnable
// without a model or network, and identical text always maps to the same
// vector.
package hash

import (
	"context"
	"crypto/sha256"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// ModelName is the label reported for hash embeddings.
const ModelName = "deterministic-hash"

// EmbeddingService derives vectors from chained sha256 digests.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hash embedder. A non-positive dimension
// uses domain.DefaultEmbeddingDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns the vector for text: starting from sha256(text), each
// round hashes the previous digest and maps its bytes onto [-1, 1].
func (s *EmbeddingService) Embed(text string) []float32 {
	values := make([]float32, 0, s.dimensions+sha256.Size)
	current := sha256.Sum256([]byte(text))
	for len(values) < s.dimensions {
		current = sha256.Sum256(current[:])
		for _, b := range current {
			values = append(values, float32((float64(b)/255.0)*2.0-1.0))
		}
	}
	return values[:s.dimensions]
}

// EmbedDocuments embeds each text.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.Embed(t)
	}
	return out, nil
}

// EmbedQuery embeds one query string.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Embed(text), nil
}

// Dimensions returns the configured vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns ModelName.
func (s *EmbeddingService) ModelName() string { return ModelName }

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *EmbeddingService) Close() error { return nil }
