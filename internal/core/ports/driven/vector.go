package driven

import "context"

// VectorIndex stores embeddings per namespace and answers nearest-neighbour queries.
// Upserts are idempotent: a record with an existing ID overwrites it.
type VectorIndex interface {
	// Upsert inserts or replaces records in the namespace.
	Upsert(ctx context.Context, namespace string, records []VectorRecord) error

	// Query returns up to topK matches ordered by descending score.
	// Every filter key must equal the record's metadata value.
	Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string) ([]VectorMatch, error)

	// Close releases resources.
	Close() error
}

// VectorRecord is one vector with the metadata needed to rebuild a
// RetrievedChunk without a second lookup.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// VectorMatch represents a similarity search result.
type VectorMatch struct {
	ID string

	// Score is the cosine similarity (-1 to 1).
	Score float64

	Metadata map[string]any
}
