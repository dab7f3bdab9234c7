// Package memory provides an in-process vector index for tests and
// short-lived runs. Nothing is persisted.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/vector/vecmath"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type namespace struct {
	dim     int
	records map[string]driven.VectorRecord
}

// Index is a brute-force cosine index keyed by namespace.
type Index struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{namespaces: make(map[string]*namespace)}
}

// Upsert inserts or replaces records. The first vector written to a
// namespace fixes its dimension.
func (x *Index) Upsert(ctx context.Context, ns string, records []driven.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	n, ok := x.namespaces[ns]
	if !ok {
		n = &namespace{records: make(map[string]driven.VectorRecord)}
	}

	dim := n.dim
	for _, r := range records {
		if err := vecmath.CheckDimension(ns, dim, len(r.Vector)); err != nil {
			return err
		}
		dim = len(r.Vector)
	}

	for _, r := range records {
		n.records[r.ID] = driven.VectorRecord{
			ID:       r.ID,
			Vector:   append([]float32(nil), r.Vector...),
			Metadata: domain.CopyMetadata(r.Metadata),
		}
	}
	n.dim = dim
	x.namespaces[ns] = n
	return nil
}

// Query scores every record in the namespace. An unknown namespace
// returns no matches.
func (x *Index) Query(
	ctx context.Context, vector []float32, topK int, ns string, filter map[string]string,
) ([]driven.VectorMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	n, ok := x.namespaces[ns]
	if !ok {
		return []driven.VectorMatch{}, nil
	}
	if err := vecmath.CheckDimension(ns, n.dim, len(vector)); err != nil {
		return nil, err
	}

	matches := make([]driven.VectorMatch, 0, len(n.records))
	for _, r := range n.records {
		if !vecmath.MatchesFilter(r.Metadata, filter) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			ID:       r.ID,
			Score:    vecmath.Cosine(vector, r.Vector),
			Metadata: domain.CopyMetadata(r.Metadata),
		})
	}
	return vecmath.Rank(matches, topK), nil
}

// Count returns the number of records in a namespace.
func (x *Index) Count(ns string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if n, ok := x.namespaces[ns]; ok {
		return len(n.records)
	}
	return 0
}

// Close is a no-op.
func (x *Index) Close() error {
	return nil
}
