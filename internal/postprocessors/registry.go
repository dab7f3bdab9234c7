// Package postprocessors turns normalised documents into chunks. The
// chunker subpackage holds the strategies; Registry picks one per call.
package postprocessors

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/postprocessors/chunker"
)

// Builder makes a chunker for already validated parameters.
type Builder func(params domain.ChunkParams) (driven.PostProcessor, error)

// Registry maps split strategies to chunker builders. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builders map[domain.SplitStrategy]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[domain.SplitStrategy]Builder)}
}

// DefaultRegistry knows the baseline and structure-aware chunkers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.SplitBaseline, func(p domain.ChunkParams) (driven.PostProcessor, error) {
		return chunker.NewUniform(p.Size, p.Overlap)
	})
	r.Register(domain.SplitStructureAware, func(p domain.ChunkParams) (driven.PostProcessor, error) {
		return chunker.NewStructureAware(p.Size, p.Overlap)
	})
	return r
}

// Register binds strategy to b, replacing any earlier builder.
func (r *Registry) Register(strategy domain.SplitStrategy, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[strategy] = b
}

// Strategies lists the registered strategies in name order.
func (r *Registry) Strategies() []domain.SplitStrategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.builders))
}

func (r *Registry) processor(params domain.ChunkParams) (driven.PostProcessor, error) {
	r.mu.RLock()
	b, ok := r.builders[params.Strategy]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown split strategy %q", domain.ErrInvalidParameters, params.Strategy)
	}
	return b(params)
}
