package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// diversifyPoolFactor widens the candidate pool when diversifying.
const diversifyPoolFactor = 3

// Retriever embeds a query and returns ranked evidence from the vector index.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
}

// NewRetriever creates a retriever.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns up to topK chunks ordered as the index ranked them.
//
// Citation ids S1..Sn are assigned over the index order before any
// diversification, so a diversified result may skip labels. With
// diversify set, topK*3 candidates are fetched and reduced to topK
// unique (doc_id, section) pairs, backfilled by score when short.
func (r *Retriever) Retrieve(
	ctx context.Context, query, namespace string, topK int, diversify bool, filters map[string]string,
) ([]domain.RetrievedChunk, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCapabilityUnavailable, domain.ErrEmbeddingUnavailable)
	}
	if r.index == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCapabilityUnavailable, domain.ErrVectorIndexUnavailable)
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	logger.Debug("Retrieve: namespace=%s top_k=%d diversify=%t filters=%v", namespace, topK, diversify, filters)

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fetch := topK
	if diversify {
		fetch = topK * diversifyPoolFactor
	}
	if len(filters) == 0 {
		filters = nil
	}

	matches, err := r.index.Query(ctx, vector, fetch, namespace, filters)
	if err != nil {
		if errors.Is(err, domain.ErrIndexFailure) {
			return nil, fmt.Errorf("query namespace %q: %w", namespace, err)
		}
		return nil, fmt.Errorf("query namespace %q: %w: %w", namespace, domain.ErrIndexFailure, err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(matches))
	for i, m := range matches {
		metadata := domain.CopyMetadata(m.Metadata)
		chunks = append(chunks, domain.RetrievedChunk{
			CitationID: fmt.Sprintf("S%d", i+1),
			Text:       domain.MetaString(metadata, domain.MetaText),
			Score:      m.Score,
			Metadata:   metadata,
		})
	}

	if diversify {
		chunks = Diversify(chunks, topK)
	} else if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	logger.Info("Retriever returned %d chunks from %s", len(chunks), namespace)
	return chunks, nil
}

// Diversify keeps at most keepK chunks. The first chunk of each
// (doc_id, section) pair is kept in order; when there are fewer than keepK
// unique pairs the highest-ranked remaining chunks fill the gap. The result
// stays in rank order.
func Diversify(chunks []domain.RetrievedChunk, keepK int) []domain.RetrievedChunk {
	if keepK <= 0 {
		return []domain.RetrievedChunk{}
	}
	if len(chunks) <= keepK {
		return chunks
	}

	type pair struct{ docID, section string }

	keep := make([]bool, len(chunks))
	kept := 0
	seen := make(map[pair]bool)

	for i, c := range chunks {
		if kept >= keepK {
			break
		}
		key := pair{c.DocID(), c.Section()}
		if seen[key] {
			continue
		}
		seen[key] = true
		keep[i] = true
		kept++
	}

	for i := range chunks {
		if kept >= keepK {
			break
		}
		if !keep[i] {
			keep[i] = true
			kept++
		}
	}

	selected := make([]domain.RetrievedChunk, 0, kept)
	for i, c := range chunks {
		if keep[i] {
			selected = append(selected, c)
		}
	}
	return selected
}
