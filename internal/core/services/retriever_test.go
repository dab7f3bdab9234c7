package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

func TestRetriever_Retrieve(t *testing.T) {
	index := &mockVectorIndex{matches: []driven.VectorMatch{
		testMatch("c1", "doc-a", "qa", 0.9),
		testMatch("c2", "doc-b", "qa", 0.8),
		testMatch("c3", "doc-c", "discussion", 0.7),
	}}
	embedder := &mockEmbeddingService{}
	r := NewRetriever(embedder, index)

	chunks, err := r.Retrieve(context.Background(), "tesla margins", "ns", 2, false, map[string]string{"company": "Tesla"})
	require.NoError(t, err)

	assert.Equal(t, []string{"tesla margins"}, embedder.queries)
	assert.Equal(t, 2, index.lastTopK)
	assert.Equal(t, "ns", index.lastNS)
	assert.Equal(t, map[string]string{"company": "Tesla"}, index.lastFilter)

	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"S1", "S2"}, citationIDs(chunks))
	assert.Equal(t, "text of c1", chunks[0].Text)
	assert.Equal(t, 0.9, chunks[0].Score)
	assert.Equal(t, "doc-a", chunks[0].DocID())
	assert.Equal(t, "qa", chunks[0].Section())
}

func TestRetriever_Retrieve_DefaultsAndEmptyFilters(t *testing.T) {
	index := &mockVectorIndex{}
	r := NewRetriever(&mockEmbeddingService{}, index)

	chunks, err := r.Retrieve(context.Background(), "q", "ns", 0, false, map[string]string{})
	require.NoError(t, err)

	assert.Empty(t, chunks)
	assert.Equal(t, domain.DefaultTopK, index.lastTopK)
	assert.Nil(t, index.lastFilter)
}

func TestRetriever_Retrieve_Diversify(t *testing.T) {
	index := &mockVectorIndex{matches: []driven.VectorMatch{
		testMatch("c1", "doc-a", "qa", 0.9),
		testMatch("c2", "doc-a", "qa", 0.85),
		testMatch("c3", "doc-b", "qa", 0.8),
		testMatch("c4", "doc-a", "discussion", 0.7),
	}}
	r := NewRetriever(&mockEmbeddingService{}, index)

	chunks, err := r.Retrieve(context.Background(), "q", "ns", 2, true, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, index.lastTopK, "diversify widens the candidate pool")
	// Labels are assigned before diversification, so S2 is skipped.
	assert.Equal(t, []string{"S1", "S3"}, citationIDs(chunks))
}

func TestRetriever_Retrieve_MetadataIsCopied(t *testing.T) {
	match := testMatch("c1", "doc-a", "qa", 0.9)
	index := &mockVectorIndex{matches: []driven.VectorMatch{match}}
	r := NewRetriever(&mockEmbeddingService{}, index)

	chunks, err := r.Retrieve(context.Background(), "q", "ns", 1, false, nil)
	require.NoError(t, err)
	chunks[0].Metadata[domain.MetaCompany] = "changed"

	assert.Equal(t, "Tesla", match.Metadata[domain.MetaCompany])
}

func TestRetriever_Retrieve_Errors(t *testing.T) {
	t.Run("no embedder", func(t *testing.T) {
		_, err := NewRetriever(nil, &mockVectorIndex{}).Retrieve(context.Background(), "q", "ns", 1, false, nil)
		assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("no index", func(t *testing.T) {
		_, err := NewRetriever(&mockEmbeddingService{}, nil).Retrieve(context.Background(), "q", "ns", 1, false, nil)
		assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
		assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
	})

	t.Run("embed failure", func(t *testing.T) {
		embedErr := errors.New("embed down")
		r := NewRetriever(&mockEmbeddingService{embedErr: embedErr}, &mockVectorIndex{})
		_, err := r.Retrieve(context.Background(), "q", "ns", 1, false, nil)
		assert.ErrorIs(t, err, embedErr)
	})

	t.Run("index failure", func(t *testing.T) {
		queryErr := errors.New("connection refused")
		r := NewRetriever(&mockEmbeddingService{}, &mockVectorIndex{queryErr: queryErr})
		_, err := r.Retrieve(context.Background(), "q", "ns", 1, false, nil)
		assert.ErrorIs(t, err, domain.ErrIndexFailure)
		assert.ErrorIs(t, err, queryErr)
	})
}

func TestDiversify(t *testing.T) {
	mixed := []domain.RetrievedChunk{
		testChunk("S1", "a", "qa", 0.9),
		testChunk("S2", "a", "qa", 0.8),
		testChunk("S3", "b", "qa", 0.7),
		testChunk("S4", "a", "qa", 0.6),
		testChunk("S5", "c", "discussion", 0.5),
	}
	same := []domain.RetrievedChunk{
		testChunk("S1", "a", "qa", 0.9),
		testChunk("S2", "a", "qa", 0.8),
		testChunk("S3", "a", "qa", 0.7),
		testChunk("S4", "a", "qa", 0.6),
	}

	tests := []struct {
		name   string
		chunks []domain.RetrievedChunk
		keepK  int
		want   []string
	}{
		{"unique pairs first", mixed, 3, []string{"S1", "S3", "S5"}},
		{"backfill keeps rank order", mixed, 4, []string{"S1", "S2", "S3", "S5"}},
		{"all duplicates backfilled", same, 3, []string{"S1", "S2", "S3"}},
		{"fewer than keep", mixed[:2], 5, []string{"S1", "S2"}},
		{"zero keep", mixed, 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, citationIDs(Diversify(tt.chunks, tt.keepK)))
		})
	}
}
