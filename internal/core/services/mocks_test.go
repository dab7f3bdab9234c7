package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockLLMService implements driven.LLMService for testing.
// Replies are returned in order; the last reply repeats.
type mockLLMService struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]driven.ChatMessage
	opts    []driven.ChatOptions
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, messages)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockLLMService) ModelName() string { return "mock-llm" }

func (m *mockLLMService) Ping(_ context.Context) error { return nil }

func (m *mockLLMService) Close() error { return nil }

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	dims     int
	embedErr error
	queries  []string
	batches  [][]string
	short    bool
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	dims := m.dims
	if dims == 0 {
		dims = 4
	}
	v := make([]float32, dims)
	v[len(text)%dims] = 1
	return v
}

func (m *mockEmbeddingService) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.batches = append(m.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingService) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.queries = append(m.queries, text)
	return m.vector(text), nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 4
}

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }

func (m *mockEmbeddingService) Close() error { return nil }

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	matches   []driven.VectorMatch
	queryErr  error
	upsertErr error

	upserts    map[string][]driven.VectorRecord
	lastTopK   int
	lastNS     string
	lastFilter map[string]string
}

func (m *mockVectorIndex) Upsert(_ context.Context, namespace string, records []driven.VectorRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.upserts == nil {
		m.upserts = make(map[string][]driven.VectorRecord)
	}
	m.upserts[namespace] = append(m.upserts[namespace], records...)
	return nil
}

func (m *mockVectorIndex) Query(
	_ context.Context, _ []float32, topK int, namespace string, filter map[string]string,
) ([]driven.VectorMatch, error) {
	m.lastTopK = topK
	m.lastNS = namespace
	m.lastFilter = filter
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if topK < len(m.matches) {
		return m.matches[:topK], nil
	}
	return m.matches, nil
}

func (m *mockVectorIndex) Close() error { return nil }

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// --- Test helpers ---

func testMatch(id, docID, section string, score float64) driven.VectorMatch {
	return driven.VectorMatch{
		ID:    docID + ":" + id,
		Score: score,
		Metadata: map[string]any{
			domain.MetaDocID:   docID,
			domain.MetaChunkID: id,
			domain.MetaSection: section,
			domain.MetaCompany: "Tesla",
			domain.MetaSource:  "transcripts",
			domain.MetaText:    "text of " + id,
		},
	}
}

func testChunk(citation, docID, section string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		CitationID: citation,
		Text:       "evidence " + citation,
		Score:      score,
		Metadata: map[string]any{
			domain.MetaDocID:   docID,
			domain.MetaSection: section,
			domain.MetaCompany: "Apple",
			domain.MetaSource:  "transcripts",
		},
	}
}

func citationIDs(chunks []domain.RetrievedChunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.CitationID
	}
	return ids
}
