package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

func evalRecords() []domain.Record {
	return []domain.Record{
		{DocID: "d1", Question: "How did revenue do?", Answer: "Revenue grew.", Text: "Revenue grew strongly."},
		{DocID: "d2", Question: "", Answer: "skipped", Text: "no question"},
		{DocID: "d3", Question: "What about margins?", Answer: "Margins were flat.", Text: "Margins were flat."},
	}
}

func newTestEvaluator(llm driven.LLMService, index *mockVectorIndex, opts ...EvalOption) *Evaluator {
	embedder := &mockEmbeddingService{}
	indexer := newTestIndexer(embedder, index)
	return NewEvaluator(indexer, NewRetriever(embedder, index), NewSynthesizer(llm, nil), opts...)
}

func TestEvaluator_Run(t *testing.T) {
	index := &mockVectorIndex{matches: []driven.VectorMatch{testMatch("c1", "d1", "qa", 0.9)}}
	llm := &mockLLMService{replies: []string{`{"answer":"Revenue grew [S1].","citation_ids":["S1"]}`}}
	exp := domain.Experiment{Name: "improved", Strategy: domain.SplitStructureAware, TopK: 4, Diversify: true, NamespaceSuffix: "v2"}

	summary, err := newTestEvaluator(llm, index, WithBaseNamespace("calls")).Run(context.Background(), exp, evalRecords())
	require.NoError(t, err)

	assert.Equal(t, "calls-v2", summary.Namespace)
	assert.NotEmpty(t, index.upserts["calls-v2"], "experiment namespace is indexed first")
	assert.Equal(t, 3, summary.Index.Records)
	assert.Equal(t, 12, index.lastTopK, "diversified experiments widen the pool")

	assert.Equal(t, 2, summary.Samples)
	assert.Zero(t, summary.Failures)
	require.Len(t, summary.Results, 2)

	first := summary.Results[0]
	assert.Equal(t, "How did revenue do?", first.Question)
	assert.Equal(t, domain.RouteRetrieve, first.Route)
	assert.Equal(t, 1, first.Citations)
	assert.Equal(t, domain.MetricBundle{AnswerCorrectness: 0.8, Groundedness: 1, RetrievalRelevance: 0.95}, first.Metrics)

	assert.InDelta(t, 1.0, summary.Mean.Groundedness, 1e-9)
	assert.InDelta(t, 0.95, summary.Mean.RetrievalRelevance, 1e-9)
}

func TestEvaluator_Run_SkipIndexAndLimit(t *testing.T) {
	index := &mockVectorIndex{}
	llm := &mockLLMService{}

	summary, err := newTestEvaluator(llm, index, WithSkipIndex(true), WithQuestionLimit(1)).
		Run(context.Background(), domain.DefaultExperiments()[0], evalRecords())
	require.NoError(t, err)

	assert.Empty(t, index.upserts)
	assert.Equal(t, domain.DefaultNamespace+"-baseline", summary.Namespace)
	assert.Equal(t, 1, summary.Samples)
	assert.Equal(t, NoEvidenceAnswer, summary.Results[0].Answer)
	assert.Zero(t, summary.Results[0].Metrics.Groundedness)
	assert.Zero(t, llm.callCount())
}

func TestEvaluator_Run_CountsFailures(t *testing.T) {
	index := &mockVectorIndex{matches: []driven.VectorMatch{testMatch("c1", "d1", "qa", 0.5)}}
	llm := &mockLLMService{err: errors.New("quota exceeded")}

	summary, err := newTestEvaluator(llm, index).Run(context.Background(), domain.DefaultExperiments()[0], evalRecords())
	require.NoError(t, err)

	assert.Zero(t, summary.Samples)
	assert.Equal(t, 2, summary.Failures)
	assert.Equal(t, domain.MetricBundle{}, summary.Mean)
	require.Len(t, summary.Results, 2)
	assert.Contains(t, summary.Results[0].Error, "quota exceeded")
}

func TestEvaluator_Run_IndexFailureContinues(t *testing.T) {
	index := &mockVectorIndex{upsertErr: errors.New("read only")}
	llm := &mockLLMService{}

	summary, err := newTestEvaluator(llm, index).Run(context.Background(), domain.DefaultExperiments()[0], evalRecords())
	require.NoError(t, err)

	assert.Zero(t, summary.Index.Upserted)
	assert.Equal(t, 2, summary.Samples)
}

func TestEvaluator_Run_Errors(t *testing.T) {
	e := newTestEvaluator(&mockLLMService{}, &mockVectorIndex{})
	_, err := e.Run(context.Background(), domain.Experiment{Name: "x", Strategy: "semantic"}, evalRecords())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewEvaluator(nil, nil, nil).Run(context.Background(), domain.DefaultExperiments()[0], evalRecords())
	assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestEvaluator(&mockLLMService{}, &mockVectorIndex{}, WithSkipIndex(true)).
		Run(ctx, domain.DefaultExperiments()[0], evalRecords())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenF1(t *testing.T) {
	tests := []struct {
		name       string
		prediction string
		reference  string
		want       float64
	}{
		{"exact", "Revenue grew", "revenue grew", 1},
		{"partial", "Revenue grew [S1].", "Revenue grew.", 0.8},
		{"repeated tokens clipped", "up up up", "up", 0.5},
		{"no overlap", "margins", "revenue", 0},
		{"empty prediction", "", "revenue", 0},
		{"punctuation only", "...", "revenue", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenF1(tt.prediction, tt.reference), 1e-9)
		})
	}
}

func TestGroundedness(t *testing.T) {
	cites := []domain.Citation{{CitationID: "S1"}}

	assert.Equal(t, 0.0, Groundedness(domain.Answer{Text: "x [S1]"}))
	assert.Equal(t, 0.75, Groundedness(domain.Answer{Text: "no labels", Citations: cites}))
	assert.Equal(t, 1.0, Groundedness(domain.Answer{Text: "labelled [S1]", Citations: cites}))
}

func TestRetrievalRelevance(t *testing.T) {
	assert.Zero(t, RetrievalRelevance(nil))
	assert.InDelta(t, 0.5, RetrievalRelevance([]domain.Citation{{Score: 1}, {Score: -1}}), 1e-9)
	assert.InDelta(t, 1.0, RetrievalRelevance([]domain.Citation{{Score: 3}}), 1e-9)
	assert.InDelta(t, 0.0, RetrievalRelevance([]domain.Citation{{Score: -4}}), 1e-9)
}

func TestWriteReport(t *testing.T) {
	summary := &domain.EvalSummary{
		Experiment: domain.DefaultExperiments()[1],
		Namespace:  "calls-improved",
		Samples:    2,
		Failures:   1,
		Mean:       domain.MetricBundle{AnswerCorrectness: 0.5, Groundedness: 0.875, RetrievalRelevance: 0.61234},
		Index:      domain.IndexSummary{Records: 3, Chunks: 7, Upserted: 7, Batches: 1, EmbeddingModel: "deterministic-hash", EmbeddingDimension: 1536},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, summary, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	out := buf.String()

	assert.Contains(t, out, "# Evaluation Summary")
	assert.Contains(t, out, "- Generated at: 2024-01-02T03:04:05Z")
	assert.Contains(t, out, "- Strategy: structure_aware")
	assert.Contains(t, out, "- Examples: 3")
	assert.Contains(t, out, "- Upserted: 7 in 1 batches")
	assert.Contains(t, out, "- groundedness: 0.8750")
	assert.Contains(t, out, "- retrieval_relevance: 0.6123")
}

func TestWriteReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, &domain.EvalSummary{Experiment: domain.DefaultExperiments()[0]}, time.Now()))

	assert.Contains(t, buf.String(), "- Not indexed in this run")
	assert.Contains(t, buf.String(), "- No metrics available")
}
