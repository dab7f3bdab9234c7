package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// Ensure Evaluator implements the interface.
var _ driving.EvalService = (*Evaluator)(nil)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Evaluator indexes an experiment's namespace and scores answers to the
// dataset questions against their reference answers.
type Evaluator struct {
	indexer     driving.IndexService
	retriever   *Retriever
	synthesizer *Synthesizer
	baseNS      string
	skipIndex   bool
	limit       int
}

// EvalOption configures an Evaluator.
type EvalOption func(*Evaluator)

// WithBaseNamespace sets the namespace experiments are suffixed onto.
func WithBaseNamespace(ns string) EvalOption {
	return func(e *Evaluator) {
		if ns != "" {
			e.baseNS = ns
		}
	}
}

// WithSkipIndex evaluates against an existing index.
func WithSkipIndex(skip bool) EvalOption {
	return func(e *Evaluator) { e.skipIndex = skip }
}

// WithQuestionLimit caps the number of evaluated questions.
func WithQuestionLimit(n int) EvalOption {
	return func(e *Evaluator) { e.limit = n }
}

// NewEvaluator creates an evaluator.
func NewEvaluator(indexer driving.IndexService, retriever *Retriever, synthesizer *Synthesizer, opts ...EvalOption) *Evaluator {
	e := &Evaluator{
		indexer:     indexer,
		retriever:   retriever,
		synthesizer: synthesizer,
		baseNS:      domain.DefaultNamespace,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run indexes records under the experiment namespace, then answers every
// record that has both a question and a reference answer. Per-question
// failures are counted and do not stop the run.
func (e *Evaluator) Run(ctx context.Context, exp domain.Experiment, records []domain.Record) (*domain.EvalSummary, error) {
	if !exp.Strategy.IsValid() {
		return nil, fmt.Errorf("%w: experiment %q has unknown strategy %q", domain.ErrInvalidInput, exp.Name, exp.Strategy)
	}
	if e.retriever == nil || e.synthesizer == nil {
		return nil, fmt.Errorf("%w: evaluator needs a retriever and a synthesizer", domain.ErrCapabilityUnavailable)
	}

	namespace := exp.Namespace(e.baseNS)
	summary := &domain.EvalSummary{Experiment: exp, Namespace: namespace}

	logger.Section("Evaluation " + exp.Name)

	if !e.skipIndex && e.indexer != nil {
		idx, err := e.indexer.Index(ctx, records, namespace, domain.DefaultChunkParams(exp.Strategy))
		if err != nil {
			logger.Warn("Indexing step failed; continuing with available index: %v", err)
		} else {
			summary.Index = *idx
		}
	}

	topK := exp.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	var sum domain.MetricBundle
	for _, r := range evalExamples(records, e.limit) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sample := domain.EvalSample{Question: r.Question, Reference: r.Answer, Route: domain.RouteRetrieve}

		answer, err := e.answer(ctx, r.Question, namespace, topK, exp.Diversify)
		if err != nil {
			summary.Failures++
			sample.Error = err.Error()
			logger.Warn("Eval example failed: %q: %v", r.Question, err)
			summary.Results = append(summary.Results, sample)
			continue
		}

		sample.Answer = answer.Text
		sample.Citations = len(answer.Citations)
		sample.Metrics = ScoreAnswer(answer, r.Answer)
		summary.Results = append(summary.Results, sample)

		sum.AnswerCorrectness += sample.Metrics.AnswerCorrectness
		sum.Groundedness += sample.Metrics.Groundedness
		sum.RetrievalRelevance += sample.Metrics.RetrievalRelevance
		summary.Samples++
	}

	if summary.Samples > 0 {
		n := float64(summary.Samples)
		summary.Mean = domain.MetricBundle{
			AnswerCorrectness:  round4(sum.AnswerCorrectness / n),
			Groundedness:       round4(sum.Groundedness / n),
			RetrievalRelevance: round4(sum.RetrievalRelevance / n),
		}
	}

	logger.Info("Evaluated %d examples (%d failures) in %s", summary.Samples, summary.Failures, namespace)
	return summary, nil
}

func (e *Evaluator) answer(ctx context.Context, question, namespace string, topK int, diversify bool) (domain.Answer, error) {
	chunks, err := e.retriever.Retrieve(ctx, question, namespace, topK, diversify, nil)
	if err != nil {
		return domain.Answer{}, err
	}
	return e.synthesizer.Synthesize(ctx, question, chunks)
}

func evalExamples(records []domain.Record, limit int) []domain.Record {
	var out []domain.Record
	for _, r := range records {
		if strings.TrimSpace(r.Question) == "" || strings.TrimSpace(r.Answer) == "" {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ScoreAnswer computes the metric bundle for one answer.
func ScoreAnswer(answer domain.Answer, reference string) domain.MetricBundle {
	return domain.MetricBundle{
		AnswerCorrectness:  round4(TokenF1(answer.Text, reference)),
		Groundedness:       Groundedness(answer),
		RetrievalRelevance: round4(RetrievalRelevance(answer.Citations)),
	}
}

// TokenF1 is the token-overlap F1 between prediction and reference over
// lowercase [a-z0-9]+ tokens.
func TokenF1(prediction, reference string) float64 {
	pred := tokenize(prediction)
	ref := tokenize(reference)
	if len(pred) == 0 || len(ref) == 0 {
		return 0
	}

	refCounts := make(map[string]int, len(ref))
	for _, t := range ref {
		refCounts[t]++
	}
	predCounts := make(map[string]int, len(pred))
	for _, t := range pred {
		predCounts[t]++
	}

	overlap := 0
	for t, n := range predCounts {
		overlap += min(n, refCounts[t])
	}
	if overlap == 0 {
		return 0
	}

	precision := float64(overlap) / float64(len(pred))
	recall := float64(overlap) / float64(len(ref))
	return 2 * precision * recall / (precision + recall)
}

// Groundedness is 1 when the answer has citations and references them
// inline, 0.75 when it has citations without inline [S labels, else 0.
func Groundedness(answer domain.Answer) float64 {
	if len(answer.Citations) == 0 {
		return 0
	}
	if !strings.Contains(answer.Text, "[S") {
		return 0.75
	}
	return 1
}

// RetrievalRelevance is the mean of citation scores mapped from [-1, 1]
// onto [0, 1].
func RetrievalRelevance(citations []domain.Citation) float64 {
	if len(citations) == 0 {
		return 0
	}
	var total float64
	for _, c := range citations {
		total += math.Max(0, math.Min(1, (c.Score+1)/2))
	}
	return total / float64(len(citations))
}

func tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// WriteReport renders an evaluation summary as markdown.
func WriteReport(w io.Writer, summary *domain.EvalSummary, generatedAt time.Time) error {
	var b strings.Builder

	b.WriteString("# Evaluation Summary\n\n")
	fmt.Fprintf(&b, "- Generated at: %s\n", generatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Experiment: %s\n", summary.Experiment.Name)
	fmt.Fprintf(&b, "- Strategy: %s\n", summary.Experiment.Strategy)
	fmt.Fprintf(&b, "- Top K: %d\n", summary.Experiment.TopK)
	fmt.Fprintf(&b, "- Diversify: %t\n", summary.Experiment.Diversify)
	fmt.Fprintf(&b, "- Namespace: %s\n", summary.Namespace)
	fmt.Fprintf(&b, "- Examples: %d\n", summary.Samples+summary.Failures)
	fmt.Fprintf(&b, "- Failures: %d\n", summary.Failures)

	b.WriteString("\n## Index\n\n")
	if summary.Index.Upserted > 0 || summary.Index.Chunks > 0 {
		fmt.Fprintf(&b, "- Records: %d\n", summary.Index.Records)
		fmt.Fprintf(&b, "- Chunks: %d\n", summary.Index.Chunks)
		fmt.Fprintf(&b, "- Upserted: %d in %d batches\n", summary.Index.Upserted, summary.Index.Batches)
		fmt.Fprintf(&b, "- Embedding: %s (%d dimensions)\n", summary.Index.EmbeddingModel, summary.Index.EmbeddingDimension)
	} else {
		b.WriteString("- Not indexed in this run\n")
	}

	b.WriteString("\n## Metrics\n\n")
	if summary.Samples == 0 {
		b.WriteString("- No metrics available\n")
	} else {
		fmt.Fprintf(&b, "- answer_correctness: %.4f\n", summary.Mean.AnswerCorrectness)
		fmt.Fprintf(&b, "- groundedness: %.4f\n", summary.Mean.Groundedness)
		fmt.Fprintf(&b, "- retrieval_relevance: %.4f\n", summary.Mean.RetrievalRelevance)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
