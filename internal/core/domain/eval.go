package domain

import "strings"

// Experiment is a named retrieval configuration evaluated against a dataset.
type Experiment struct {
	Name            string        `json:"name" yaml:"name"`
	Strategy        SplitStrategy `json:"strategy" yaml:"strategy"`
	TopK            int           `json:"top_k" yaml:"top_k"`
	Diversify       bool          `json:"diversify" yaml:"diversify"`
	NamespaceSuffix string        `json:"namespace_suffix" yaml:"namespace_suffix"`
}

// Namespace returns the experiment's namespace under base.
func (e Experiment) Namespace(base string) string {
	suffix := e.NamespaceSuffix
	if suffix == "" {
		suffix = e.Name
	}
	if suffix == "" {
		return base
	}
	return strings.TrimSuffix(base, "-") + "-" + suffix
}

// DefaultExperiments returns the built-in baseline and improved experiments.
func DefaultExperiments() []Experiment {
	return []Experiment{
		{Name: "baseline", Strategy: SplitBaseline, TopK: DefaultTopK, Diversify: false, NamespaceSuffix: "baseline"},
		{Name: "improved", Strategy: SplitStructureAware, TopK: 8, Diversify: true, NamespaceSuffix: "improved"},
	}
}

// MetricBundle holds the scores for a single evaluated question.
type MetricBundle struct {
	AnswerCorrectness  float64 `json:"answer_correctness"`
	Groundedness       float64 `json:"groundedness"`
	RetrievalRelevance float64 `json:"retrieval_relevance"`
}

// EvalSample is one question run through the pipeline during evaluation.
type EvalSample struct {
	Question  string       `json:"question"`
	Reference string       `json:"reference"`
	Answer    string       `json:"answer"`
	Route     Route        `json:"route"`
	Citations int          `json:"citations"`
	Metrics   MetricBundle `json:"metrics"`
	Error     string       `json:"error,omitempty"`
}

// EvalSummary aggregates the results of one experiment.
type EvalSummary struct {
	Experiment Experiment   `json:"experiment"`
	Namespace  string       `json:"namespace"`
	Samples    int          `json:"samples"`
	Failures   int          `json:"failures"`
	Mean       MetricBundle `json:"mean"`
	Index      IndexSummary `json:"index"`
	Results    []EvalSample `json:"results,omitempty"`
}

// IndexSummary reports the outcome of an indexing run.
type IndexSummary struct {
	Records            int    `json:"records"`
	Documents          int    `json:"documents"`
	Chunks             int    `json:"chunks"`
	EmbeddingModel     string `json:"embedding_model"`
	EmbeddingDimension int    `json:"embedding_dimension"`
	Namespace          string `json:"namespace"`
	Upserted           int    `json:"upserted"`
	Batches            int    `json:"batches"`
}
