// Package driven declares what the core needs from infrastructure. Adapters
// under internal/adapters/driven, internal/connectors and
// internal/normalisers implement it.
//
// Always present:
//
//   - EmbeddingService: text to vectors. The hash embedder needs no network.
//   - VectorIndex: vectors per namespace, nearest-neighbour queries
//   - ConfigStore and PromptStore: settings and prompt templates
//   - RecordSource, Normaliser and PostProcessor: the indexing pipeline
//
// LLMService may be nil. Routing then uses the keyword heuristic, direct
// answers use a fixed reply and synthesis returns an apology.
//
// This package imports domain and nothing else from internal/.
package driven
