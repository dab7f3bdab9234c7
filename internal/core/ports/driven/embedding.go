package driven

import "context"

// EmbeddingService turns text into vectors. Hash, OpenAI, Ollama and
// Gemini implementations exist; the hash one never touches the network.
type EmbeddingService interface {
	// EmbedDocuments returns one vector per text, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions is the vector length. Remote services learn it from the
	// first response when the model is not in their table.
	Dimensions() int
	ModelName() string

	// Ping makes the cheapest request that proves the credentials work.
	Ping(ctx context.Context) error
	Close() error
}
