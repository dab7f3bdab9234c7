package driven

import (
	"context"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// ProviderProbe builds a provider from settings, pings it and releases it.
// Settings that name no usable provider pass without a network call.
type ProviderProbe interface {
	ProbeEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error
	ProbeLLM(ctx context.Context, settings domain.LLMSettings) error
}
