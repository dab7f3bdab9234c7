// Package ai builds the embedding, LLM and vector index adapters named by
// AppSettings.
package ai

import (
	"context"
	"errors"
	"fmt"

	geminiembed "github.com/custodia-labs/earnings-rag/internal/adapters/driven/embedding/gemini"
	hashembed "github.com/custodia-labs/earnings-rag/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/earnings-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/earnings-rag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/earnings-rag/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/earnings-rag/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/earnings-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/earnings-rag/internal/adapters/driven/llm/openai"
	memoryvec "github.com/custodia-labs/earnings-rag/internal/adapters/driven/vector/memory"
	mongovec "github.com/custodia-labs/earnings-rag/internal/adapters/driven/vector/mongo"
	qdrantvec "github.com/custodia-labs/earnings-rag/internal/adapters/driven/vector/qdrant"
	sqlitevec "github.com/custodia-labs/earnings-rag/internal/adapters/driven/vector/sqlite"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

type (
	embedderFunc func(context.Context, domain.EmbeddingSettings) (driven.EmbeddingService, error)
	llmFunc      func(context.Context, domain.LLMSettings) (driven.LLMService, error)
)

var embedders = map[domain.AIProvider]embedderFunc{
	domain.AIProviderHash: func(_ context.Context, s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return hashembed.NewEmbeddingService(s.Dimensions), nil
	},
	domain.AIProviderOllama: func(_ context.Context, s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(_ context.Context, s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: requestedDimensions(s),
		})
	},
	domain.AIProviderGemini: func(ctx context.Context, s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: requestedDimensions(s),
		})
	},
}

var llms = map[domain.AIProvider]llmFunc{
	domain.AIProviderOllama: func(_ context.Context, s domain.LLMSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(_ context.Context, s domain.LLMSettings) (driven.LLMService, error) {
		return openaillm.NewLLMService(openaillm.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
	domain.AIProviderGroq: func(_ context.Context, s domain.LLMSettings) (driven.LLMService, error) {
		if s.BaseURL == "" {
			s.BaseURL = openaillm.GroqBaseURL
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
	domain.AIProviderAnthropic: func(_ context.Context, s domain.LLMSettings) (driven.LLMService, error) {
		return anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
	domain.AIProviderGemini: func(ctx context.Context, s domain.LLMSettings) (driven.LLMService, error) {
		return geminillm.NewLLMService(ctx, geminillm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
}

// NewEmbedder returns the embedding adapter for s.Provider without
// contacting it.
func NewEmbedder(ctx context.Context, s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	build, ok := embedders[s.Provider]
	if !ok {
		if s.Provider.Chats() {
			return nil, fmt.Errorf("%s does not support embeddings, use hash, ollama, openai or gemini", s.Provider)
		}
		return nil, fmt.Errorf("unsupported embedding provider: %q", s.Provider)
	}
	return build(ctx, s)
}

// NewLLM returns the chat adapter for s.Provider without contacting it.
func NewLLM(ctx context.Context, s domain.LLMSettings) (driven.LLMService, error) {
	build, ok := llms[s.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %q", s.Provider)
	}
	return build(ctx, s)
}

// requestedDimensions asks remote models for shortened vectors only when
// the dimension was changed from the hash default.
func requestedDimensions(s domain.EmbeddingSettings) int {
	if s.Dimensions == domain.DefaultEmbeddingDimensions {
		return 0
	}
	return s.Dimensions
}

// NewIndex opens the vector backend named by s.Backend. An empty backend
// means SQLite. Every error wraps domain.ErrVectorIndexUnavailable.
func NewIndex(s domain.VectorSettings) (driven.VectorIndex, error) {
	idx, err := openIndex(s)
	switch {
	case err == nil:
		return idx, nil
	case errors.Is(err, domain.ErrVectorIndexUnavailable):
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
}

func openIndex(s domain.VectorSettings) (driven.VectorIndex, error) {
	switch s.Backend {
	case domain.VectorBackendMemory:
		return memoryvec.NewIndex(), nil
	case domain.VectorBackendSQLite, "":
		return sqlitevec.NewIndex(s.DataDir)
	case domain.VectorBackendQdrant:
		if s.QdrantURL == "" {
			return nil, errors.New("qdrant url is required")
		}
		return qdrantvec.NewIndex(qdrantvec.Config{
			URL:        s.QdrantURL,
			APIKey:     s.QdrantAPIKey,
			Collection: s.QdrantCollection,
		}), nil
	case domain.VectorBackendMongo:
		return mongovec.Connect(mongovec.Config{
			URI:        s.MongoURI,
			Database:   s.MongoDatabase,
			Collection: s.MongoCollection,
			IndexName:  s.MongoIndex,
		})
	}
	return nil, fmt.Errorf("unsupported vector backend %q", s.Backend)
}
