package ai

import (
	"context"
	"fmt"
	"time"

	hashembed "github.com/custodia-labs/earnings-rag/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// Capabilities holds the adapters one run works with.
type Capabilities struct {
	Embedder driven.EmbeddingService
	// LLM is nil when no provider is configured or it did not answer.
	LLM   driven.LLMService
	Index driven.VectorIndex

	// Warnings lists provider failures that were degraded around.
	Warnings []string
	// FellBack is set when a configured embedding provider was replaced
	// by hash embeddings.
	FellBack bool
}

// Open builds every capability. An unreachable embedding provider is
// replaced by hash embeddings and an unreachable LLM is left nil, each
// with a warning. Only a vector index failure is returned as an error.
func Open(ctx context.Context, settings *domain.AppSettings, probe *Probe) (*Capabilities, error) {
	c := &Capabilities{}
	timeout := probe.timeout()

	embedder, err := openEmbedder(ctx, settings.Embedding, timeout)
	if err != nil {
		c.warn("embedding provider %s unavailable, using hash embeddings: %v", settings.Embedding.Provider, err)
	}
	if embedder == nil {
		embedder = hashembed.NewEmbeddingService(settings.Embedding.Dimensions)
		c.FellBack = settings.Embedding.Provider != domain.AIProviderHash
	}
	c.Embedder = embedder

	if settings.LLM.Provider != "" {
		llm, err := openLLM(ctx, settings.LLM, timeout)
		if err != nil {
			c.warn("LLM provider %s unavailable, continuing without it: %v", settings.LLM.Provider, err)
		}
		c.LLM = llm
	}

	index, err := NewIndex(settings.Vector)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Index = index

	logger.Debug("capabilities: embedder=%s llm=%v index=%s",
		embedder.ModelName(), c.LLM != nil, settings.Vector.Backend)
	return c, nil
}

func openEmbedder(ctx context.Context, s domain.EmbeddingSettings, timeout time.Duration) (driven.EmbeddingService, error) {
	if !s.IsConfigured() {
		if s.Provider != domain.AIProviderHash {
			return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, s.Provider)
		}
		return nil, nil
	}
	svc, err := connect(ctx, timeout, func() (driven.EmbeddingService, error) { return NewEmbedder(ctx, s) })
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

func openLLM(ctx context.Context, s domain.LLMSettings, timeout time.Duration) (driven.LLMService, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrLLMUnavailable, s.Provider)
	}
	svc, err := connect(ctx, timeout, func() (driven.LLMService, error) { return NewLLM(ctx, s) })
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

func (c *Capabilities) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	logger.Warn("%s", msg)
}

// Close releases whichever adapters were opened.
func (c *Capabilities) Close() {
	for _, closer := range []interface{ Close() error }{c.Embedder, c.LLM, c.Index} {
		if closer != nil {
			_ = closer.Close()
		}
	}
}
