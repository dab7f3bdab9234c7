// Package gemini provides an embedding service adapter using the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/embedding"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel = "text-embedding-004"

	// batchSize is the most texts sent per EmbedContent call.
	batchSize  = 50
	retryDelay = 2 * time.Second
	maxRetries = 3
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model (default: text-embedding-004).
	Model string

	// Dimensions sets OutputDimensionality when positive.
	Dimensions int

	// BaseURL overrides the API endpoint.
	BaseURL string
}

// EmbeddingService generates embeddings with Models.EmbedContent.
type EmbeddingService struct {
	*embedding.Model
	client *genai.Client
	// requested is sent as OutputDimensionality when positive.
	requested  int
	retryDelay time.Duration
}

// NewEmbeddingService creates a Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &EmbeddingService{
		Model:      embedding.NewModel(cfg.Model, cfg.Dimensions),
		client:     client,
		requested:  cfg.Dimensions,
		retryDelay: retryDelay,
	}, nil
}

// EmbedQuery embeds one query string.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedDocuments embeds texts in batches, retrying rate-limited calls.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	var config *genai.EmbedContentConfig
	if s.requested > 0 {
		dim := int32(s.requested)
		config = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		batch := texts[start:min(start+batchSize, len(texts))]

		contents := make([]*genai.Content, 0, len(batch))
		for _, text := range batch {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		res, err := s.embedWithRetry(ctx, contents, config)
		if err != nil {
			return nil, err
		}
		if len(res.Embeddings) != len(batch) {
			return nil, fmt.Errorf("gemini: got %d embeddings for %d inputs", len(res.Embeddings), len(batch))
		}
		for _, emb := range res.Embeddings {
			results = append(results, emb.Values)
		}
	}

	s.Observe(results)
	return results, nil
}

func (s *EmbeddingService) embedWithRetry(
	ctx context.Context, contents []*genai.Content, config *genai.EmbedContentConfig,
) (*genai.EmbedContentResponse, error) {
	for attempt := 0; ; attempt++ {
		res, err := s.client.Models.EmbedContent(ctx, s.ModelName(), contents, config)
		if err == nil {
			return res, nil
		}
		if !isRateLimitError(err) || attempt == maxRetries {
			return nil, fmt.Errorf("gemini: embed content: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
}

// Ping embeds a short probe string.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.EmbedQuery(ctx, "ping")
	return err
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}

func isRateLimitError(err error) bool {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
