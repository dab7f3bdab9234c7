// Package ollama provides an LLM service adapter for a local Ollama server.
package ollama

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults for a local install.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.1"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService runs non-streaming /api/chat requests.
type LLMService struct {
	api   *httpjson.Client
	model string
}

type generation struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string      `json:"model"`
	Messages []turn      `json:"messages"`
	Stream   bool        `json:"stream"`
	Format   string      `json:"format,omitempty"`
	Options  *generation `json:"options"`
}

type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message turn   `json:"message"`
	Done    bool   `json:"done"`
	Error   string `json:"error,omitempty"`
}

// NewLLMService creates an Ollama chat client. Ollama needs no API key.
func NewLLMService(cfg LLMConfig) *LLMService {
	cfg.BaseURL = cmp.Or(cfg.BaseURL, DefaultBaseURL)
	cfg.Model = cmp.Or(cfg.Model, DefaultLLMModel)
	cfg.Timeout = cmp.Or(cfg.Timeout, DefaultLLMTimeout)
	return &LLMService{
		api:   httpjson.New("ollama", cfg.BaseURL, cfg.Timeout),
		model: cfg.Model,
	}
}

// Chat sends the conversation in one request. JSON mode sets format "json".
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := chatRequest{
		Model:    s.model,
		Messages: make([]turn, 0, len(messages)),
		Options:  &generation{NumPredict: opts.MaxTokens, Temperature: opts.Temperature},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, turn{Role: m.Role, Content: m.Content})
	}
	if opts.JSON {
		req.Format = "json"
	}

	var resp chatResponse
	if err := s.api.Post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	// Ollama can report failures inside a 200 response.
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}
	return resp.Message.Content, nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists local models.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags", nil)
}

// Close releases idle connections.
func (s *LLMService) Close() error {
	s.api.Close()
	return nil
}
