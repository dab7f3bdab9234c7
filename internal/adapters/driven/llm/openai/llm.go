// Package openai provides an LLM service adapter for the OpenAI chat
// completions API and compatible endpoints such as Groq.
package openai

import (
	"cmp"
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Endpoints and defaults.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the chat completions client.
type LLMConfig struct {
	APIKey string
	// BaseURL selects the provider; GroqBaseURL targets Groq.
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService answers router and synthesis prompts through /chat/completions.
type LLMService struct {
	api   *httpjson.Client
	model string
}

type completionRequest struct {
	Model          string           `json:"model"`
	Messages       []wireMessage    `json:"messages"`
	MaxTokens      int              `json:"max_tokens,omitempty"`
	Temperature    float64          `json:"temperature"`
	ResponseFormat *formatDirective `json:"response_format,omitempty"`
}

type formatDirective struct {
	Type string `json:"type"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// NewLLMService creates a chat completions client. The API key is required.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	cfg.BaseURL = cmp.Or(cfg.BaseURL, DefaultBaseURL)
	cfg.Model = cmp.Or(cfg.Model, DefaultLLMModel)
	cfg.Timeout = cmp.Or(cfg.Timeout, DefaultLLMTimeout)

	return &LLMService{
		api:   httpjson.New("openai", cfg.BaseURL, cfg.Timeout, httpjson.WithBearer(cfg.APIKey)),
		model: cfg.Model,
	}, nil
}

// Chat sends the conversation and returns the first choice. JSON mode maps
// to response_format json_object.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := completionRequest{
		Model:       s.model,
		Messages:    make([]wireMessage, 0, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, wireMessage{Role: m.Role, Content: m.Content})
	}
	if opts.JSON {
		req.ResponseFormat = &formatDirective{Type: "json_object"}
	}

	var resp completionResponse
	if err := s.api.Post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no response choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models", nil)
}

// Close releases idle connections.
func (s *LLMService) Close() error {
	s.api.Close()
	return nil
}
