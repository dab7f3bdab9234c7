package driven

import "context"

// LLMService answers chat prompts for the router classifier, the direct
// node and the synthesizer. Callers treat a nil LLMService as unavailable.
type LLMService interface {
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions tunes a single Chat call. Zero MaxTokens leaves the provider
// default. JSON requests a JSON object reply where the provider has a mode
// for it; other providers get an instruction in the system prompt.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
	JSON        bool
}
