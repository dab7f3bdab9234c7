package domain

const unknownDescription = "Unknown"

// AIProvider names a service that can embed text, answer prompts, or both.
type AIProvider string

// Known providers.
const (
	AIProviderHash      AIProvider = "hash"
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderGroq      AIProvider = "groq"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderGemini    AIProvider = "gemini"
)

// capability describes what a provider offers. An empty model means the
// provider does not serve that role.
type capability struct {
	label      string
	hosted     bool
	embedModel string
	chatModel  string
}

// providerOrder fixes the order used for listings and prompts.
var providerOrder = []AIProvider{
	AIProviderHash,
	AIProviderOllama,
	AIProviderOpenAI,
	AIProviderGroq,
	AIProviderAnthropic,
	AIProviderGemini,
}

var capabilities = map[AIProvider]capability{
	AIProviderHash:      {label: "Deterministic hash (offline)", embedModel: "deterministic-hash"},
	AIProviderOllama:    {label: "Ollama (local)", embedModel: "nomic-embed-text", chatModel: "llama3.1"},
	AIProviderOpenAI:    {label: "OpenAI (cloud)", hosted: true, embedModel: "text-embedding-3-small", chatModel: "gpt-4o-mini"},
	AIProviderGroq:      {label: "Groq (cloud)", hosted: true, chatModel: "llama-3.1-8b-instant"},
	AIProviderAnthropic: {label: "Anthropic (cloud)", hosted: true, chatModel: "claude-3-5-haiku-latest"},
	AIProviderGemini:    {label: "Gemini (cloud)", hosted: true, embedModel: "text-embedding-004", chatModel: "gemini-2.0-flash"},
}

// IsValid reports whether p is a known provider.
func (p AIProvider) IsValid() bool {
	_, ok := capabilities[p]
	return ok
}

// RequiresAPIKey reports whether p is a hosted API.
func (p AIProvider) RequiresAPIKey() bool {
	return capabilities[p].hosted
}

// IsLocal reports whether p runs without network credentials.
func (p AIProvider) IsLocal() bool {
	return p.IsValid() && !capabilities[p].hosted
}

// Embeds reports whether p can produce embeddings.
func (p AIProvider) Embeds() bool {
	return capabilities[p].embedModel != ""
}

// Chats reports whether p can answer prompts.
func (p AIProvider) Chats() bool {
	return capabilities[p].chatModel != ""
}

func (p AIProvider) String() string {
	return string(p)
}

// Description is the label shown in config output.
func (p AIProvider) Description() string {
	if c, ok := capabilities[p]; ok {
		return c.label
	}
	return unknownDescription
}

// AllLLMProviders lists providers that can answer prompts.
func AllLLMProviders() []AIProvider {
	return filterProviders(AIProvider.Chats)
}

// AllEmbeddingProviders lists providers that can embed text.
func AllEmbeddingProviders() []AIProvider {
	return filterProviders(AIProvider.Embeds)
}

// DefaultLLMModels maps each chat provider to its default model.
func DefaultLLMModels() map[AIProvider]string {
	return modelsBy(func(c capability) string { return c.chatModel })
}

// DefaultEmbeddingModels maps each embedding provider to its default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	return modelsBy(func(c capability) string { return c.embedModel })
}

func filterProviders(keep func(AIProvider) bool) []AIProvider {
	var out []AIProvider
	for _, p := range providerOrder {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func modelsBy(pick func(capability) string) map[AIProvider]string {
	out := make(map[AIProvider]string)
	for p, c := range capabilities {
		if m := pick(c); m != "" {
			out[p] = m
		}
	}
	return out
}
