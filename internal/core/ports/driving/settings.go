package driving

import "github.com/custodia-labs/earnings-rag/internal/core/domain"

// SettingsService reads and edits configuration for the config command,
// the TUI and the MCP settings resource.
type SettingsService interface {
	// Get merges defaults, the config file and the environment.
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings

	// An empty model selects the provider default.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error
	SetVectorBackend(backend domain.VectorBackend) error

	// Validate checks settings offline. The Validate*Config methods ping
	// the configured provider.
	Validate() error
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
