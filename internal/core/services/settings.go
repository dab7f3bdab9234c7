package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
)

var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys, as written to config.toml.
//
//nolint:gosec // key names, not credentials
const (
	KeyEmbedProvider    = "embedding.provider"
	KeyEmbedModel       = "embedding.model"
	KeyEmbedBaseURL     = "embedding.base_url"
	KeyEmbedAPIKey      = "embedding.api_key"
	KeyEmbedDimensions  = "embedding.dimensions"
	KeyLLMProvider      = "llm.provider"
	KeyLLMModel         = "llm.model"
	KeyLLMBaseURL       = "llm.base_url"
	KeyLLMAPIKey        = "llm.api_key"
	KeyVectorBackend    = "vector.backend"
	KeyVectorNamespace  = "vector.namespace"
	KeyVectorDataDir    = "vector.data_dir"
	KeyQdrantURL        = "vector.qdrant_url"
	KeyQdrantAPIKey     = "vector.qdrant_api_key"
	KeyQdrantCollection = "vector.qdrant_collection"
	KeyMongoURI         = "vector.mongo_uri"
	KeyMongoDatabase    = "vector.mongo_database"
	KeyMongoCollection  = "vector.mongo_collection"
	KeyMongoIndex       = "vector.mongo_index"
	KeyChunkStrategy    = "chunking.strategy"
	KeyChunkSize        = "chunking.size"
	KeyChunkOverlap     = "chunking.overlap"
	KeyTopK             = "retrieval.top_k"
	KeyDiversify        = "retrieval.diversify"
	KeyRouterUseLLM     = "router.use_llm"
	KeyLogFile          = "log.file"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService resolves AppSettings from a ConfigStore and writes edits
// back to it.
type SettingsService struct {
	store driven.ConfigStore
	probe driven.ProviderProbe
}

// NewSettingsService returns a SettingsService. probe may be nil, in which
// case the Validate*Config methods always pass.
func NewSettingsService(store driven.ConfigStore, probe driven.ProviderProbe) *SettingsService {
	return &SettingsService{store: store, probe: probe}
}

// Get overlays stored values on DefaultAppSettings. Unknown strategies,
// backends and providers keep their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()
	r := reader{s.store}

	strategy := domain.SplitStrategy(r.str(KeyChunkStrategy, d.Chunking.Strategy.String()))
	if !strategy.IsValid() {
		strategy = d.Chunking.Strategy
	}
	chunkDefaults := domain.DefaultChunkParams(strategy)

	backend := domain.VectorBackend(r.str(KeyVectorBackend, d.Vector.Backend.String()))
	if !backend.IsValid() {
		backend = d.Vector.Backend
	}

	out := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   r.provider(KeyEmbedProvider, d.Embedding.Provider),
			Model:      r.str(KeyEmbedModel, ""),
			BaseURL:    r.str(KeyEmbedBaseURL, ""),
			APIKey:     r.str(KeyEmbedAPIKey, ""),
			Dimensions: r.num(KeyEmbedDimensions, d.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider: r.provider(KeyLLMProvider, d.LLM.Provider),
			Model:    r.str(KeyLLMModel, ""),
			BaseURL:  r.str(KeyLLMBaseURL, ""),
			APIKey:   r.str(KeyLLMAPIKey, ""),
		},
		Vector: domain.VectorSettings{
			Backend:          backend,
			Namespace:        r.str(KeyVectorNamespace, d.Vector.Namespace),
			DataDir:          r.str(KeyVectorDataDir, ""),
			QdrantURL:        r.str(KeyQdrantURL, d.Vector.QdrantURL),
			QdrantAPIKey:     r.str(KeyQdrantAPIKey, ""),
			QdrantCollection: r.str(KeyQdrantCollection, d.Vector.QdrantCollection),
			MongoURI:         r.str(KeyMongoURI, ""),
			MongoDatabase:    r.str(KeyMongoDatabase, d.Vector.MongoDatabase),
			MongoCollection:  r.str(KeyMongoCollection, d.Vector.MongoCollection),
			MongoIndex:       r.str(KeyMongoIndex, d.Vector.MongoIndex),
		},
		Chunking: domain.ChunkSettings{
			Strategy: strategy,
			Size:     r.num(KeyChunkSize, chunkDefaults.Size),
			Overlap:  r.num(KeyChunkOverlap, chunkDefaults.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:      r.num(KeyTopK, d.Retrieval.TopK),
			Diversify: r.flag(KeyDiversify, d.Retrieval.Diversify),
		},
		Router: domain.RouterSettings{UseLLM: r.flag(KeyRouterUseLLM, d.Router.UseLLM)},
		Log:    domain.LogSettings{File: r.str(KeyLogFile, "")},
	}

	if out.Embedding.Model == "" {
		out.Embedding.Model = domain.DefaultEmbeddingModels()[out.Embedding.Provider]
	}
	if out.LLM.Model == "" {
		out.LLM.Model = domain.DefaultLLMModels()[out.LLM.Provider]
	}
	return out, nil
}

// Save writes every field. Secrets are written only when set so that a
// value supplied once by "config set" survives later saves.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	fields := []struct {
		key    string
		value  any
		secret bool
	}{
		{KeyEmbedProvider, settings.Embedding.Provider.String(), false},
		{KeyEmbedModel, settings.Embedding.Model, false},
		{KeyEmbedBaseURL, settings.Embedding.BaseURL, false},
		{KeyEmbedAPIKey, settings.Embedding.APIKey, true},
		{KeyEmbedDimensions, settings.Embedding.Dimensions, false},
		{KeyLLMProvider, settings.LLM.Provider.String(), false},
		{KeyLLMModel, settings.LLM.Model, false},
		{KeyLLMBaseURL, settings.LLM.BaseURL, false},
		{KeyLLMAPIKey, settings.LLM.APIKey, true},
		{KeyVectorBackend, settings.Vector.Backend.String(), false},
		{KeyVectorNamespace, settings.Vector.Namespace, false},
		{KeyVectorDataDir, settings.Vector.DataDir, false},
		{KeyQdrantURL, settings.Vector.QdrantURL, false},
		{KeyQdrantAPIKey, settings.Vector.QdrantAPIKey, true},
		{KeyQdrantCollection, settings.Vector.QdrantCollection, false},
		{KeyMongoURI, settings.Vector.MongoURI, true},
		{KeyMongoDatabase, settings.Vector.MongoDatabase, false},
		{KeyMongoCollection, settings.Vector.MongoCollection, false},
		{KeyMongoIndex, settings.Vector.MongoIndex, false},
		{KeyChunkStrategy, settings.Chunking.Strategy.String(), false},
		{KeyChunkSize, settings.Chunking.Size, false},
		{KeyChunkOverlap, settings.Chunking.Overlap, false},
		{KeyTopK, settings.Retrieval.TopK, false},
		{KeyDiversify, settings.Retrieval.Diversify, false},
		{KeyRouterUseLLM, settings.Router.UseLLM, false},
		{KeyLogFile, settings.Log.File, false},
	}
	for _, f := range fields {
		if f.secret && f.value == "" {
			continue
		}
		if err := s.store.Set(f.key, f.value); err != nil {
			return fmt.Errorf("save %s: %w", f.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider switches the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	switch {
	case !provider.IsValid():
		return fmt.Errorf("invalid embedding provider: %s", provider)
	case !provider.Embeds():
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	return s.switchProvider(provider, apiKey, func(settings *domain.AppSettings) {
		e := &settings.Embedding
		e.Provider = provider
		e.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
		e.BaseURL = baseURLFor(provider, e.BaseURL)
		e.APIKey = apiKey
	})
}

// SetLLMProvider switches the chat provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.Chats() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	return s.switchProvider(provider, apiKey, func(settings *domain.AppSettings) {
		l := &settings.LLM
		l.Provider = provider
		l.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
		l.BaseURL = baseURLFor(provider, l.BaseURL)
		l.APIKey = apiKey
	})
}

func (s *SettingsService) switchProvider(provider domain.AIProvider, apiKey string, apply func(*domain.AppSettings)) error {
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	apply(settings)
	return s.Save(settings)
}

func modelOrDefault(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}

// baseURLFor keeps a custom Ollama endpoint and clears endpoints left over
// from another provider.
func baseURLFor(provider domain.AIProvider, current string) string {
	if provider != domain.AIProviderOllama {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}

// SetVectorBackend selects the vector index backend.
func (s *SettingsService) SetVectorBackend(backend domain.VectorBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid vector backend: %s", backend)
	}
	return s.store.Set(KeyVectorBackend, backend.String())
}

// Validate reports the first setting that would stop a run.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	if err := settings.Chunking.Params().Validate(); err != nil {
		return err
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be > 0", domain.ErrInvalidInput)
	}

	required := map[domain.VectorBackend]struct{ key, value string }{
		domain.VectorBackendQdrant: {KeyQdrantURL, settings.Vector.QdrantURL},
		domain.VectorBackendMongo:  {KeyMongoURI, settings.Vector.MongoURI},
	}
	if req, ok := required[settings.Vector.Backend]; ok && req.value == "" {
		return fmt.Errorf("vector backend %s requires %s", settings.Vector.Backend, req.key)
	}

	// No LLM is fine; a named one must be usable.
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured", settings.LLM.Provider)
	}
	return nil
}

// GetDefaults returns DefaultAppSettings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.ProbeEmbedding(context.Background(), settings.Embedding)
}

// ValidateLLMConfig pings the configured LLM provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.ProbeLLM(context.Background(), settings.LLM)
}

// reader applies defaults to missing or zero config values.
type reader struct {
	store driven.ConfigReader
}

func (r reader) str(key, fallback string) string {
	if v := r.store.GetString(key); v != "" {
		return v
	}
	return fallback
}

func (r reader) num(key string, fallback int) int {
	if v := r.store.GetInt(key); v != 0 {
		return v
	}
	return fallback
}

// flag distinguishes a stored false from a missing key.
func (r reader) flag(key string, fallback bool) bool {
	if _, ok := r.store.Get(key); !ok {
		return fallback
	}
	return r.store.GetBool(key)
}

func (r reader) provider(key string, fallback domain.AIProvider) domain.AIProvider {
	if p := domain.AIProvider(r.store.GetString(key)); p.IsValid() {
		return p
	}
	return fallback
}
