package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// recordingProbe keeps the settings it was asked to probe.
type recordingProbe struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
	llm          *domain.LLMSettings
}

func (p *recordingProbe) ProbeEmbedding(_ context.Context, settings domain.EmbeddingSettings) error {
	p.embedding = &settings
	return p.embeddingErr
}

func (p *recordingProbe) ProbeLLM(_ context.Context, settings domain.LLMSettings) error {
	p.llm = &settings
	return p.llmErr
}

func TestSettingsService_Get_Defaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderHash, settings.Embedding.Provider)
	assert.Equal(t, "deterministic-hash", settings.Embedding.Model)
	assert.Equal(t, 1536, settings.Embedding.Dimensions)
	assert.Equal(t, domain.AIProvider(""), settings.LLM.Provider)
	assert.False(t, settings.LLM.IsConfigured())
	assert.Equal(t, domain.VectorBackendSQLite, settings.Vector.Backend)
	assert.Equal(t, "earnings-call-rag", settings.Vector.Namespace)
	assert.Equal(t, domain.SplitBaseline, settings.Chunking.Strategy)
	assert.Equal(t, 900, settings.Chunking.Size)
	assert.Equal(t, 150, settings.Chunking.Overlap)
	assert.Equal(t, 6, settings.Retrieval.TopK)
	assert.False(t, settings.Retrieval.Diversify)
	assert.True(t, settings.Router.UseLLM)
	assert.Empty(t, settings.Log.File)
}

func TestSettingsService_Get_StructureAwareDefaults(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{KeyChunkStrategy: "structure_aware"})
	svc := NewSettingsService(store, nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.SplitStructureAware, settings.Chunking.Strategy)
	assert.Equal(t, 120, settings.Chunking.Overlap)
}

func TestSettingsService_Get_InvalidEnumsFallBack(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		KeyChunkStrategy: "semantic",
		KeyVectorBackend: "pinecone",
		KeyLLMProvider:   "cohere",
	})
	svc := NewSettingsService(store, nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.SplitBaseline, settings.Chunking.Strategy)
	assert.Equal(t, domain.VectorBackendSQLite, settings.Vector.Backend)
	assert.Equal(t, domain.AIProvider(""), settings.LLM.Provider)
}

func TestSettingsService_Get_StoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		KeyLLMProvider:      "groq",
		KeyLLMAPIKey:        "gsk",
		KeyTopK:             "10",
		KeyDiversify:        true,
		KeyRouterUseLLM:     false,
		KeyVectorBackend:    "qdrant",
		KeyQdrantCollection: "calls",
		KeyLogFile:          "/tmp/e.jsonl",
	})
	svc := NewSettingsService(store, nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderGroq, settings.LLM.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", settings.LLM.Model)
	assert.True(t, settings.LLM.IsConfigured())
	assert.Equal(t, 10, settings.Retrieval.TopK)
	assert.True(t, settings.Retrieval.Diversify)
	assert.False(t, settings.Router.UseLLM)
	assert.Equal(t, domain.VectorBackendQdrant, settings.Vector.Backend)
	assert.Equal(t, "calls", settings.Vector.QdrantCollection)
	assert.Equal(t, "http://localhost:6333", settings.Vector.QdrantURL)
	assert.Equal(t, "/tmp/e.jsonl", settings.Log.File)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	svc := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o", APIKey: "sk"}
	settings.Retrieval.TopK = 9
	settings.Retrieval.Diversify = true
	settings.Vector.Backend = domain.VectorBackendMongo
	settings.Vector.MongoURI = "mongodb://localhost"

	require.NoError(t, svc.Save(&settings))

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, got.LLM.Provider)
	assert.Equal(t, "gpt-4o", got.LLM.Model)
	assert.Equal(t, "sk", got.LLM.APIKey)
	assert.Equal(t, 9, got.Retrieval.TopK)
	assert.True(t, got.Retrieval.Diversify)
	assert.Equal(t, "mongodb://localhost", got.Vector.MongoURI)
}

func TestSettingsService_Save_KeepsExistingSecrets(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{KeyLLMAPIKey: "keep-me"})
	svc := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, svc.Save(&settings))

	assert.Equal(t, "keep-me", store.GetString(KeyLLMAPIKey))
	_, written := store.Get(KeyEmbedAPIKey)
	assert.False(t, written)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider domain.AIProvider
		model    string
		apiKey   string
		wantErr  string
		wantURL  string
		wantMod  string
	}{
		{name: "ollama gets default url", provider: domain.AIProviderOllama, wantURL: defaultOllamaURL, wantMod: "nomic-embed-text"},
		{name: "openai with key", provider: domain.AIProviderOpenAI, apiKey: "sk", model: "text-embedding-3-large", wantMod: "text-embedding-3-large"},
		{name: "hash", provider: domain.AIProviderHash, wantMod: "deterministic-hash"},
		{name: "openai without key", provider: domain.AIProviderOpenAI, wantErr: "API key required"},
		{name: "groq has no embeddings", provider: domain.AIProviderGroq, apiKey: "k", wantErr: "does not support embeddings"},
		{name: "invalid provider", provider: "nope", wantErr: "invalid embedding provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSettingsService(memory.NewConfigStore(), nil)

			err := svc.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			settings, err := svc.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantMod, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
		})
	}
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, svc.SetLLMProvider(domain.AIProviderOllama, "", ""))
	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, defaultOllamaURL, settings.LLM.BaseURL)
	assert.Equal(t, "llama3.1", settings.LLM.Model)

	require.NoError(t, svc.SetLLMProvider(domain.AIProviderAnthropic, "claude-x", "ant"))
	settings, err = svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-x", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)

	assert.Error(t, svc.SetLLMProvider(domain.AIProviderHash, "", ""))
	assert.Error(t, svc.SetLLMProvider(domain.AIProviderGemini, "", ""))
}

func TestSettingsService_SetVectorBackend(t *testing.T) {
	store := memory.NewConfigStore()
	svc := NewSettingsService(store, nil)

	require.NoError(t, svc.SetVectorBackend(domain.VectorBackendMemory))
	assert.Equal(t, "memory", store.GetString(KeyVectorBackend))

	assert.Error(t, svc.SetVectorBackend("faiss"))
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		seed    map[string]any
		wantErr string
	}{
		{name: "defaults are valid"},
		{name: "openai embedding without key", seed: map[string]any{KeyEmbedProvider: "openai"}, wantErr: "not configured"},
		{name: "overlap too large", seed: map[string]any{KeyChunkSize: 100, KeyChunkOverlap: 100}, wantErr: "overlap"},
		{name: "negative top k", seed: map[string]any{KeyTopK: -1}, wantErr: "top_k"},
		{name: "mongo without uri", seed: map[string]any{KeyVectorBackend: "mongo"}, wantErr: KeyMongoURI},
		{name: "llm without key", seed: map[string]any{KeyLLMProvider: "anthropic"}, wantErr: "LLM provider"},
		{name: "llm configured", seed: map[string]any{KeyLLMProvider: "ollama"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSettingsService(memory.NewConfigStore(tt.seed), nil)

			err := svc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettingsService_ValidateConfigs(t *testing.T) {
	t.Run("nil probe", func(t *testing.T) {
		svc := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, svc.ValidateEmbeddingConfig())
		assert.NoError(t, svc.ValidateLLMConfig())
	})

	t.Run("delegates current settings", func(t *testing.T) {
		probe := &recordingProbe{llmErr: errors.New("unreachable")}
		store := memory.NewConfigStore(map[string]any{KeyLLMProvider: "ollama"})
		svc := NewSettingsService(store, probe)

		assert.NoError(t, svc.ValidateEmbeddingConfig())
		require.NotNil(t, probe.embedding)
		assert.Equal(t, domain.AIProviderHash, probe.embedding.Provider)

		assert.EqualError(t, svc.ValidateLLMConfig(), "unreachable")
		require.NotNil(t, probe.llm)
		assert.Equal(t, domain.AIProviderOllama, probe.llm.Provider)
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), svc.GetDefaults())
}
