package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestExtractExperimentName(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid", uri: "earnings-rag://experiments/improved", expected: "improved"},
		{name: "invalid prefix", uri: "file://experiments/improved", expected: ""},
		{name: "nested path", uri: "earnings-rag://experiments/a/b", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractExperimentName(tt.uri))
		})
	}
}

func TestServer_handleSettingsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil settings service returns not found", func(t *testing.T) {
		server := newTestServer(t, &mockQueryService{})

		_, err := server.handleSettingsResource(ctx, makeReadResourceRequest("earnings-rag://settings"))
		require.Error(t, err)
	})

	t.Run("masks secrets", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.LLM = domain.LLMSettings{Provider: domain.AIProviderGroq, Model: "llama-3.1-8b-instant", APIKey: "gsk_secretsecret1234"}

		server, err := NewServer(&mockQueryService{}, WithSettings(&mockSettingsService{settings: &settings}))
		require.NoError(t, err)

		result, err := server.handleSettingsResource(ctx, makeReadResourceRequest("earnings-rag://settings"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		text := result.Contents[0].Text
		assert.Contains(t, text, `"llm_provider": "groq"`)
		assert.Contains(t, text, `"llm_api_key": "****1234"`)
		assert.NotContains(t, text, "gsk_secret")
		assert.Contains(t, text, `"namespace": "earnings-call-rag"`)
	})
}

func TestServer_handleSettingsResource_Error(t *testing.T) {
	server, err := NewServer(&mockQueryService{}, WithSettings(&mockSettingsService{err: errors.New("unreadable")}))
	require.NoError(t, err)

	_, err = server.handleSettingsResource(context.Background(), makeReadResourceRequest("earnings-rag://settings"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "getting settings")
}

func TestServer_handleExperimentResources(t *testing.T) {
	ctx := context.Background()
	server, err := NewServer(&mockQueryService{}, WithExperiments(domain.DefaultExperiments()))
	require.NoError(t, err)

	t.Run("lists experiments", func(t *testing.T) {
		result, err := server.handleExperimentsResource(ctx, makeReadResourceRequest("earnings-rag://experiments"))
		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"name": "baseline"`)
		assert.Contains(t, result.Contents[0].Text, `"name": "improved"`)
	})

	t.Run("empty list without experiments", func(t *testing.T) {
		result, err := newTestServer(t, &mockQueryService{}).
			handleExperimentsResource(ctx, makeReadResourceRequest("earnings-rag://experiments"))
		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("single experiment", func(t *testing.T) {
		result, err := server.handleExperimentResource(ctx, makeReadResourceRequest("earnings-rag://experiments/improved"))
		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"strategy": "structure_aware"`)
		assert.Contains(t, result.Contents[0].Text, `"top_k": 8`)
	})

	t.Run("unknown experiment", func(t *testing.T) {
		_, err := server.handleExperimentResource(ctx, makeReadResourceRequest("earnings-rag://experiments/nope"))
		require.Error(t, err)
	})
}
