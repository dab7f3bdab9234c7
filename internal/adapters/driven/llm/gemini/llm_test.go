package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(context.Background(), Config{})
	assert.Error(t, err)

	s, err := NewLLMService(context.Background(), Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.NoError(t, s.Close())
}

func TestBuildRequest(t *testing.T) {
	contents, config := buildRequest([]driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "be terse"},
		{Role: driven.RoleUser, Content: "q1"},
		{Role: driven.RoleAssistant, Content: "a1"},
		{Role: driven.RoleUser, Content: "q2"},
	}, driven.ChatOptions{MaxTokens: 200, Temperature: 0.2, JSON: true})

	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "a1", contents[1].Parts[0].Text)

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "be terse", config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, int32(200), config.MaxOutputTokens)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.2, *config.Temperature, 1e-6)
	assert.Equal(t, "application/json", config.ResponseMIMEType)
}

func TestBuildRequest_NoSystem(t *testing.T) {
	contents, config := buildRequest([]driven.ChatMessage{{Role: driven.RoleUser, Content: "hi"}}, driven.ChatOptions{})

	assert.Len(t, contents, 1)
	assert.Nil(t, config.SystemInstruction)
	assert.Empty(t, config.ResponseMIMEType)
	assert.Zero(t, config.MaxOutputTokens)
}
