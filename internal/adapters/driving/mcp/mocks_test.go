package mcp

import (
	"context"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	state    domain.QueryState
	decision domain.RouteDecision
	chunks   []domain.RetrievedChunk
	err      error

	lastRequest domain.QueryRequest
	lastUseLLM  bool
	lastFilters map[string]string
	lastTopK    int
	lastNS      string
}

func (m *mockQueryService) Run(_ context.Context, req domain.QueryRequest) domain.QueryState {
	m.lastRequest = req
	return m.state
}

func (m *mockQueryService) Route(_ context.Context, _ string, useLLM bool, userFilters map[string]string) domain.RouteDecision {
	m.lastUseLLM = useLLM
	m.lastFilters = userFilters
	return m.decision
}

func (m *mockQueryService) Retrieve(
	_ context.Context, _, namespace string, topK int, _ bool, filters map[string]string,
) ([]domain.RetrievedChunk, error) {
	m.lastNS = namespace
	m.lastTopK = topK
	m.lastFilters = filters
	return m.chunks, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error { return m.err }

func (m *mockSettingsService) SetEmbeddingProvider(_ domain.AIProvider, _, _ string) error {
	return m.err
}

func (m *mockSettingsService) SetLLMProvider(_ domain.AIProvider, _, _ string) error { return m.err }

func (m *mockSettingsService) SetVectorBackend(_ domain.VectorBackend) error { return m.err }

func (m *mockSettingsService) Validate() error { return m.err }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.err }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.err }
