package tui

import (
	"context"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

type fakeQuery struct {
	run func(ctx context.Context, req domain.QueryRequest) domain.QueryState
}

func (f *fakeQuery) Run(ctx context.Context, req domain.QueryRequest) domain.QueryState {
	if f.run != nil {
		return f.run(ctx, req)
	}
	return domain.QueryState{Query: req.Query, Route: domain.RouteDirect, Answer: "ok"}
}

func (f *fakeQuery) Route(context.Context, string, bool, map[string]string) domain.RouteDecision {
	return domain.RouteDecision{}
}

func (f *fakeQuery) Retrieve(context.Context, string, string, int, bool, map[string]string) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

// fakeSettings serves Get; the write methods are never reached from the TUI.
type fakeSettings struct {
	settings *domain.AppSettings
	err      error
}

func (f *fakeSettings) Get() (*domain.AppSettings, error) { return f.settings, f.err }
func (f *fakeSettings) Save(*domain.AppSettings) error { return nil }
func (f *fakeSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (f *fakeSettings) SetEmbeddingProvider(domain.AIProvider, string, string) error { return nil }
func (f *fakeSettings) SetLLMProvider(domain.AIProvider, string, string) error { return nil }
func (f *fakeSettings) SetVectorBackend(domain.VectorBackend) error { return nil }
func (f *fakeSettings) Validate() error { return nil }
func (f *fakeSettings) ValidateEmbeddingConfig() error { return nil }
func (f *fakeSettings) ValidateLLMConfig() error { return nil }
