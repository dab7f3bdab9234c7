package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for earnings-rag resources.
	uriScheme = "earnings-rag://"

	mimeJSON = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Resolved providers, vector backend and retrieval defaults (secrets masked)",
		MIMEType:    mimeJSON,
	}, s.handleSettingsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "experiments",
		Name:        "experiments",
		Description: "Evaluation experiments and their retrieval settings",
		MIMEType:    mimeJSON,
	}, s.handleExperimentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "experiments/{name}",
		Name:        "experiment",
		Description: "A single evaluation experiment",
		MIMEType:    mimeJSON,
	}, s.handleExperimentResource)
}

// settingsView is the published form of the settings.
type settingsView struct {
	EmbeddingProvider string `json:"embedding_provider"`
	EmbeddingModel    string `json:"embedding_model"`
	EmbeddingAPIKey   string `json:"embedding_api_key,omitempty"`
	LLMProvider       string `json:"llm_provider"`
	LLMModel          string `json:"llm_model"`
	LLMAPIKey         string `json:"llm_api_key,omitempty"`
	VectorBackend     string `json:"vector_backend"`
	Namespace         string `json:"namespace"`
	ChunkStrategy     string `json:"chunk_strategy"`
	ChunkSize         int    `json:"chunk_size"`
	ChunkOverlap      int    `json:"chunk_overlap"`
	TopK              int    `json:"top_k"`
	Diversify         bool   `json:"diversify"`
	RouterUseLLM      bool   `json:"router_use_llm"`
}

// handleSettingsResource returns the current settings.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.settings == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("getting settings: %w", err)
	}

	view := settingsView{
		EmbeddingProvider: settings.Embedding.Provider.String(),
		EmbeddingModel:    settings.Embedding.Model,
		EmbeddingAPIKey:   domain.MaskSecret(settings.Embedding.APIKey),
		LLMProvider:       settings.LLM.Provider.String(),
		LLMModel:          settings.LLM.Model,
		LLMAPIKey:         domain.MaskSecret(settings.LLM.APIKey),
		VectorBackend:     settings.Vector.Backend.String(),
		Namespace:         settings.Vector.Namespace,
		ChunkStrategy:     settings.Chunking.Strategy.String(),
		ChunkSize:         settings.Chunking.Size,
		ChunkOverlap:      settings.Chunking.Overlap,
		TopK:              settings.Retrieval.TopK,
		Diversify:         settings.Retrieval.Diversify,
		RouterUseLLM:      settings.Router.UseLLM,
	}
	return jsonResource(req.Params.URI, view, "settings")
}

// handleExperimentsResource lists the configured experiments.
func (s *Server) handleExperimentsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	experiments := s.experiments
	if experiments == nil {
		experiments = []domain.Experiment{}
	}
	return jsonResource(req.Params.URI, experiments, "experiments")
}

// handleExperimentResource returns one experiment by name.
func (s *Server) handleExperimentResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractExperimentName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	for _, exp := range s.experiments {
		if exp.Name == name {
			return jsonResource(req.Params.URI, exp, "experiment")
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResource(uri string, v any, what string) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", what, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractExperimentName extracts the name from earnings-rag://experiments/{name}.
func extractExperimentName(uri string) string {
	const prefix = uriScheme + "experiments/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	name := strings.TrimPrefix(uri, prefix)
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}

