package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// errEmptyQuery is returned by every tool when the query is blank.
var errEmptyQuery = errors.New("query is required")

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query        string `json:"query" jsonschema:"the question about earnings-call transcripts"`
	Namespace    string `json:"namespace,omitempty" jsonschema:"vector namespace to search (default from settings)"`
	Company      string `json:"company,omitempty" jsonschema:"restrict evidence to this company"`
	Section      string `json:"section,omitempty" jsonschema:"restrict evidence to a section: qa, discussion or transcript"`
	TopK         int    `json:"top_k,omitempty" jsonschema:"number of evidence chunks to retrieve (default 6)"`
	Diversify    bool   `json:"diversify,omitempty" jsonschema:"prefer one chunk per document section"`
	UseLLMRouter *bool  `json:"use_llm_router,omitempty" jsonschema:"classify the query with the LLM before the keyword heuristic"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	RunID               string            `json:"run_id"`
	Route               string            `json:"route"`
	RouteReason         string            `json:"route_reason"`
	Answer              string            `json:"answer"`
	Citations           []domain.Citation `json:"citations"`
	ClarifyingQuestions []string          `json:"clarifying_questions,omitempty"`
	Error               string            `json:"error,omitempty"`
}

// RouteInput is the input schema for the route tool.
type RouteInput struct {
	Query        string `json:"query" jsonschema:"the query to classify"`
	UseLLMRouter *bool  `json:"use_llm_router,omitempty" jsonschema:"classify with the LLM before the keyword heuristic"`
}

// RouteOutput is the output schema for the route tool.
type RouteOutput struct {
	Route   string            `json:"route"`
	Reason  string            `json:"reason"`
	Filters map[string]string `json:"filters"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query     string `json:"query" jsonschema:"the query to embed"`
	Namespace string `json:"namespace,omitempty" jsonschema:"vector namespace to search (default from settings)"`
	Company   string `json:"company,omitempty" jsonschema:"restrict evidence to this company"`
	Section   string `json:"section,omitempty" jsonschema:"restrict evidence to a section"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"number of chunks to return (default 6)"`
	Diversify bool   `json:"diversify,omitempty" jsonschema:"prefer one chunk per document section"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput is one retrieved evidence chunk.
type ChunkOutput struct {
	CitationID string  `json:"citation_id"`
	DocID      string  `json:"doc_id"`
	Section    string  `json:"section"`
	Company    string  `json:"company"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from indexed earnings-call transcripts with citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "route",
		Description: "Classify a query as retrieve, clarify or direct without answering it",
	}, s.handleRoute)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the ranked transcript chunks for a query",
	}, s.handleRetrieve)
}

// handleAsk runs the full pipeline. Pipeline failures are reported in the
// output's error field, not as tool errors.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, AskOutput{}, errEmptyQuery
	}

	state := s.query.Run(ctx, domain.QueryRequest{
		Query:        input.Query,
		Namespace:    input.Namespace,
		UserFilters:  userFilters(input.Company, input.Section),
		UseLLMRouter: s.routerFlag(input.UseLLMRouter),
		TopK:         input.TopK,
		Diversify:    input.Diversify,
	})

	return nil, AskOutput{
		RunID:               state.RunID,
		Route:               state.Route.String(),
		RouteReason:         state.RouteReason,
		Answer:              state.Answer,
		Citations:           state.Citations,
		ClarifyingQuestions: state.ClarifyingQuestions,
		Error:               state.Error,
	}, nil
}

// handleRoute returns the routing decision for a query.
func (s *Server) handleRoute(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RouteInput,
) (*mcp.CallToolResult, RouteOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RouteOutput{}, errEmptyQuery
	}

	d := s.query.Route(ctx, input.Query, s.routerFlag(input.UseLLMRouter), nil)
	return nil, RouteOutput{Route: d.Route.String(), Reason: d.Reason, Filters: d.Filters}, nil
}

// handleRetrieve returns evidence chunks for a query.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RetrieveOutput{}, errEmptyQuery
	}

	chunks, err := s.query.Retrieve(ctx, input.Query, input.Namespace, input.TopK, input.Diversify,
		userFilters(input.Company, input.Section))
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i, c := range chunks {
		output.Chunks[i] = ChunkOutput{
			CitationID: c.CitationID,
			DocID:      c.DocID(),
			Section:    c.Section(),
			Company:    domain.MetaString(c.Metadata, domain.MetaCompany),
			Score:      c.Score,
			Text:       c.Text,
		}
	}
	return nil, output, nil
}

func (s *Server) routerFlag(v *bool) bool {
	if v == nil {
		return s.useLLM
	}
	return *v
}

// userFilters builds the metadata filter from the optional company and
// section arguments.
func userFilters(company, section string) map[string]string {
	filters := map[string]string{}
	if company != "" {
		filters[domain.MetaCompany] = company
	}
	if section != "" {
		filters[domain.MetaSection] = section
	}
	return filters
}
