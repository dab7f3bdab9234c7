package driving

import (
	"context"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// QueryService answers questions through the route, retrieve and synthesize
// state machine.
type QueryService interface {
	// Run executes one query to completion. The returned state is always
	// well formed; capability failures are recorded in its Error field.
	Run(ctx context.Context, req domain.QueryRequest) domain.QueryState

	// Route returns the routing decision for a query without answering it.
	Route(ctx context.Context, query string, useLLM bool, userFilters map[string]string) domain.RouteDecision

	// Retrieve returns the evidence chunks for a query.
	Retrieve(ctx context.Context, query, namespace string, topK int, diversify bool, filters map[string]string) ([]domain.RetrievedChunk, error)
}
