package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// Fixed node answers.
const (
	ClarifyPreamble     = "I need a bit more detail before retrieving evidence."
	ClarifyFocusPrompt  = "Do you want risks, guidance, or financial-performance details?"
	DirectFallback      = "This is a general question. I can answer conceptually, or retrieve transcript evidence if you specify a company and quarter."
	SynthesisFailAnswer = "I could not synthesize an evidence-grounded answer."
)

// Node names, used in logs and events.
const (
	nodeRouter     = "router"
	nodeClarify    = "clarify"
	nodeDirect     = "direct"
	nodeRetrieve   = "retrieve"
	nodeSynthesize = "synthesize"
)

// node is one state-machine step. A node never mutates its input.
type node func(ctx context.Context, s domain.QueryState) domain.QueryState

// QueryService runs the query state machine:
//
//	router -> clarify -> end
//	router -> direct -> end
//	router -> retrieve -> synthesize -> end
type QueryService struct {
	router      *Router
	retriever   *Retriever
	synthesizer *Synthesizer
	llm         driven.LLMService
	prompts     driven.PromptStore
	namespace   string
	topK        int
	newRunID    func() string
}

// QueryOption configures a QueryService.
type QueryOption func(*QueryService)

// WithDefaultNamespace sets the namespace used when a request has none.
func WithDefaultNamespace(ns string) QueryOption {
	return func(s *QueryService) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithDefaultTopK sets the top_k used when a request has none.
func WithDefaultTopK(k int) QueryOption {
	return func(s *QueryService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(fn func() string) QueryOption {
	return func(s *QueryService) { s.newRunID = fn }
}

// NewQueryService creates the orchestrator. llm answers direct queries and
// may be nil, in which case direct queries get DirectFallback.
func NewQueryService(
	router *Router,
	retriever *Retriever,
	synthesizer *Synthesizer,
	llm driven.LLMService,
	prompts driven.PromptStore,
	opts ...QueryOption,
) *QueryService {
	s := &QueryService{
		router:      router,
		retriever:   retriever,
		synthesizer: synthesizer,
		llm:         llm,
		prompts:     prompts,
		namespace:   domain.DefaultNamespace,
		topK:        domain.DefaultTopK,
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one query. It always returns a completed state.
func (s *QueryService) Run(ctx context.Context, req domain.QueryRequest) domain.QueryState {
	if req.Namespace == "" {
		req.Namespace = s.namespace
	}
	if req.TopK <= 0 {
		req.TopK = s.topK
	}

	state := domain.NewQueryState(s.newRunID(), req)
	logger.Section("Query " + state.RunID)
	logger.Debug("Query: %q namespace=%s top_k=%d", state.Query, state.Namespace, state.TopK)

	state = s.routerNode(ctx, state)
	logger.Debug("Node %s done", nodeRouter)
	for _, name := range path(state.Route) {
		state = s.step(name)(ctx, state)
		logger.Debug("Node %s done", name)
	}

	logger.Event("query.completed",
		zap.String("run_id", state.RunID),
		zap.String("route", state.Route.String()),
		zap.Int("chunks", len(state.RetrievedChunks)),
		zap.Int("citations", len(state.Citations)),
		zap.Bool("error", state.Error != ""),
	)
	return state
}

// path returns the nodes that follow the router for a route.
func path(route domain.Route) []string {
	switch route {
	case domain.RouteClarify:
		return []string{nodeClarify}
	case domain.RouteDirect:
		return []string{nodeDirect}
	default:
		return []string{nodeRetrieve, nodeSynthesize}
	}
}

func (s *QueryService) step(name string) node {
	switch name {
	case nodeClarify:
		return clarifyNode
	case nodeDirect:
		return s.directNode
	case nodeRetrieve:
		return s.retrieveNode
	default:
		return s.synthesizeNode
	}
}

// Route exposes the router.
func (s *QueryService) Route(ctx context.Context, query string, useLLM bool, userFilters map[string]string) domain.RouteDecision {
	return s.routerOrDefault().Route(ctx, query, useLLM, userFilters)
}

// Retrieve exposes the retriever.
func (s *QueryService) Retrieve(
	ctx context.Context, query, namespace string, topK int, diversify bool, filters map[string]string,
) ([]domain.RetrievedChunk, error) {
	if s.retriever == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCapabilityUnavailable, domain.ErrVectorIndexUnavailable)
	}
	if namespace == "" {
		namespace = s.namespace
	}
	if topK <= 0 {
		topK = s.topK
	}
	return s.retriever.Retrieve(ctx, query, namespace, topK, diversify, filters)
}

func (s *QueryService) routerOrDefault() *Router {
	if s.router == nil {
		return NewRouter(nil, nil)
	}
	return s.router
}

func (s *QueryService) routerNode(ctx context.Context, state domain.QueryState) domain.QueryState {
	decision := s.routerOrDefault().Route(ctx, state.Query, state.UseLLMRouter, state.UserFilters)
	return state.WithRoute(decision)
}

// clarifyNode is offline and never fails.
func clarifyNode(_ context.Context, state domain.QueryState) domain.QueryState {
	questions := ClarifyingQuestions(state.Query)
	answer := ClarifyPreamble + "\n- " + strings.Join(questions, "\n- ")
	logger.Info("Clarify node triggered with %d questions", len(questions))
	return state.WithClarification(questions, answer)
}

// ClarifyingQuestions returns the two clarifying questions for a query.
func ClarifyingQuestions(query string) []string {
	return []string{
		fmt.Sprintf("Can you specify the company and quarter for: '%s'?", query),
		ClarifyFocusPrompt,
	}
}

func (s *QueryService) directNode(ctx context.Context, state domain.QueryState) domain.QueryState {
	answer, err := s.directAnswer(ctx, state.Query)
	if err != nil {
		logger.Warn("Direct answer failed; using fallback: %v", err)
		logger.Event("direct.failed", zap.String("run_id", state.RunID), zap.String("error", err.Error()))
		return state.WithAnswer(DirectFallback, nil).WithError(err.Error())
	}
	logger.Info("Direct answer node completed")
	return state.WithAnswer(answer, nil)
}

func (s *QueryService) directAnswer(ctx context.Context, query string) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCapabilityUnavailable, domain.ErrLLMUnavailable)
	}
	raw, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(s.prompts, driven.PromptDirectSystem)},
		{Role: driven.RoleUser, Content: query},
	}, driven.ChatOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: direct answer: %w", domain.ErrCapabilityUnavailable, err)
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", fmt.Errorf("%w: empty direct answer", domain.ErrMalformedCapabilityOutput)
	}
	return answer, nil
}

func (s *QueryService) retrieveNode(ctx context.Context, state domain.QueryState) domain.QueryState {
	chunks, err := s.Retrieve(ctx, state.Query, state.Namespace, state.TopK, state.Diversify, state.Filters)
	if err != nil {
		logger.Warn("Retrieve node failed: %v", err)
		logger.Event("retrieve.failed", zap.String("run_id", state.RunID), zap.String("error", err.Error()))
		return state.WithRetrieved(nil).WithError(err.Error())
	}

	if state.Debug {
		for _, c := range chunks {
			logger.Debug("  %s score=%.4f doc=%s section=%s", c.CitationID, c.Score, c.DocID(), c.Section())
		}
	}
	logger.Info("Retrieve node completed with %d chunks", len(chunks))
	return state.WithRetrieved(chunks)
}

func (s *QueryService) synthesizeNode(ctx context.Context, state domain.QueryState) domain.QueryState {
	synth := s.synthesizer
	if synth == nil {
		synth = NewSynthesizer(nil, s.prompts)
	}

	answer, err := synth.Synthesize(ctx, state.Query, state.RetrievedChunks)
	if err != nil {
		logger.Warn("Synthesize node failed: %v", err)
		logger.Event("synthesize.failed", zap.String("run_id", state.RunID), zap.String("error", err.Error()))
		return state.WithAnswer(SynthesisFailAnswer, nil).WithError(err.Error())
	}
	logger.Info("Synthesize node completed with %d citations", len(answer.Citations))
	return state.WithAnswer(answer.Text, answer.Citations)
}
