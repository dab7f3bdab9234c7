package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// Heuristic vocabularies.
var (
	// DirectHints start conceptual questions.
	DirectHints = []string{"what is", "explain", "how does", "difference between", "define"}

	// SpecificHints mark a query as needing transcript evidence.
	SpecificHints = []string{
		"guidance", "quarter", "q1", "q2", "q3", "q4",
		"earnings call", "transcript",
		"tesla", "apple", "microsoft", "meta", "amazon",
	}

	// AmbiguousPhrases are matched as substrings.
	AmbiguousPhrases = []string{"more about"}
)

// ambiguousWords matches standalone referential tokens.
var ambiguousWords = regexp.MustCompile(`\b(this|that|it|they|those|these)\b`)

// codeFence matches an opening markdown fence with an optional json tag.
var codeFence = regexp.MustCompile("(?i)^```(?:json)?")

// minSpecificQueryLen is the rune length below which a query is clarified.
const minSpecificQueryLen = 12

// Fixed reasons for heuristic routes.
const (
	ReasonDirect   = "Query asks for general explanation, not transcript evidence."
	ReasonClarify  = "Query is short or referential; clarification improves precision."
	ReasonRetrieve = "Query appears specific enough for evidence-grounded retrieval."
	reasonMissing  = "No reason provided."
)

// Router picks retrieve, clarify or direct for a query.
// The LLM classifier is optional; the heuristic is always available.
type Router struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewRouter creates a router. llm and prompts may be nil.
func NewRouter(llm driven.LLMService, prompts driven.PromptStore) *Router {
	return &Router{llm: llm, prompts: prompts}
}

// Route returns the decision for query. Classifier failures fall back to
// the heuristic and are only visible in logs. userFilters override any
// filters proposed by the classifier.
func (r *Router) Route(ctx context.Context, query string, useLLM bool, userFilters map[string]string) domain.RouteDecision {
	var decision domain.RouteDecision

	if useLLM {
		d, err := r.classify(ctx, query)
		if err != nil {
			route, reason := HeuristicRoute(query)
			decision = domain.RouteDecision{Route: route, Reason: reason}
			logger.Warn("LLM router failed; falling back to heuristic route %s: %v", route, err)
			logger.Event("router.fallback",
				zap.String("error", err.Error()),
				zap.String("fallback_route", route.String()),
			)
		} else {
			decision = d
		}
	} else {
		route, reason := HeuristicRoute(query)
		decision = domain.RouteDecision{Route: route, Reason: reason}
	}

	decision.Filters = domain.MergeFilters(decision.Filters, userFilters)

	logger.Info("Router decision: route=%s reason=%q filters=%v", decision.Route, decision.Reason, decision.Filters)
	return decision
}

// HeuristicRoute is the deterministic router used offline and as fallback.
func HeuristicRoute(query string) (domain.Route, string) {
	q := strings.ToLower(strings.TrimSpace(query))

	if hasPrefixAny(q, DirectHints) && !containsAny(q, SpecificHints) {
		return domain.RouteDirect, ReasonDirect
	}

	if utf8.RuneCountInString(q) < minSpecificQueryLen || isAmbiguous(q) {
		return domain.RouteClarify, ReasonClarify
	}

	return domain.RouteRetrieve, ReasonRetrieve
}

func isAmbiguous(q string) bool {
	return ambiguousWords.MatchString(q) || containsAny(q, AmbiguousPhrases)
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// classify asks the LLM for {route, reason, filters}.
func (r *Router) classify(ctx context.Context, query string) (domain.RouteDecision, error) {
	if r.llm == nil {
		return domain.RouteDecision{}, fmt.Errorf("%w: %w", domain.ErrCapabilityUnavailable, domain.ErrLLMUnavailable)
	}

	raw, err := r.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(r.prompts, driven.PromptRouterSystem)},
		{Role: driven.RoleUser, Content: "Query: " + query},
	}, driven.ChatOptions{JSON: true})
	if err != nil {
		return domain.RouteDecision{}, fmt.Errorf("%w: router classifier: %w", domain.ErrCapabilityUnavailable, err)
	}

	return ParseRouteDecision(raw)
}

// ParseRouteDecision parses classifier output. Unknown routes become
// retrieve; non-object filters are ignored.
func ParseRouteDecision(raw string) (domain.RouteDecision, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
		text = strings.TrimSpace(strings.TrimRight(text, "`"))
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return domain.RouteDecision{}, fmt.Errorf("%w: router returned non-JSON output: %s", domain.ErrMalformedCapabilityOutput, text)
	}

	route := domain.RouteRetrieve
	if v, ok := payload["route"]; ok {
		route = domain.ParseRoute(scalarString(v))
	}

	reason := reasonMissing
	if v, ok := payload["reason"]; ok && v != nil {
		reason = scalarString(v)
	}

	filters := map[string]string{}
	if m, ok := payload["filters"].(map[string]any); ok {
		for k, v := range m {
			if s, ok := filterValue(v); ok {
				filters[k] = s
			}
		}
	}

	return domain.RouteDecision{Route: route, Reason: reason, Filters: filters}, nil
}

// filterValue keeps scalar filter values; nested values are dropped.
func filterValue(v any) (string, bool) {
	switch v.(type) {
	case string, float64, bool:
		return scalarString(v), true
	default:
		return "", false
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
