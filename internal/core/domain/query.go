package domain

import (
	"sort"
	"strings"
)

// Route is the processing path chosen for a query.
type Route string

// Available routes.
const (
	// RouteRetrieve answers from retrieved transcript evidence.
	RouteRetrieve Route = "retrieve"

	// RouteClarify asks the user for more detail.
	RouteClarify Route = "clarify"

	// RouteDirect answers conceptually without evidence.
	RouteDirect Route = "direct"
)

// IsValid returns true if the route is recognised.
func (r Route) IsValid() bool {
	switch r {
	case RouteRetrieve, RouteClarify, RouteDirect:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Route) String() string {
	return string(r)
}

// ParseRoute normalises a route name. Unknown values become RouteRetrieve.
func ParseRoute(s string) Route {
	r := Route(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return RouteRetrieve
	}
	return r
}

// RouteDecision is the Router's output for one query.
type RouteDecision struct {
	Route   Route             `json:"route"`
	Reason  string            `json:"reason"`
	Filters map[string]string `json:"filters"`
}

// RetrievedChunk is one piece of evidence from a single retrieval call.
// CitationID is "S1".."Sk" in rank order and is not persisted.
type RetrievedChunk struct {
	CitationID string         `json:"citation_id"`
	Text       string         `json:"text"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

// DocID returns the chunk's parent document identifier.
func (c RetrievedChunk) DocID() string {
	return MetaString(c.Metadata, MetaDocID)
}

// Section returns the chunk's section metadata.
func (c RetrievedChunk) Section() string {
	return MetaString(c.Metadata, MetaSection)
}

// Citation ties an answer to a retrieved chunk that it referenced.
type Citation struct {
	CitationID string  `json:"citation_id"`
	Company    string  `json:"company"`
	Source     string  `json:"source"`
	Section    string  `json:"section"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// Answer is the Synthesizer's output.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// QueryRequest holds the caller inputs for one run of the state machine.
type QueryRequest struct {
	Query        string
	Namespace    string
	UserFilters  map[string]string
	UseLLMRouter bool
	TopK         int
	Diversify    bool
	Debug        bool
}

// QueryState is the record threaded through the query state machine.
//
// Stages never mutate a state in place: every With* method returns an
// updated copy and leaves the receiver untouched. Fields only accumulate.
type QueryState struct {
	RunID               string            `json:"run_id"`
	Query               string            `json:"query"`
	Namespace           string            `json:"namespace"`
	UserFilters         map[string]string `json:"user_filters"`
	UseLLMRouter        bool              `json:"use_llm_router"`
	TopK                int               `json:"top_k"`
	Diversify           bool              `json:"diversify"`
	Route               Route             `json:"route,omitempty"`
	RouteReason         string            `json:"route_reason,omitempty"`
	Filters             map[string]string `json:"filters,omitempty"`
	RetrievedChunks     []RetrievedChunk  `json:"retrieved_chunks"`
	Answer              string            `json:"answer,omitempty"`
	Citations           []Citation        `json:"citations"`
	ClarifyingQuestions []string          `json:"clarifying_questions,omitempty"`
	Error               string            `json:"error,omitempty"`
	Debug               bool              `json:"debug"`
}

// NewQueryState builds the initial state for a request.
func NewQueryState(runID string, req QueryRequest) QueryState {
	return QueryState{
		RunID:        runID,
		Query:        req.Query,
		Namespace:    req.Namespace,
		UserFilters:  copyStrings(req.UserFilters),
		UseLLMRouter: req.UseLLMRouter,
		TopK:         req.TopK,
		Diversify:    req.Diversify,
		Debug:        req.Debug,
		Citations:    []Citation{},
	}
}

// Clone returns a deep copy of the state.
func (s QueryState) Clone() QueryState {
	out := s
	out.UserFilters = copyStrings(s.UserFilters)
	out.Filters = copyStrings(s.Filters)
	if s.RetrievedChunks != nil {
		out.RetrievedChunks = make([]RetrievedChunk, len(s.RetrievedChunks))
		for i, c := range s.RetrievedChunks {
			c.Metadata = CopyMetadata(c.Metadata)
			out.RetrievedChunks[i] = c
		}
	}
	if s.Citations != nil {
		out.Citations = append([]Citation{}, s.Citations...)
	}
	if s.ClarifyingQuestions != nil {
		out.ClarifyingQuestions = append([]string{}, s.ClarifyingQuestions...)
	}
	return out
}

// WithRoute records the router decision.
func (s QueryState) WithRoute(d RouteDecision) QueryState {
	out := s.Clone()
	out.Route = d.Route
	out.RouteReason = d.Reason
	out.Filters = copyStrings(d.Filters)
	if out.Filters == nil {
		out.Filters = map[string]string{}
	}
	return out
}

// WithRetrieved records retrieved evidence. A nil slice is stored as empty.
func (s QueryState) WithRetrieved(chunks []RetrievedChunk) QueryState {
	out := s.Clone()
	out.RetrievedChunks = make([]RetrievedChunk, len(chunks))
	copy(out.RetrievedChunks, chunks)
	return out
}

// WithAnswer records the final answer and its citations.
func (s QueryState) WithAnswer(answer string, citations []Citation) QueryState {
	out := s.Clone()
	out.Answer = answer
	out.Citations = append([]Citation{}, citations...)
	return out
}

// WithClarification records clarifying questions and the combined answer.
func (s QueryState) WithClarification(questions []string, answer string) QueryState {
	out := s.WithAnswer(answer, nil)
	out.ClarifyingQuestions = append([]string{}, questions...)
	return out
}

// WithError appends an error message. Earlier errors are kept.
func (s QueryState) WithError(msg string) QueryState {
	out := s.Clone()
	if out.Error == "" {
		out.Error = msg
	} else {
		out.Error = out.Error + "; " + msg
	}
	return out
}

// MergeFilters overlays override on top of base by key.
func MergeFilters(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// SortedKeys returns the keys of a filter map in sorted order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyStrings(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
