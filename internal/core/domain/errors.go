package domain

import "errors"

// Input errors. Callers see these before any work starts.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidParameters = errors.New("invalid parameters")
)

// Capability errors. Services wrap a specific cause such as
// ErrLLMUnavailable in ErrCapabilityUnavailable so callers can match either.
var (
	ErrCapabilityUnavailable     = errors.New("capability unavailable")
	ErrMalformedCapabilityOutput = errors.New("malformed capability output")

	// ErrLLMUnavailable sends routing to the heuristic and direct answers to
	// a fixed reply.
	ErrLLMUnavailable         = errors.New("LLM service unavailable")
	ErrEmbeddingUnavailable   = errors.New("embedding service unavailable")
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)

// Index errors.
var (
	ErrIndexFailure      = errors.New("vector index failure")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
