// Package services holds the earnings-rag use cases behind the driving
// ports: routing, retrieval, synthesis, indexing and evaluation.
//
// A question goes Router, then Clarify, Direct or Retrieve followed by
// Synthesize. Capabilities are reached only through driven ports, so the
// whole pipeline runs offline with the heuristic router and hash embeddings.
package services
