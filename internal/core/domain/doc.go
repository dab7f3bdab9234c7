// Package domain holds the types every earnings-rag layer shares:
//
//   - Record and Document, a transcript before and after normalisation
//   - Chunk, a bounded slice of a document with a stable id
//   - RetrievedChunk, one scored hit from a retrieval call
//   - QueryState, the record a question carries through routing,
//     retrieval and synthesis
//   - AppSettings and Experiment, resolved configuration
//
// The package imports only the standard library. Services and adapters
// depend on it and it depends on nothing in internal/.
package domain
