// Package chunker provides the uniform and structure-aware chunking processors.
//
// Lengths and offsets are counted in characters (runes), not bytes, so a
// window never splits a multi-byte character.
package chunker

import (
	"regexp"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/ids"
)

// markerPattern matches a speaker or Q&A marker at the start of a line.
var markerPattern = regexp.MustCompile(`(?im)^\s*(operator|analyst|ceo|cfo|question|answer|q:|a:)\b`)

// HasMarker reports whether text contains a speaker or Q&A marker on any line.
func HasMarker(text string) bool {
	return markerPattern.MatchString(text)
}

// newChunk builds chunk index of doc with the shared metadata layout.
func newChunk(doc *domain.Document, strategy domain.SplitStrategy, index int, text, section string, size, overlap int) domain.Chunk {
	docID := doc.DocID()
	id := ids.ChunkID(docID, strategy.String(), index, text)

	metadata := domain.CopyMetadata(doc.Metadata)
	metadata[domain.MetaChunkID] = id
	metadata[domain.MetaChunkIndex] = index
	metadata[domain.MetaSplit] = strategy.String()
	metadata[domain.MetaChunkSize] = size
	metadata[domain.MetaChunkOverlap] = overlap
	metadata[domain.MetaSection] = section

	return domain.Chunk{
		ID:         id,
		DocumentID: docID,
		Index:      index,
		Content:    text,
		Strategy:   strategy,
		Section:    section,
		Size:       size,
		Overlap:    overlap,
		Metadata:   metadata,
	}
}
