package domain

import (
	"fmt"
	"strconv"
)

// Well-known metadata keys carried by documents and chunks.
const (
	MetaDocID        = "doc_id"
	MetaChunkID      = "chunk_id"
	MetaChunkIndex   = "chunk_index"
	MetaSplit        = "split"
	MetaSection      = "section"
	MetaChunkSize    = "chunk_size"
	MetaChunkOverlap = "chunk_overlap"
	MetaSourceSplit  = "source_split"
	MetaQuestion     = "question"
	MetaAnswer       = "answer"
	MetaCompany      = "company"
	MetaSource       = "source"
	MetaText         = "text"
	MetaIngestedAt   = "ingested_at"
)

// Section values.
const (
	// SectionTranscript is the default section of a whole document.
	SectionTranscript = "transcript"

	// SectionQA marks a chunk containing a speaker or Q&A marker.
	SectionQA = "qa"

	// SectionDiscussion marks a structure-aware chunk without markers.
	SectionDiscussion = "discussion"
)

// Record is a canonical row loaded from a dataset or file.
// Records are turned into Documents by the transcript normaliser.
type Record struct {
	// DocID is the stable content-addressed document identifier.
	DocID string `json:"doc_id"`

	// Question is the dataset question, if any.
	Question string `json:"question"`

	// Answer is the dataset reference answer, if any.
	Answer string `json:"answer"`

	// Text is the transcript body.
	Text string `json:"text"`

	// Metadata holds the remaining scalar fields of the row.
	Metadata map[string]any `json:"metadata"`
}

// Document is a normalised transcript ready for chunking.
// Metadata always carries doc_id and section.
type Document struct {
	// Content is the cleaned document text.
	Content string `json:"content"`

	// Metadata holds scalar document attributes.
	Metadata map[string]any `json:"metadata"`
}

// DocID returns the document identifier from metadata.
func (d Document) DocID() string {
	return MetaString(d.Metadata, MetaDocID)
}

// Section returns the document section, defaulting to "transcript".
func (d Document) Section() string {
	if s := MetaString(d.Metadata, MetaSection); s != "" {
		return s
	}
	return SectionTranscript
}

// SplitStrategy selects how a document is divided into chunks.
type SplitStrategy string

// Available split strategies.
const (
	// SplitBaseline windows the text uniformly with a fixed step.
	SplitBaseline SplitStrategy = "baseline"

	// SplitStructureAware packs speaker and paragraph units.
	SplitStructureAware SplitStrategy = "structure_aware"
)

// IsValid returns true if the strategy is recognised.
func (s SplitStrategy) IsValid() bool {
	switch s {
	case SplitBaseline, SplitStructureAware:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s SplitStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s SplitStrategy) Description() string {
	switch s {
	case SplitBaseline:
		return "Baseline (uniform character windows)"
	case SplitStructureAware:
		return "Structure aware (speaker and Q&A units)"
	default:
		return unknownDescription
	}
}

// Default chunking parameters per strategy.
const (
	DefaultChunkSize             = 900
	DefaultBaselineOverlap       = 150
	DefaultStructureAwareOverlap = 120
)

// ChunkParams configures a split.
type ChunkParams struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared between neighbours.
	Overlap int

	// Strategy selects the splitting algorithm.
	Strategy SplitStrategy
}

// DefaultChunkParams returns the default parameters for a strategy.
func DefaultChunkParams(strategy SplitStrategy) ChunkParams {
	overlap := DefaultBaselineOverlap
	if strategy == SplitStructureAware {
		overlap = DefaultStructureAwareOverlap
	}
	return ChunkParams{Size: DefaultChunkSize, Overlap: overlap, Strategy: strategy}
}

// Validate checks size and overlap bounds.
func (p ChunkParams) Validate() error {
	if p.Size <= 0 {
		return fmt.Errorf("%w: chunk_size must be > 0, got %d", ErrInvalidParameters, p.Size)
	}
	if p.Overlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must be >= 0, got %d", ErrInvalidParameters, p.Overlap)
	}
	if p.Overlap >= p.Size {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalidParameters, p.Overlap, p.Size)
	}
	return nil
}

// Chunk is a bounded slice of a document with a stable identifier.
// Chunks are never mutated; re-chunking produces new chunks.
type Chunk struct {
	// ID is a pure function of (doc_id, strategy, index, content).
	ID string `json:"chunk_id"`

	// DocumentID is the parent document identifier.
	DocumentID string `json:"doc_id"`

	// Index is the position of the chunk within its document.
	Index int `json:"chunk_index"`

	// Content is the chunk text.
	Content string `json:"text"`

	// Strategy is the split strategy that produced the chunk.
	Strategy SplitStrategy `json:"split"`

	// Section is "qa" or "discussion" for structure-aware chunks,
	// otherwise the document's section.
	Section string `json:"section"`

	// Size and Overlap are the parameters used for the split.
	Size    int `json:"chunk_size"`
	Overlap int `json:"chunk_overlap"`

	// Metadata is the document metadata plus the chunk keys above.
	Metadata map[string]any `json:"metadata"`
}

// MetaString reads a metadata value as a string.
// Numbers and booleans are formatted; missing keys yield "".
func MetaString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// CopyMetadata creates a shallow copy of metadata.
func CopyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
