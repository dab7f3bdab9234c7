package transcript

import (
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// DefaultSourceSplit is the provenance split used when none is given.
const DefaultSourceSplit = "train"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser builds documents from canonical records.
type Normaliser struct{}

// New creates a new transcript normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "transcript"
}

// Normalise converts every record into a document.
func (n *Normaliser) Normalise(records []domain.Record, sourceSplit string) []domain.Document {
	docs := make([]domain.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, RecordToDocument(r, sourceSplit))
	}
	return docs
}

// RecordToDocument converts one record. The document metadata is the
// record metadata plus doc_id, source_split, question, answer and section.
func RecordToDocument(r domain.Record, sourceSplit string) domain.Document {
	if sourceSplit == "" {
		sourceSplit = DefaultSourceSplit
	}

	metadata := domain.CopyMetadata(r.Metadata)
	section := domain.MetaString(metadata, domain.MetaSection)
	if section == "" {
		section = domain.SectionTranscript
	}

	metadata[domain.MetaDocID] = r.DocID
	metadata[domain.MetaSourceSplit] = sourceSplit
	metadata[domain.MetaQuestion] = r.Question
	metadata[domain.MetaAnswer] = r.Answer
	metadata[domain.MetaSection] = section

	return domain.Document{
		Content:  NormalizeText(r.Text),
		Metadata: metadata,
	}
}
