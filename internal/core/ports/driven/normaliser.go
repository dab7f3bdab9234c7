package driven

import "github.com/custodia-labs/earnings-rag/internal/core/domain"

// Normaliser turns canonical records into documents ready for chunking.
type Normaliser interface {
	// Name identifies the normaliser in logs.
	Name() string

	// Normalise builds one document per record, in input order.
	// sourceSplit is the dataset split the records came from.
	Normalise(records []domain.Record, sourceSplit string) []domain.Document
}
