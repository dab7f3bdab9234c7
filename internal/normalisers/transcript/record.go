package transcript

import (
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/ids"
)

// DefaultDataset is the HuggingFace dataset the records come from.
const DefaultDataset = "lamini/earnings-calls-qa"

// Candidate row keys, in priority order.
var (
	QuestionKeys = []string{"question", "query", "prompt"}
	AnswerKeys   = []string{"answer", "response", "ground_truth", "label"}
	TextKeys     = []string{"transcript", "text", "context", "content", "document", "passage"}
)

// Metadata keys added during canonicalisation.
const (
	MetaSourceDataset = "source_dataset"
	MetaRowIndex      = "row_index"
)

// CanonicalizeRow maps a raw dataset row into the canonical record schema.
//
// When no transcript-like field is present the question and answer are
// combined so the record still has searchable text. The doc id is derived
// from the row's id, ticker, question and text.
func CanonicalizeRow(row map[string]any, rowIndex int, dataset string) domain.Record {
	question := pickFirst(row, QuestionKeys)
	answer := pickFirst(row, AnswerKeys)
	text := pickFirst(row, TextKeys)

	if text == "" {
		text = NormalizeText("Q: " + question + "\nA: " + answer)
	}

	metadata := map[string]any{
		MetaSourceDataset: dataset,
		MetaRowIndex:      rowIndex,
	}
	for key, value := range row {
		if isReserved(key) {
			continue
		}
		metadata[key] = NormalizeMetadataValue(value)
	}

	docID := ids.BuildID(ids.PrefixDoc,
		rawString(row["id"]),
		rawString(row["ticker"]),
		question,
		text,
	)

	return domain.Record{
		DocID:    docID,
		Question: question,
		Answer:   answer,
		Text:     text,
		Metadata: metadata,
	}
}

// pickFirst returns the first non-empty normalised value among keys.
func pickFirst(row map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := row[key]; ok {
			if s := NormalizeText(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func isReserved(key string) bool {
	for _, group := range [][]string{QuestionKeys, AnswerKeys, TextKeys} {
		for _, k := range group {
			if k == key {
				return true
			}
		}
	}
	return false
}

// rawString keeps the id parts type-stable: missing values hash as "".
func rawString(v any) any {
	if v == nil {
		return ""
	}
	return v
}
