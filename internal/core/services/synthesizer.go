package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// SnippetLength is the maximum citation snippet length in characters.
const SnippetLength = 280

// Fixed synthesizer answers.
const (
	NoEvidenceAnswer   = "I could not find relevant evidence in the indexed transcripts."
	UnstructuredAnswer = "I could not produce a structured answer. Please refine the query."
)

const unknownValue = "unknown"

// Synthesizer turns evidence chunks into an answer with grounded citations.
type Synthesizer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewSynthesizer creates a synthesizer. prompts may be nil.
func NewSynthesizer(llm driven.LLMService, prompts driven.PromptStore) *Synthesizer {
	return &Synthesizer{llm: llm, prompts: prompts}
}

// Synthesize answers query from chunks.
//
// Empty evidence returns NoEvidenceAnswer without calling the LLM.
// Output that is not JSON becomes the answer with no citations.
// Citation ids that do not name a chunk are dropped.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, chunks []domain.RetrievedChunk) (domain.Answer, error) {
	if len(chunks) == 0 {
		return domain.Answer{Text: NoEvidenceAnswer, Citations: []domain.Citation{}}, nil
	}
	if s.llm == nil {
		return domain.Answer{}, fmt.Errorf("%w: %w", domain.ErrCapabilityUnavailable, domain.ErrLLMUnavailable)
	}

	user := formatSynthesisUser(loadPrompt(s.prompts, driven.PromptSynthesisUser), query, FormatContext(chunks))
	raw, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(s.prompts, driven.PromptSynthesisSystem)},
		{Role: driven.RoleUser, Content: user},
	}, driven.ChatOptions{JSON: true})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: synthesis: %w", domain.ErrCapabilityUnavailable, err)
	}

	answer := GroundAnswer(raw, chunks)
	logger.Debug("Synthesized answer with %d citations from %d chunks", len(answer.Citations), len(chunks))
	return answer, nil
}

// FormatContext labels each chunk with its citation id and metadata.
func FormatContext(chunks []domain.RetrievedChunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		blocks = append(blocks, fmt.Sprintf("[%s] company=%s source=%s section=%s\n%s",
			c.CitationID,
			metaOr(c.Metadata, domain.MetaCompany, unknownValue),
			metaOr(c.Metadata, domain.MetaSource, unknownValue),
			metaOr(c.Metadata, domain.MetaSection, domain.SectionTranscript),
			c.Text,
		))
	}
	return strings.Join(blocks, "\n\n")
}

// GroundAnswer parses generator output and keeps only citations that
// resolve to chunks. Each id is cited once, in the order requested.
func GroundAnswer(raw string, chunks []domain.RetrievedChunk) domain.Answer {
	text, ids := parseSynthesis(raw)

	byID := make(map[string]domain.RetrievedChunk, len(chunks))
	for _, c := range chunks {
		byID[c.CitationID] = c
	}

	citations := []domain.Citation{}
	used := make(map[string]bool)
	for _, id := range ids {
		c, ok := byID[id]
		if !ok || used[id] {
			continue
		}
		used[id] = true
		citations = append(citations, domain.Citation{
			CitationID: id,
			Company:    metaOr(c.Metadata, domain.MetaCompany, unknownValue),
			Source:     metaOr(c.Metadata, domain.MetaSource, unknownValue),
			Section:    metaOr(c.Metadata, domain.MetaSection, domain.SectionTranscript),
			Snippet:    truncateRunes(c.Text, SnippetLength),
			Score:      c.Score,
		})
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = UnstructuredAnswer
	}
	return domain.Answer{Text: text, Citations: citations}
}

// parseSynthesis extracts answer and citation_ids. Fenced output is
// unwrapped; anything that is not JSON is returned as the answer.
func parseSynthesis(raw string) (string, []string) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.Trim(text, "`")
		if strings.HasPrefix(strings.ToLower(text), "json") {
			text = text[len("json"):]
		}
		text = strings.TrimSpace(text)
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return raw, nil
	}
	payload, ok := parsed.(map[string]any)
	if !ok {
		return "", nil
	}

	answer, _ := payload["answer"].(string)

	var ids []string
	if list, ok := payload["citation_ids"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
	}
	return answer, ids
}

// metaOr reads a metadata value, using def only when the key is absent.
func metaOr(m map[string]any, key, def string) string {
	if _, ok := m[key]; !ok {
		return def
	}
	return domain.MetaString(m, key)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
