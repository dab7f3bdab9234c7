package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// defaultPrompts are used when no PromptStore is configured and as the
// seed content for a file-backed store.
var defaultPrompts = map[string]string{
	driven.PromptRouterSystem: `Classify user query for an earnings-call assistant. ` +
		`Return strict JSON with keys route, reason, filters. ` +
		`route must be one of retrieve, clarify, direct.`,

	driven.PromptSynthesisSystem: `You are an earnings-call research assistant.

Rules:
1. Use only the provided sources.
2. If evidence is missing, say so clearly.
3. Cite evidence using source labels like [S1], [S2].
4. Return STRICT JSON only with keys: answer, citation_ids.
5. citation_ids must be an array of strings that reference provided source labels.`,

	driven.PromptSynthesisUser: `Question:
%s

Sources:
%s

Return strict JSON now.`,

	driven.PromptDirectSystem: `You are a finance assistant. Provide a concise conceptual answer ` +
		`without citing transcript sources.`,
}

// DefaultPrompts returns a copy of the built-in prompt templates.
func DefaultPrompts() map[string]string {
	out := make(map[string]string, len(defaultPrompts))
	for k, v := range defaultPrompts {
		out[k] = v
	}
	return out
}

// loadPrompt reads a prompt from the store, falling back to the default.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		prompt, err := store.Load(name)
		if err == nil && strings.TrimSpace(prompt) != "" {
			return prompt
		}
		if err != nil {
			logger.Debug("Prompt %q unavailable, using default: %v", name, err)
		}
	}
	return defaultPrompts[name]
}

// formatSynthesisUser fills the synthesis user template. Templates that
// lost their placeholders still get the query and sources appended.
func formatSynthesisUser(template, query, sources string) string {
	if strings.Count(template, "%s") >= 2 {
		return fmt.Sprintf(template, query, sources)
	}
	return template + "\n\nQuestion:\n" + query + "\n\nSources:\n" + sources
}
