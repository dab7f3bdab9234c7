package driven

// PromptStore serves prompt templates by name. Load falls back to the
// built-in template when no override exists and errors for unknown names.
type PromptStore interface {
	Load(name string) (string, error)

	// Reload drops cached templates.
	Reload()
}

// Prompt names.
const (
	// PromptRouterSystem instructs the classifier to return {route, reason, filters}.
	// No format placeholders.
	PromptRouterSystem = "router_system"

	// PromptSynthesisSystem instructs the generator to return {answer, citation_ids}.
	// No format placeholders.
	PromptSynthesisSystem = "synthesis_system"

	// PromptSynthesisUser is the synthesis user message.
	// Expects %s (query) and %s (labelled sources) placeholders.
	PromptSynthesisUser = "synthesis_user"

	// PromptDirectSystem is the system prompt for conceptual answers.
	PromptDirectSystem = "direct_system"
)
