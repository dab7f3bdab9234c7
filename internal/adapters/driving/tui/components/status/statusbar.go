// Package status renders the one-line bar under the chat input.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/styles"
)

// State is what the bar reports on its left side.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateAnswered State = "answered"
	StateError    State = "error"
	StateHelp     State = "help"
)

// Bar shows the run state, the router and diversify toggles, and key hints.
// The chat view drives it through setters; it handles no messages.
type Bar struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	width  int

	state     State
	message   string
	route     string
	citations int

	useLLM    bool
	diversify bool
}

// NewBar returns a bar in StateReady with the LLM router on.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keys: km, width: 80, state: StateReady, useLLM: true}
}

func (b *Bar) View() string {
	left := b.stateText() + "  " + b.toggleText()
	right := b.hintText()
	// two columns go to the bar's own padding
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) stateText() string {
	switch b.state {
	case StateThinking:
		return b.styles.Muted.Render("Thinking...")
	case StateHelp:
		return b.styles.Normal.Render("Help")
	case StateError:
		if b.message == "" {
			return b.styles.Error.Render("Error")
		}
		return b.styles.Error.Render("Error: " + b.message)
	case StateAnswered:
		summary := fmt.Sprintf("%s · %d citations", b.route, b.citations)
		if b.message == "" {
			return b.styles.Normal.Render(summary)
		}
		return b.styles.Warning.Render(summary + " · " + b.message)
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) toggleText() string {
	router, div := "heuristic", "off"
	if b.useLLM {
		router = "llm"
	}
	if b.diversify {
		div = "on"
	}
	return b.styles.Muted.Render("router:" + router + " diversify:" + div)
}

func (b *Bar) hintText() string {
	bindings := b.keys.ShortHelp()
	if b.state == StateAnswered && b.citations > 0 {
		bindings = b.keys.AnswerHelp()
	}
	return b.styles.Muted.Render(joinHints(bindings))
}

func joinHints(bindings []key.Binding) string {
	hints := make([]string, len(bindings))
	for i, binding := range bindings {
		h := binding.Help()
		hints[i] = h.Key + ": " + h.Desc
	}
	return strings.Join(hints, " | ")
}

// SetState changes the state and leaves the message alone.
func (b *Bar) SetState(state State) { b.state = state }

// SetMessage sets the error text, or the degradation note of an answer.
func (b *Bar) SetMessage(message string) { b.message = message }

// SetAnswer switches to StateAnswered for an answer on route.
func (b *Bar) SetAnswer(route string, citations int) {
	b.state, b.route, b.citations = StateAnswered, route, citations
}

// SetToggles mirrors the chat view's router and diversify switches.
func (b *Bar) SetToggles(useLLM, diversify bool) {
	b.useLLM, b.diversify = useLLM, diversify
}

func (b *Bar) SetWidth(width int) { b.width = width }

// Clear returns to StateReady. Toggles are kept.
func (b *Bar) Clear() {
	b.state, b.message, b.route, b.citations = StateReady, "", "", 0
}

func (b *Bar) State() State { return b.state }
func (b *Bar) Message() string { return b.message }
func (b *Bar) Route() string { return b.route }
func (b *Bar) Citations() int { return b.citations }
func (b *Bar) Width() int { return b.width }
