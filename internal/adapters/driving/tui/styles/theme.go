// Package styles holds the palette and lipgloss styles of the chat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// Theme is the colour palette. Each route has its own badge colour so the
// strategy behind an answer is visible at a glance.
type Theme struct {
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Subtle  lipgloss.Color
	Surface lipgloss.Color
	Frame   lipgloss.Color
	Caution lipgloss.Color
	Danger  lipgloss.Color

	Retrieve lipgloss.Color
	Clarify  lipgloss.Color
	Direct   lipgloss.Color
}

// DefaultTheme returns the dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#2563EB"),
		Text:    lipgloss.Color("#E5E7EB"),
		Subtle:  lipgloss.Color("#6B7280"),
		Surface: lipgloss.Color("#111827"),
		Frame:   lipgloss.Color("#374151"),
		Caution: lipgloss.Color("#EAB308"),
		Danger:  lipgloss.Color("#EF4444"),

		Retrieve: lipgloss.Color("#14B8A6"),
		Clarify:  lipgloss.Color("#F97316"),
		Direct:   lipgloss.Color("#A855F7"),
	}
}

// Styles are the rendered styles derived from a Theme.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Help     lipgloss.Style
	Border   lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style

	// Question is the user's side of a turn, Answer the pipeline's.
	Question lipgloss.Style
	Answer   lipgloss.Style
	// Badge is the base for route badges; see RouteBadge.
	Badge lipgloss.Style
}

// NewStyles builds styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	text := lipgloss.NewStyle().Foreground(theme.Text)
	subtle := lipgloss.NewStyle().Foreground(theme.Subtle)
	frame := lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Frame)

	return &Styles{
		theme: theme,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Retrieve),
		Normal:   text,
		Muted:    subtle,
		Selected: text.Bold(true).Background(theme.Accent),
		Error:    lipgloss.NewStyle().Foreground(theme.Danger),
		Warning:  lipgloss.NewStyle().Foreground(theme.Caution),
		Help:     subtle,
		Border:   frame,

		InputField: frame.Padding(0, 1),
		StatusBar:  subtle.Background(lipgloss.Color("#0B1220")).Padding(0, 1),

		Question: lipgloss.NewStyle().Bold(true).Foreground(theme.Retrieve),
		Answer:   text.PaddingLeft(2),
		Badge:    lipgloss.NewStyle().Foreground(theme.Surface).Background(theme.Subtle).Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette behind these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// RouteBadge colours the badge for the route that produced an answer.
// Unknown routes keep the neutral base badge.
func (s *Styles) RouteBadge(route domain.Route) lipgloss.Style {
	switch route {
	case domain.RouteRetrieve:
		return s.Badge.Background(s.theme.Retrieve)
	case domain.RouteClarify:
		return s.Badge.Background(s.theme.Clarify)
	case domain.RouteDirect:
		return s.Badge.Background(s.theme.Direct)
	default:
		return s.Badge
	}
}
