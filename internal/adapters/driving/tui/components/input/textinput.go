// Package input holds the question field of the chat view.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/styles"
)

const (
	charLimit = 512
	// labelWidth is the "Ask: " label plus the field border and padding.
	labelWidth    = 10
	minFieldWidth = 20
)

const placeholder = "Ask about an earnings call, e.g. What did Tesla say about Q2 margins?"

// QuestionInput is a labelled single-line field. The embedded model
// supplies Value, SetValue, Focus, Blur, Focused and Reset.
type QuestionInput struct {
	textinput.Model
	styles *styles.Styles
}

// NewQuestionInput returns a focused, empty field.
func NewQuestionInput(s *styles.Styles) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}
	field := textinput.New()
	field.Placeholder = placeholder
	field.CharLimit = charLimit
	field.Width = 60
	field.Focus()
	return &QuestionInput{Model: field, styles: s}
}

// Init starts the cursor blinking.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	var cmd tea.Cmd
	q.Model, cmd = q.Model.Update(msg)
	return q, cmd
}

func (q *QuestionInput) View() string {
	//nolint:misspell // lipgloss constant
	return lipgloss.JoinHorizontal(lipgloss.Center,
		q.styles.Title.Render("Ask: "),
		q.styles.InputField.Render(q.Model.View()),
	)
}

// SetWidth fits the field, label included, into width columns.
func (q *QuestionInput) SetWidth(width int) {
	q.Width = max(width-labelWidth, minFieldWidth)
}
