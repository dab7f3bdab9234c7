// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// linesPerCitation is the rendered height of one entry.
const linesPerCitation = 2

// CitationList displays the citations behind an answer.
type CitationList struct {
	citations []domain.Citation
	selected  int
	styles    *styles.Styles
	width     int
	height    int
}

// NewCitationList creates a new citation list component.
func NewCitationList(s *styles.Styles) *CitationList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &CitationList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (c *CitationList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (c *CitationList) Update(msg tea.Msg) (*CitationList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			c.MoveUp()
		case tea.KeyDown:
			c.MoveDown()
		}
	}
	return c, nil
}

// View renders the citation list.
func (c *CitationList) View() string {
	if len(c.citations) == 0 {
		return c.styles.Muted.Render("No citations")
	}

	lines := make([]string, 0, len(c.citations)*linesPerCitation+1)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Citations (%d)", len(c.citations))))

	visible := (c.height - 1) / linesPerCitation
	if visible < 1 {
		visible = 1
	}
	start := 0
	if c.selected >= visible {
		start = c.selected - visible + 1
	}
	end := start + visible
	if end > len(c.citations) {
		end = len(c.citations)
	}

	for i := start; i < end; i++ {
		lines = append(lines, c.renderCitation(i, &c.citations[i]))
	}
	return strings.Join(lines, "\n")
}

// renderCitation formats one citation with its snippet.
func (c *CitationList) renderCitation(index int, cite *domain.Citation) string {
	indicator := "  "
	if index == c.selected {
		indicator = "> "
	}

	head := fmt.Sprintf("%s[%s] %s · %s · %s", indicator, cite.CitationID, cite.Company, cite.Section, cite.Source)
	score := fmt.Sprintf("%.3f", cite.Score)

	var headLine string
	if index == c.selected {
		headLine = c.styles.Selected.Render(head + "  " + score)
	} else {
		headLine = c.styles.Normal.Render(head+"  ") + c.styles.Muted.Render(score)
	}

	return headLine + "\n" + c.styles.Muted.Render("    "+truncate(cite.Snippet, c.width-6))
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n < 20 {
		n = 20
	}
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetCitations replaces the list and resets the selection.
func (c *CitationList) SetCitations(citations []domain.Citation) {
	c.citations = citations
	c.selected = 0
}

// Citations returns the current citations.
func (c *CitationList) Citations() []domain.Citation {
	return c.citations
}

// Selected returns the index of the selected citation.
func (c *CitationList) Selected() int {
	return c.selected
}

// SetSelected sets the selected index.
func (c *CitationList) SetSelected(index int) {
	if index >= 0 && index < len(c.citations) {
		c.selected = index
	}
}

// SelectedCitation returns the currently selected citation, or nil if none.
func (c *CitationList) SelectedCitation() *domain.Citation {
	if len(c.citations) == 0 || c.selected < 0 || c.selected >= len(c.citations) {
		return nil
	}
	return &c.citations[c.selected]
}

// MoveUp moves selection up.
func (c *CitationList) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves selection down.
func (c *CitationList) MoveDown() {
	if c.selected < len(c.citations)-1 {
		c.selected++
	}
}

// SetDimensions sets the component dimensions.
func (c *CitationList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

// Count returns the number of citations.
func (c *CitationList) Count() int {
	return len(c.citations)
}

// IsEmpty returns whether the list is empty.
func (c *CitationList) IsEmpty() bool {
	return len(c.citations) == 0
}
