// Package chat provides the single-screen chat view for the TUI.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
)

// maxVisibleTurns is how many past exchanges are drawn above the input.
const maxVisibleTurns = 3

// Turn is one question and the pipeline state that answered it.
type Turn struct {
	Question string
	State    domain.QueryState
	Elapsed  time.Duration

	// Degraded marks a run that recovered from a capability failure.
	Degraded bool
}

// View is the chat screen: history, citations of the latest answer,
// the question input and a status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	citations *list.CitationList
	statusbar *status.Bar
	spinner   spinner.Model

	queryService driving.QueryService
	ctx          context.Context

	namespace string
	topK      int
	useLLM    bool
	diversify bool

	turns    []Turn
	running  bool
	showHelp bool

	width  int
	height int
	ready  bool
	err    error
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, queryService driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:       s,
		keymap:       km,
		input:        input.NewQuestionInput(s),
		citations:    list.NewCitationList(s),
		statusbar:    status.NewBar(s, km),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Subtitle)),
		queryService: queryService,
		ctx:          context.Background(),
		topK:         domain.DefaultTopK,
		useLLM:       true,
		width:        80,
		height:       24,
	}
	v.statusbar.SetToggles(v.useLLM, v.diversify)
	return v
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// ApplySettings takes the retrieval and router defaults from settings.
func (v *View) ApplySettings(settings *domain.AppSettings) {
	if settings == nil {
		return
	}
	v.namespace = settings.Vector.Namespace
	if settings.Retrieval.TopK > 0 {
		v.topK = settings.Retrieval.TopK
	}
	v.diversify = settings.Retrieval.Diversify
	v.useLLM = settings.Router.UseLLM
	v.statusbar.SetToggles(v.useLLM, v.diversify)
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueryCompleted:
		v.handleQueryCompleted(msg)
		return v, v.input.Focus()

	case messages.ErrorOccurred:
		v.running = false
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, v.input.Focus()

	case spinner.TickMsg:
		if !v.running {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	switch {
	case keymap.Matches(k, v.keymap.Help):
		v.showHelp = !v.showHelp
		if v.showHelp {
			v.statusbar.SetState(status.StateHelp)
		} else {
			v.restoreStatus()
		}
		return v, nil

	case keymap.Matches(k, v.keymap.ToggleRouter):
		v.useLLM = !v.useLLM
		v.statusbar.SetToggles(v.useLLM, v.diversify)
		return v, nil

	case keymap.Matches(k, v.keymap.ToggleDiversify):
		v.diversify = !v.diversify
		v.statusbar.SetToggles(v.useLLM, v.diversify)
		return v, nil

	case keymap.Matches(k, v.keymap.Clear):
		if !v.running {
			v.turns = nil
			v.err = nil
			v.citations.SetCitations(nil)
			v.statusbar.Clear()
		}
		return v, nil

	case keymap.Matches(k, v.keymap.Up):
		v.citations.MoveUp()
		return v, nil

	case keymap.Matches(k, v.keymap.Down):
		v.citations.MoveDown()
		return v, nil

	case keymap.Matches(k, v.keymap.Submit):
		return v.submit()
	}

	if v.running {
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts a pipeline run for the current input.
func (v *View) submit() (*View, tea.Cmd) {
	question := strings.TrimSpace(v.input.Value())
	if question == "" || v.running {
		return v, nil
	}

	v.running = true
	v.err = nil
	v.showHelp = false
	v.input.Reset()
	v.input.Blur()
	v.statusbar.SetMessage("")
	v.statusbar.SetState(status.StateThinking)

	return v, tea.Batch(v.spinner.Tick, v.ask(v.Request(question)))
}

// Request builds the pipeline request for a question from the current toggles.
func (v *View) Request(question string) domain.QueryRequest {
	return domain.QueryRequest{
		Query:        question,
		Namespace:    v.namespace,
		UserFilters:  map[string]string{},
		UseLLMRouter: v.useLLM,
		TopK:         v.topK,
		Diversify:    v.diversify,
	}
}

// ask runs the pipeline off the update loop.
func (v *View) ask(req domain.QueryRequest) tea.Cmd {
	return func() tea.Msg {
		if v.queryService == nil {
			return messages.ErrorOccurred{Err: ErrNoQueryService}
		}

		start := time.Now()
		state := v.queryService.Run(v.ctx, req)
		return messages.QueryCompleted{State: state, Elapsed: time.Since(start)}
	}
}

// handleQueryCompleted records the finished turn.
func (v *View) handleQueryCompleted(msg messages.QueryCompleted) {
	v.running = false
	v.turns = append(v.turns, Turn{
		Question: msg.State.Query,
		State:    msg.State,
		Elapsed:  msg.Elapsed,
		Degraded: msg.Degraded(),
	})
	v.citations.SetCitations(msg.State.Citations)
	v.restoreStatus()
}

// restoreStatus shows the latest answer, or ready when there is none.
func (v *View) restoreStatus() {
	if len(v.turns) == 0 {
		v.statusbar.Clear()
		return
	}
	last := v.turns[len(v.turns)-1].State
	v.statusbar.SetAnswer(last.Route.String(), len(last.Citations))
	v.statusbar.SetMessage(last.Error)
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("Earnings Call RAG"), "")

	if v.showHelp {
		sections = append(sections, v.renderHelp(), "")
	} else {
		sections = append(sections, v.renderTurns()...)
	}

	if v.running {
		sections = append(sections, v.spinner.View()+" "+v.styles.Muted.Render("routing, retrieving and synthesising..."), "")
	}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if !v.citations.IsEmpty() {
		sections = append(sections, v.citations.View(), "")
	}

	sections = append(sections, v.input.View(), "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTurns renders the most recent exchanges, oldest first.
func (v *View) renderTurns() []string {
	start := 0
	if len(v.turns) > maxVisibleTurns {
		start = len(v.turns) - maxVisibleTurns
	}

	answerStyle := v.styles.Answer.Width(max(v.width-4, 20))
	out := make([]string, 0, (len(v.turns)-start)*3)
	for _, t := range v.turns[start:] {
		head := v.styles.Question.Render("You: "+t.Question) + "  " +
			v.styles.RouteBadge(t.State.Route).Render(t.State.Route.String()) + " " +
			v.styles.Muted.Render(fmt.Sprintf("%dms", t.Elapsed.Milliseconds()))
		if t.Degraded {
			head += " " + v.styles.Warning.Render("degraded")
		}
		out = append(out, head, answerStyle.Render(t.State.Answer), "")
	}
	return out
}

// renderHelp renders the keybinding panel.
func (v *View) renderHelp() string {
	var lines []string
	for _, group := range v.keymap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			lines = append(lines, fmt.Sprintf("  %-8s %s", h.Key, h.Desc))
		}
	}
	return v.styles.Border.Padding(0, 1).Render(v.styles.Help.Render(strings.Join(lines, "\n")))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.citations.SetDimensions(width, height/3)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Running reports whether a question is being answered.
func (v *View) Running() bool {
	return v.running
}

// Turns returns the conversation so far.
func (v *View) Turns() []Turn {
	return v.turns
}

// Input returns the current input text.
func (v *View) Input() string {
	return v.input.Value()
}

// SetInput sets the input text.
func (v *View) SetInput(text string) {
	v.input.SetValue(text)
}

// UseLLMRouter reports the router toggle.
func (v *View) UseLLMRouter() bool {
	return v.useLLM
}

// Diversify reports the diversify toggle.
func (v *View) Diversify() bool {
	return v.diversify
}

// SelectedCitation returns the highlighted citation of the latest answer.
func (v *View) SelectedCitation() *domain.Citation {
	return v.citations.SelectedCitation()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// ShowingHelp reports whether the help panel is open.
func (v *View) ShowingHelp() bool {
	return v.showHelp
}
