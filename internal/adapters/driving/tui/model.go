// Package tui is a single-screen terminal chat over the query pipeline.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
)

// ErrNoQueryService is returned by New when Services.Query is nil.
var ErrNoQueryService = errors.New("tui: query service is required")

// Services are the core ports the TUI uses. Settings may be nil, in which
// case the chat starts with built-in defaults.
type Services struct {
	Query    driving.QueryService
	Settings driving.SettingsService
}

// Model is the root tea.Model. It owns quitting and settings loading and
// hands everything else to the chat view.
type Model struct {
	settings driving.SettingsService
	keys     *keymap.KeyMap
	chat     *chat.View

	// settingsErr is kept for display; the chat runs on defaults.
	settingsErr error
	sized       bool
}

var _ tea.Model = (*Model)(nil)

// New builds the model. Questions run under ctx.
func New(ctx context.Context, svc Services) (*Model, error) {
	if svc.Query == nil {
		return nil, ErrNoQueryService
	}
	theme := styles.DefaultStyles()
	keys := keymap.DefaultKeyMap()
	return &Model{
		settings: svc.Settings,
		keys:     keys,
		chat:     chat.NewView(theme, keys, svc.Query).WithContext(ctx),
	}, nil
}

// Run starts a full-screen program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, svc Services, opts ...tea.ProgramOption) error {
	m, err := New(ctx, svc)
	if err != nil {
		return err
	}
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err = tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("earnings-rag"),
		m.chat.Init(),
		m.loadSettings(),
	)
}

func (m *Model) loadSettings() tea.Cmd {
	if m.settings == nil {
		return nil
	}
	svc := m.settings
	return func() tea.Msg {
		s, err := svc.Get()
		return messages.SettingsLoaded{Settings: s, Err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.sized = true
	case tea.KeyMsg:
		if keymap.Matches(msg.String(), m.keys.Quit) {
			return m, tea.Quit
		}
	case messages.SettingsLoaded:
		if msg.Err != nil {
			m.settingsErr = msg.Err
		} else {
			m.chat.ApplySettings(msg.Settings)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	if !m.sized {
		return "Initialising..."
	}
	return m.chat.View()
}

// Chat exposes the chat view.
func (m *Model) Chat() *chat.View { return m.chat }

// SettingsErr is the error from loading settings, if any.
func (m *Model) SettingsErr() error { return m.settingsErr }
