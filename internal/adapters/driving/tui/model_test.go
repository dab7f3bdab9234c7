package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

func newModel(t *testing.T, svc Services) *Model {
	t.Helper()
	if svc.Query == nil {
		svc.Query = &fakeQuery{}
	}
	m, err := New(context.Background(), svc)
	require.NoError(t, err)
	return m
}

func sized(t *testing.T, m *Model, w, h int) *Model {
	t.Helper()
	m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return m
}

func TestNew_RequiresQuery(t *testing.T) {
	m, err := New(context.Background(), Services{Settings: &fakeSettings{}})

	assert.ErrorIs(t, err, ErrNoQueryService)
	assert.Nil(t, m)
}

func TestModel_InitBatches(t *testing.T) {
	assert.NotNil(t, newModel(t, Services{}).Init())
}

func TestModel_ViewWaitsForSize(t *testing.T) {
	m := newModel(t, Services{})
	assert.Equal(t, "Initialising...", m.View())

	sized(t, m, 100, 30)
	view := m.View()
	assert.Contains(t, view, "Earnings Call RAG")
	assert.Contains(t, view, "Ask")
	assert.True(t, m.Chat().Ready())
}

func TestModel_QuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{{Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		t.Run(key.String(), func(t *testing.T) {
			_, cmd := newModel(t, Services{}).Update(key)

			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
		})
	}
}

func TestModel_TypingReachesChat(t *testing.T) {
	m := sized(t, newModel(t, Services{}), 80, 24)

	for _, r := range "margins" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	assert.Equal(t, "margins", m.Chat().Input())
}

func TestModel_QueryCompletedRendered(t *testing.T) {
	m := sized(t, newModel(t, Services{}), 80, 24)

	m.Update(messages.QueryCompleted{State: domain.QueryState{Query: "q", Route: domain.RouteDirect, Answer: "conceptual"}})

	require.Len(t, m.Chat().Turns(), 1)
	assert.Contains(t, m.View(), "conceptual")
}

func TestModel_SettingsApplied(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Router.UseLLM = false
	settings.Retrieval.Diversify = true
	m := newModel(t, Services{Settings: &fakeSettings{settings: &settings}})

	cmd := m.loadSettings()
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.NoError(t, m.SettingsErr())
	assert.False(t, m.Chat().UseLLMRouter())
	assert.True(t, m.Chat().Diversify())
}

func TestModel_SettingsErrorKeepsDefaults(t *testing.T) {
	m := newModel(t, Services{Settings: &fakeSettings{err: errors.New("bad toml")}})

	m.Update(m.loadSettings()())

	assert.EqualError(t, m.SettingsErr(), "bad toml")
	assert.True(t, m.Chat().UseLLMRouter())
}

func TestModel_NoSettingsService(t *testing.T) {
	assert.Nil(t, newModel(t, Services{}).loadSettings())
}

func TestRun_RequiresQuery(t *testing.T) {
	assert.ErrorIs(t, Run(context.Background(), Services{}), ErrNoQueryService)
}
