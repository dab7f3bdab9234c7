// Package keymap binds the chat screen's keys. Printable keys always go to
// the question field, so every binding here is a control, function or
// arrow key.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

type KeyMap struct {
	Quit   key.Binding
	Help   key.Binding
	Submit key.Binding

	// Up and Down move the citation selection.
	Up   key.Binding
	Down key.Binding

	ToggleRouter    key.Binding
	ToggleDiversify key.Binding
	// Clear drops the conversation history.
	Clear key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:            bind("esc", "quit", "esc", "ctrl+c"),
		Help:            bind("f1", "help", "f1"),
		Submit:          bind("enter", "ask", "enter"),
		Up:              bind("↑", "prev citation", "up"),
		Down:            bind("↓", "next citation", "down"),
		ToggleRouter:    bind("ctrl+r", "llm router", "ctrl+r"),
		ToggleDiversify: bind("ctrl+d", "diversify", "ctrl+d"),
		Clear:           bind("ctrl+l", "clear", "ctrl+l"),
	}
}

// ShortHelp is the status bar hint before an answer arrives.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Help, k.Quit}
}

// AnswerHelp is the status bar hint while an answer with citations is shown.
func (k *KeyMap) AnswerHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Submit, k.Quit}
}

// FullHelp groups every binding by column for the help panel.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Up, k.Down},
		{k.ToggleRouter, k.ToggleDiversify, k.Clear},
		{k.Help, k.Quit},
	}
}

// Matches reports whether keyStr, as produced by tea.KeyMsg.String, is
// bound to binding.
func Matches(keyStr string, binding key.Binding) bool {
	return slices.Contains(binding.Keys(), keyStr)
}
