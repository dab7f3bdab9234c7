// Package messages holds the tea.Msg values passed between the TUI model
// and its commands.
package messages

import (
	"time"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

// QueryCompleted is the result of one pipeline run started from the input.
type QueryCompleted struct {
	State   domain.QueryState
	Elapsed time.Duration
}

// Degraded reports whether a capability failed and the pipeline answered
// from a fallback.
func (m QueryCompleted) Degraded() bool {
	return m.State.Error != ""
}

// SettingsLoaded delivers the resolved settings, or the error reading them.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// ErrorOccurred stops a run that could not start.
type ErrorOccurred struct {
	Err error
}
