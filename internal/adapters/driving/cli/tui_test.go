package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui"
)

func TestTUICmd_Registered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"tui"})
	require.NoError(t, err)
	assert.Same(t, tuiCmd, cmd)
	for _, control := range []string{"Ctrl+R", "Ctrl+D", "Ctrl+L", "F1"} {
		assert.Contains(t, tuiCmd.Long, control)
	}
}

func TestTUICmd_HelpOutput(t *testing.T) {
	out, err := execute(t, "tui", "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "interactive terminal user interface")
	assert.Contains(t, out, "Controls:")
}

func TestTUICmd_RequiresQueryService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	queryService = nil

	_, err := execute(t, "tui")
	require.Error(t, err)
	assert.ErrorIs(t, err, tui.ErrNoQueryService)
}
