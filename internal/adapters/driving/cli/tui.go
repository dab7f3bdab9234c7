package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for earnings-rag.

Ask questions about indexed earnings calls and read cited answers. Each
question runs the full query pipeline with the configured defaults.

Controls:
  Enter    - Ask
  ↑/↓      - Select citation
  Ctrl+R   - Toggle LLM router
  Ctrl+D   - Toggle diversify
  Ctrl+L   - Clear conversation
  F1       - Toggle help
  Esc      - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	err := tui.Run(cmd.Context(), tui.Services{Query: queryService, Settings: settingsService})
	if errors.Is(err, tui.ErrNoQueryService) {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
