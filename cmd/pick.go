package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/logging"
	"github.com/surfbox-dev/surfbox/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Interactive sandbox picker",
	Long: `Opens an interactive TUI for inspecting and removing sandboxes.

Use arrow keys or j/k to navigate, / to filter.

Actions:
  Enter  - Show status of the selected sandbox
  d      - Remove the selected sandbox
  q/Esc  - Quit`,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	app.manager.RefreshHealth(ctx)

	instances := app.manager.List()
	if len(instances) == 0 {
		logInfo("No sandboxes found. Create one with: surfbox up <name>")
		return nil
	}

	result, err := tui.RunPicker(instances)
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}

	logging.Debug("picker result", "action", result.Action)

	switch result.Action {
	case tui.ActionStatus:
		if result.Instance != nil {
			printStatus(ctx, result.Instance)
		}

	case tui.ActionDown:
		if result.Instance != nil {
			logInfo("Removing sandbox %s...", result.Instance.Name)
			if err := app.manager.Destroy(ctx, result.Instance.ID); err != nil {
				return err
			}
			logSuccess("Removed sandbox %s", result.Instance.Name)
		}

	case tui.ActionQuit:
		// Just exit cleanly
	}

	return nil
}
