package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/errors"
	"github.com/surfbox-dev/surfbox/internal/logging"
)

var downCmd = &cobra.Command{
	Use:   "down [name]",
	Short: "Stop and remove a sandbox",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDown,
}

var downAll bool

func init() {
	downCmd.Flags().BoolVar(&downAll, "all", false, "Remove every sandbox")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if downAll == (len(args) == 1) {
		return errors.ValidationError("pass exactly one of <name> or --all")
	}

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	if downAll {
		count := len(app.manager.List())
		if err := app.manager.Shutdown(ctx); err != nil {
			return err
		}
		logSuccess("Removed %d sandbox(es)", count)
		return nil
	}

	name := args[0]
	if _, err := app.manager.Get(name); err != nil {
		logInfo("Sandbox %s not found, nothing to do", name)
		return nil
	}

	logging.Debug("removing sandbox", "name", name)
	logInfo("Removing sandbox %s...", name)

	if err := app.manager.Destroy(ctx, name); err != nil {
		return err
	}

	logSuccess("Removed sandbox %s", name)
	return nil
}
