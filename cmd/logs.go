package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "Show a sandbox's container output",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

var logsTail int

func init() {
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 100, "Number of trailing lines to show")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	inst, err := app.manager.Get(args[0])
	if err != nil {
		return err
	}

	out, err := app.engine.Logs(ctx, inst.ContainerName, logsTail)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
