package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/sandbox"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove leftover sandbox containers",
	Long: `Sweeps containers carrying the sandbox name prefix that belong to no
known instance, i.e. leftovers from crashed or killed earlier runs.

With --force, every tracked sandbox is torn down as well, without graceful
stops.`,
	RunE: runCleanup,
}

var cleanupForce bool

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupForce, "force", false, "Also force-remove all tracked sandboxes")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	var outcomes []sandbox.CleanupOutcome
	if cleanupForce {
		outcomes = app.manager.EmergencyCleanup(ctx)
	} else {
		outcomes = app.manager.CleanupOrphans(ctx)
	}

	removed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			logWarning("%s %s: %v", o.Step, o.Target, o.Err)
			continue
		}
		if o.Target != "" {
			logInfo("%s %s", o.Step, o.Target)
			removed++
		}
	}

	if removed == 0 {
		logInfo("Nothing to clean up")
	} else {
		logSuccess("Cleaned up %d container(s)", removed)
	}
	return nil
}
