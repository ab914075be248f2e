package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/sandbox"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List all sandboxes",
	RunE:  runPs,
}

func init() {
	rootCmd.AddCommand(psCmd)
}

func runPs(cmd *cobra.Command, args []string) error {
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

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODE\tSTATUS\tAPI\tCDP\tVNC")
	fmt.Fprintln(w, "----\t----\t------\t---\t---\t---")

	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inst.Name, inst.Mode, formatStatus(inst),
			formatPort(inst.Ports.API), formatPort(inst.Ports.CDP), formatPort(inst.Ports.NoVNC))
	}

	return w.Flush()
}

func formatStatus(inst *sandbox.Instance) string {
	if inst.HeartbeatLost {
		return "⚠ agent-lost"
	}
	switch inst.Status {
	case sandbox.StatusRunning:
		return "✓ running"
	case sandbox.StatusStopped:
		return "● stopped"
	case sandbox.StatusError:
		return "✗ error"
	default:
		return string(inst.Status)
	}
}

func formatPort(p int) string {
	if p == 0 {
		return "-"
	}
	return fmt.Sprintf(":%d", p)
}
