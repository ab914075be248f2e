package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/agent"
	"github.com/surfbox-dev/surfbox/internal/sandbox"
)

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show detailed status of a sandbox",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	app.manager.RefreshHealth(ctx)

	inst, err := app.manager.Get(args[0])
	if err != nil {
		return err
	}

	printStatus(ctx, inst)
	return nil
}

func printStatus(ctx context.Context, inst *sandbox.Instance) {
	fmt.Printf("Sandbox: %s\n", inst.Name)
	fmt.Printf("Container: %s\n", inst.ContainerName)
	fmt.Printf("Image: %s\n", inst.Image)
	fmt.Printf("Mode: %s\n", inst.Mode)
	if inst.CDPEndpoint != "" {
		fmt.Printf("CDP Endpoint: %s\n", inst.CDPEndpoint)
	}
	fmt.Printf("Status: %s\n", inst.Status)
	if inst.Err != "" {
		fmt.Printf("Note: %s\n", inst.Err)
	}
	fmt.Printf("Created: %s\n", inst.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Println()

	fmt.Println("Ports:")
	fmt.Printf("  API: %s\n", formatPort(inst.Ports.API))
	fmt.Printf("  CDP: %s\n", formatPort(inst.Ports.CDP))
	fmt.Printf("  VNC: %s\n", formatPort(inst.Ports.VNC))
	fmt.Printf("  noVNC: %s\n", formatPort(inst.Ports.NoVNC))
	fmt.Println()

	fmt.Println("Health Checks:")
	fmt.Printf("  Container: %s\n", boolStatus(inst.Status == sandbox.StatusRunning))
	if inst.Status == sandbox.StatusRunning {
		agentUp := agent.NewClient(inst.Ports.API).Health(ctx) == nil
		fmt.Printf("  Agent: %s\n", boolStatus(agentUp))
		fmt.Printf("  Heartbeat: %s\n", boolStatus(!inst.HeartbeatLost))
	}
}

func boolStatus(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}
