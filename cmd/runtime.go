package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/platform"
	"github.com/surfbox-dev/surfbox/internal/runtime"
	"github.com/surfbox-dev/surfbox/internal/system"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Show container runtime detection results",
	RunE:  runRuntime,
}

var runtimePreferred string

func init() {
	runtimeCmd.Flags().StringVar(&runtimePreferred, "prefer", "", "Engine to try first (docker or podman)")
	rootCmd.AddCommand(runtimeCmd)
}

func runRuntime(cmd *cobra.Command, args []string) error {
	detector := runtime.NewDetector(system.OSRunner{}, platform.Current())
	info := detector.Detect(context.Background(), runtime.EngineKind(runtimePreferred))

	if !info.Available {
		logWarning("No usable container runtime")
		fmt.Printf("  %s\n", info.Reason)
		return nil
	}

	logSuccess("Container runtime available")
	fmt.Printf("  Engine: %s\n", info.Engine)
	fmt.Printf("  Version: %s\n", info.Version)
	fmt.Printf("  Container OS: %s\n", info.OSType)
	if info.VMBackingPresent {
		fmt.Printf("  Linux containers: ✓\n")
	}
	return nil
}
