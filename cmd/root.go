package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "surfbox",
	Short: "Browser sandbox management CLI",
	Long: `surfbox manages isolated browser sandboxes for automation agents.

Each sandbox is a container with:
  - An automation agent exposing an HTTP API
  - A headless browser, or a bridge to a debugging browser on the host
  - Ports published on loopback only
  - Optional VNC access for watching the browser work`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.surfbox/config.toml)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
