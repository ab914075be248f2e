package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/config"
	"github.com/surfbox-dev/surfbox/internal/errors"
	"github.com/surfbox-dev/surfbox/internal/logging"
	"github.com/surfbox-dev/surfbox/internal/sandbox"
)

var upCmd = &cobra.Command{
	Use:   "up <name>",
	Short: "Create and start a sandbox",
	Args:  cobra.ExactArgs(1),
	RunE:  runUp,
}

var (
	upBrowserID   string
	upCDPEndpoint string
	upVNC         bool
)

func init() {
	upCmd.Flags().StringVarP(&upBrowserID, "browser", "b", "", "Bridge to a debugging browser on the host, under this browser id")
	upCmd.Flags().StringVar(&upCDPEndpoint, "cdp-endpoint", "", "Attach to an external CDP websocket endpoint")
	upCmd.Flags().BoolVar(&upVNC, "vnc", false, "Publish VNC and noVNC ports for watching the browser")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	name := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Validate sandbox name early
	if err := config.ValidateInstanceName(name); err != nil {
		return err
	}
	if upBrowserID != "" && upCDPEndpoint != "" {
		return errors.ValidationError("--browser and --cdp-endpoint are mutually exclusive")
	}

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	opts := sandbox.CreateOptions{Name: name, WithVNC: upVNC}

	switch {
	case upBrowserID != "":
		logging.Debug("bridging to host browser", "browser", upBrowserID)
		sess, err := app.bridge.Launch(ctx, upBrowserID)
		if err != nil {
			return err
		}
		if err := app.bridge.VerifyWebSocket(ctx); err != nil {
			logWarning("Browser endpoint answered but the DevTools handshake failed: %v", err)
		}
		saveBrowserSession(app.cfg, sess)
		opts.Mode = sandbox.ModeHostBridged
		opts.CDPEndpoint = sess.ContainerWebSocketURL

	case upCDPEndpoint != "":
		opts.Mode = sandbox.ModeExternal
		opts.CDPEndpoint = upCDPEndpoint

	default:
		opts.Mode = sandbox.ModeHeadless
	}

	logInfo("Creating sandbox %s...", name)

	inst, err := app.manager.Create(ctx, opts)
	if err != nil {
		// Interrupted mid-launch: sweep anything that made it partway up.
		if ctx.Err() != nil {
			app.manager.EmergencyCleanup(context.Background())
		}
		return err
	}

	logSuccess("Sandbox %s running", name)
	fmt.Printf("  Container: %s\n", inst.ContainerName)
	fmt.Printf("  Mode: %s\n", inst.Mode)
	fmt.Printf("  API: http://127.0.0.1:%d\n", inst.Ports.API)
	if inst.Ports.CDP != 0 {
		fmt.Printf("  CDP: http://127.0.0.1:%d\n", inst.Ports.CDP)
	}
	if inst.Ports.NoVNC != 0 {
		fmt.Printf("  Watch: http://127.0.0.1:%d (noVNC)\n", inst.Ports.NoVNC)
	}
	if inst.Err != "" {
		logWarning("  %s", inst.Err)
	}

	return nil
}
