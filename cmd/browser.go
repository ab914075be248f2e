package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/cdp"
	"github.com/surfbox-dev/surfbox/internal/config"
	"github.com/surfbox-dev/surfbox/internal/logging"
)

var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Manage the host debugging browser",
}

var browserLaunchCmd = &cobra.Command{
	Use:   "launch [browser-id]",
	Short: "Start (or adopt) the debugging browser",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBrowserLaunch,
}

var browserStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the debugging browser's endpoint",
	RunE:  runBrowserStatus,
}

var browserCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the debugging browser session",
	RunE:  runBrowserClose,
}

func init() {
	browserCmd.AddCommand(browserLaunchCmd, browserStatusCmd, browserCloseCmd)
	rootCmd.AddCommand(browserCmd)
}

func runBrowserLaunch(cmd *cobra.Command, args []string) error {
	browserID := "default"
	if len(args) == 1 {
		browserID = args[0]
	}
	ctx := context.Background()

	cfg, bridge, err := loadBridge()
	if err != nil {
		return err
	}

	// A session left by an earlier invocation under another id still blocks
	// this one.
	if rec := loadBrowserSession(cfg); rec != nil && rec.BrowserID != browserID {
		if _, _, err := bridge.Inspect(ctx); err == nil {
			return fmt.Errorf("browser session for %q is already active; close it first", rec.BrowserID)
		}
		deleteBrowserSession(cfg)
	}

	sess, err := bridge.Launch(ctx, browserID)
	if err != nil {
		return err
	}
	if err := bridge.VerifyWebSocket(ctx); err != nil {
		logWarning("DevTools handshake failed: %v", err)
	}
	saveBrowserSession(cfg, sess)

	if sess.Spawned {
		logSuccess("Browser started (pid %d)", sess.Pid)
	} else {
		logSuccess("Adopted browser already running on port %d", sess.Port)
	}
	fmt.Printf("  Endpoint: %s\n", sess.WebSocketURL)
	fmt.Printf("  From sandboxes: %s\n", sess.ContainerWebSocketURL)
	return nil
}

func runBrowserStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, bridge, err := loadBridge()
	if err != nil {
		return err
	}

	browser, wsURL, err := bridge.Inspect(ctx)
	if err != nil {
		logInfo("No browser answering on port %d", cfg.CDPPort)
		return nil
	}

	fmt.Printf("Browser: %s\n", browser)
	fmt.Printf("Endpoint: %s\n", wsURL)
	if rec := loadBrowserSession(cfg); rec != nil {
		fmt.Printf("Session: %s", rec.BrowserID)
		if rec.Spawned {
			fmt.Printf(" (pid %d)", rec.Pid)
		}
		fmt.Println()
	}
	return nil
}

func runBrowserClose(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadBridge()
	if err != nil {
		return err
	}

	rec := loadBrowserSession(cfg)
	if rec == nil {
		logInfo("No browser session recorded, nothing to do")
		return nil
	}

	if rec.Spawned && rec.Pid > 0 {
		if proc, err := os.FindProcess(rec.Pid); err == nil {
			if err := proc.Kill(); err != nil {
				logging.Debug("browser process already gone", "pid", rec.Pid, "error", err)
			}
		}
		logSuccess("Closed browser session %s (pid %d)", rec.BrowserID, rec.Pid)
	} else {
		logInfo("Session %s adopted an externally started browser; leaving it running", rec.BrowserID)
	}

	deleteBrowserSession(cfg)
	return nil
}

// browserSessionRecord persists the active session across invocations.
type browserSessionRecord struct {
	BrowserID             string `json:"browserId"`
	Port                  int    `json:"port"`
	Pid                   int    `json:"pid,omitempty"`
	Spawned               bool   `json:"spawned"`
	WebSocketURL          string `json:"webSocketUrl"`
	ContainerWebSocketURL string `json:"containerWebSocketUrl"`
}

func browserSessionPath(cfg *config.Config) string {
	return filepath.Join(cfg.StateDir, "browser.json")
}

func saveBrowserSession(cfg *config.Config, sess *cdp.Session) {
	rec := browserSessionRecord{
		BrowserID:             sess.BrowserID,
		Port:                  sess.Port,
		Pid:                   sess.Pid,
		Spawned:               sess.Spawned,
		WebSocketURL:          sess.WebSocketURL,
		ContainerWebSocketURL: sess.ContainerWebSocketURL,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		logging.Warn("could not persist browser session", "error", err)
		return
	}
	if err := os.WriteFile(browserSessionPath(cfg), data, 0o600); err != nil {
		logging.Warn("could not persist browser session", "error", err)
	}
}

func loadBrowserSession(cfg *config.Config) *browserSessionRecord {
	data, err := os.ReadFile(browserSessionPath(cfg))
	if err != nil {
		return nil
	}
	var rec browserSessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	return &rec
}

func deleteBrowserSession(cfg *config.Config) {
	_ = os.Remove(browserSessionPath(cfg))
}
