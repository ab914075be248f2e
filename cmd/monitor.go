package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/surfbox-dev/surfbox/internal/events"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Supervise sandbox health in the foreground",
	Long: `Watches every running sandbox: periodic container checks, agent
heartbeats, and lifecycle events are reported until interrupted.

Can be wrapped in a systemd service for persistent monitoring.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	ch := app.bus.Subscribe()
	app.manager.WatchHeartbeats()
	app.manager.StartHealthLoop()
	defer app.manager.StopHealthLoop()

	instances := app.manager.List()
	logInfo("Monitoring %d sandbox(es); press Ctrl-C to stop", len(instances))

	for {
		select {
		case <-ctx.Done():
			logInfo("Monitor stopped")
			return nil
		case ev := <-ch:
			printEvent(ev)
		}
	}
}

func printEvent(ev events.Event) {
	switch ev.Type {
	case events.TypeHeartbeatLost:
		logWarning("[%s] %s: agent heartbeat lost (%s)", ev.Time.Format("15:04:05"), ev.Name, ev.Detail)
	case events.TypeStopped:
		logWarning("[%s] %s: stopped %s", ev.Time.Format("15:04:05"), ev.Name, ev.Detail)
	case events.TypeErrored:
		logError("[%s] %s: %s", ev.Time.Format("15:04:05"), ev.Name, ev.Detail)
	default:
		logInfo("[%s] %s: %s %s", ev.Time.Format("15:04:05"), ev.Name, ev.Type, ev.Detail)
	}
}
