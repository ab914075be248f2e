package tui

import (
	"fmt"
	"time"

	"github.com/surfbox-dev/surfbox/internal/sandbox"
)

// formatUptime renders how long a running instance has been up.
func formatUptime(inst *sandbox.Instance) string {
	if inst.Status != sandbox.StatusRunning || inst.CreatedAt.IsZero() {
		return "-"
	}
	d := time.Since(inst.CreatedAt).Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
