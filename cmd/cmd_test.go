package cmd

import (
	"testing"

	"github.com/surfbox-dev/surfbox/internal/cdp"
	"github.com/surfbox-dev/surfbox/internal/config"
	"github.com/surfbox-dev/surfbox/internal/sandbox"
)

func TestFormatPort(t *testing.T) {
	if got := formatPort(0); got != "-" {
		t.Errorf("formatPort(0) = %q, want -", got)
	}
	if got := formatPort(39000); got != ":39000" {
		t.Errorf("formatPort(39000) = %q, want :39000", got)
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name string
		inst *sandbox.Instance
		want string
	}{
		{"running", &sandbox.Instance{Status: sandbox.StatusRunning}, "✓ running"},
		{"stopped", &sandbox.Instance{Status: sandbox.StatusStopped}, "● stopped"},
		{"error", &sandbox.Instance{Status: sandbox.StatusError}, "✗ error"},
		{"agent lost", &sandbox.Instance{Status: sandbox.StatusRunning, HeartbeatLost: true}, "⚠ agent-lost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatStatus(tt.inst); got != tt.want {
				t.Errorf("formatStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBrowserSessionRecord_RoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.StateDir = t.TempDir()

	if rec := loadBrowserSession(cfg); rec != nil {
		t.Fatalf("unexpected session record: %+v", rec)
	}

	saveBrowserSession(cfg, &cdp.Session{
		BrowserID:             "personal",
		Port:                  9222,
		Pid:                   4242,
		Spawned:               true,
		WebSocketURL:          "ws://127.0.0.1:9222/devtools/browser/abc",
		ContainerWebSocketURL: "ws://host.docker.internal:9222/devtools/browser/abc",
	})

	rec := loadBrowserSession(cfg)
	if rec == nil {
		t.Fatal("session record not persisted")
	}
	if rec.BrowserID != "personal" || rec.Pid != 4242 || !rec.Spawned {
		t.Errorf("record = %+v", rec)
	}

	deleteBrowserSession(cfg)
	if rec := loadBrowserSession(cfg); rec != nil {
		t.Error("record survived delete")
	}
}
