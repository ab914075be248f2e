package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateInstanceName(t *testing.T) {
	valid := []string{"web", "a", "web-1", "browser_2", "0box"}
	for _, name := range valid {
		if err := ValidateInstanceName(name); err != nil {
			t.Errorf("ValidateInstanceName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "Web", "-web", "web box", "../etc", strings.Repeat("a", 64)}
	for _, name := range invalid {
		if err := ValidateInstanceName(name); err == nil {
			t.Errorf("ValidateInstanceName(%q) = nil, want error", name)
		}
	}
}

func TestContainerName(t *testing.T) {
	if got := ContainerName("web"); got != "surfbox-web" {
		t.Errorf("ContainerName = %q, want %q", got, "surfbox-web")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.PortRangeFrom != 39000 || cfg.PortRangeTo != 39199 {
		t.Errorf("unexpected default port range %d-%d", cfg.PortRangeFrom, cfg.PortRangeTo)
	}
	if cfg.HeartbeatThreshold != 3 {
		t.Errorf("HeartbeatThreshold = %d, want 3", cfg.HeartbeatThreshold)
	}
	if cfg.SettleDelay.Std() != 1500*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 1.5s", cfg.SettleDelay.Std())
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
image = "example.com/agent:dev"
port_range_from = 42000
port_range_to = 42010
heartbeat_interval = "2s"
heartbeat_threshold = 5
settle_delay = "250ms"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Image != "example.com/agent:dev" {
		t.Errorf("Image = %q", cfg.Image)
	}
	if cfg.PortRangeFrom != 42000 || cfg.PortRangeTo != 42010 {
		t.Errorf("port range = %d-%d", cfg.PortRangeFrom, cfg.PortRangeTo)
	}
	if cfg.HeartbeatInterval.Std() != 2*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval.Std())
	}
	if cfg.HeartbeatThreshold != 5 {
		t.Errorf("HeartbeatThreshold = %d", cfg.HeartbeatThreshold)
	}
	if cfg.SettleDelay.Std() != 250*time.Millisecond {
		t.Errorf("SettleDelay = %v", cfg.SettleDelay.Std())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`cdp_port = 9333`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SURFBOX_CDP_PORT", "9444")
	t.Setenv("SURFBOX_HEARTBEAT_INTERVAL", "7s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CDPPort != 9444 {
		t.Errorf("CDPPort = %d, want env override 9444", cfg.CDPPort)
	}
	if cfg.HeartbeatInterval.Std() != 7*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 7s", cfg.HeartbeatInterval.Std())
	}
}

func TestLoad_InvalidPortRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("port_range_from = 5000\nport_range_to = 4000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for inverted port range")
	}
}

func TestProfileDir_ContainsTraversal(t *testing.T) {
	cfg := Default()
	cfg.StateDir = t.TempDir()

	dir, err := cfg.ProfileDir("../../outside")
	if err != nil {
		t.Fatalf("ProfileDir failed: %v", err)
	}
	if !strings.HasPrefix(dir, cfg.StateDir) {
		t.Errorf("profile dir %q escapes state dir %q", dir, cfg.StateDir)
	}
}
