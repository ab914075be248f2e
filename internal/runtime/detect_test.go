package runtime

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/surfbox-dev/surfbox/internal/platform"
	"github.com/surfbox-dev/surfbox/internal/system"
)

func newTestDetector(runner *system.MockRunner) *Detector {
	return NewDetector(runner, platform.Current())
}

func TestDetect_PrimaryAvailable(t *testing.T) {
	runner := system.NewMockRunner()
	runner.AddBinary("docker")
	runner.Script("docker info", system.MockResult{Stdout: "linux;27.1.1\n"})

	info := newTestDetector(runner).Detect(context.Background(), "")

	if !info.Available {
		t.Fatalf("expected available, reason: %s", info.Reason)
	}
	if info.Engine != EngineDocker {
		t.Errorf("Engine = %s, want docker", info.Engine)
	}
	if info.Version != "27.1.1" {
		t.Errorf("Version = %q, want 27.1.1", info.Version)
	}
	if !info.VMBackingPresent {
		t.Error("expected VMBackingPresent for a linux engine")
	}
}

func TestDetect_FallsBackToSecondary(t *testing.T) {
	runner := system.NewMockRunner()
	runner.AddBinary("podman")
	runner.Script("podman info", system.MockResult{Stdout: "linux;5.2.0\n"})

	info := newTestDetector(runner).Detect(context.Background(), "")

	if !info.Available {
		t.Fatalf("expected available, reason: %s", info.Reason)
	}
	if info.Engine != EnginePodman {
		t.Errorf("Engine = %s, want podman", info.Engine)
	}
}

func TestDetect_PreferredTriedFirst(t *testing.T) {
	runner := system.NewMockRunner()
	runner.AddBinary("docker")
	runner.AddBinary("podman")
	runner.Script("docker info", system.MockResult{Stdout: "linux;27.1.1\n"})
	runner.Script("podman info", system.MockResult{Stdout: "linux;5.2.0\n"})

	info := newTestDetector(runner).Detect(context.Background(), EnginePodman)

	if info.Engine != EnginePodman {
		t.Errorf("Engine = %s, want preferred podman", info.Engine)
	}
}

func TestDetect_NoneAvailable_AggregatesReasons(t *testing.T) {
	runner := system.NewMockRunner()
	// Neither binary installed.
	info := newTestDetector(runner).Detect(context.Background(), "")

	if info.Available {
		t.Fatal("expected unavailable")
	}
	for _, want := range []string{"docker", "podman", "not installed"} {
		if !strings.Contains(info.Reason, want) {
			t.Errorf("Reason %q missing %q", info.Reason, want)
		}
	}
	// A remediation hint must be attached.
	if !strings.Contains(info.Reason, "install") {
		t.Errorf("Reason %q missing remediation hint", info.Reason)
	}
}

func TestDetect_DaemonNotRunning(t *testing.T) {
	runner := system.NewMockRunner()
	runner.AddBinary("docker")
	runner.Script("docker info", system.MockResult{
		Stderr: "Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?",
		Err:    fmt.Errorf("exit status 1"),
	})

	info := newTestDetector(runner).Detect(context.Background(), "")

	if info.Available {
		t.Fatal("expected unavailable")
	}
	if !strings.Contains(info.Reason, "daemon is not running") {
		t.Errorf("Reason %q not refined to daemon-not-running", info.Reason)
	}
}

func TestDetect_PermissionDenied(t *testing.T) {
	runner := system.NewMockRunner()
	runner.AddBinary("docker")
	runner.Script("docker info", system.MockResult{
		Stderr: "permission denied while trying to connect to the Docker daemon socket",
		Err:    fmt.Errorf("exit status 1"),
	})

	info := newTestDetector(runner).Detect(context.Background(), "")

	if !strings.Contains(info.Reason, "denied") {
		t.Errorf("Reason %q not refined to permission-denied", info.Reason)
	}
}

func TestReady_CachesSuccess(t *testing.T) {
	runner := system.NewMockRunner()
	runner.AddBinary("docker")
	runner.Script("docker info", system.MockResult{Stdout: "linux;27.1.1\n"})

	d := newTestDetector(runner)

	first := d.Ready(context.Background())
	if !first.Available {
		t.Fatalf("expected available, reason: %s", first.Reason)
	}
	probesAfterFirst := len(runner.CallsFor("Run"))

	second := d.Ready(context.Background())
	if !second.Available {
		t.Fatal("expected cached availability")
	}
	if got := len(runner.CallsFor("Run")); got != probesAfterFirst {
		t.Errorf("Ready re-probed a cached success: %d runs, want %d", got, probesAfterFirst)
	}
}

func TestIsAnyAvailable_SkipsDaemonCheckWhenNotInstalled(t *testing.T) {
	runner := system.NewMockRunner()

	if newTestDetector(runner).IsAnyAvailable(context.Background()) {
		t.Error("expected false with no binaries installed")
	}
	if got := len(runner.CallsFor("Run")); got != 0 {
		t.Errorf("daemon probe ran %d times despite missing binaries", got)
	}
}

func TestRefineDaemonError_Generic(t *testing.T) {
	reason := refineDaemonError("some weird failure\nsecond line")
	if !strings.Contains(reason, "some weird failure") {
		t.Errorf("generic reason %q should carry first stderr line", reason)
	}
	if strings.Contains(reason, "second line") {
		t.Errorf("generic reason %q should only carry first line", reason)
	}
}
