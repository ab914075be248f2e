// Package platform collects per-OS behavior behind a single strategy
// interface, selected once at startup. Everything that used to be an inline
// GOOS switch (container-to-host aliases, browser binary locations,
// remediation hints) lives here.
package platform

import (
	"fmt"
	goruntime "runtime"
)

// Platform captures the OS-specific knowledge surfbox needs.
type Platform interface {
	// Name returns the GOOS-style platform identifier.
	Name() string

	// HostAlias returns the hostname a container's network namespace uses to
	// reach services bound on the host.
	HostAlias() string

	// ExtraRunArgs returns additional `docker run` arguments required for the
	// host alias to resolve inside containers on this platform.
	ExtraRunArgs() []string

	// BrowserCandidates returns executables to try, in order, when spawning
	// the external debugging browser.
	BrowserCandidates() []string

	// RemediationHint returns user-facing guidance when no container engine
	// is usable.
	RemediationHint() string
}

// Current returns the Platform for the running OS.
func Current() Platform {
	switch goruntime.GOOS {
	case "darwin":
		return darwin{}
	case "windows":
		return windows{}
	default:
		return linux{}
	}
}

const dockerHostAlias = "host.docker.internal"

type linux struct{}

func (linux) Name() string      { return "linux" }
func (linux) HostAlias() string { return dockerHostAlias }

// Docker on Linux does not define the host alias by default; the host-gateway
// mapping makes it resolve to the bridge gateway.
func (linux) ExtraRunArgs() []string {
	return []string{"--add-host", dockerHostAlias + ":host-gateway"}
}

func (linux) BrowserCandidates() []string {
	return []string{"google-chrome", "chromium", "chromium-browser", "brave-browser", "microsoft-edge"}
}

func (linux) RemediationHint() string {
	return "install docker (https://docs.docker.com/engine/install/) or podman, and make sure your user is in the docker group"
}

type darwin struct{}

func (darwin) Name() string           { return "darwin" }
func (darwin) HostAlias() string      { return dockerHostAlias }
func (darwin) ExtraRunArgs() []string { return nil }

func (darwin) BrowserCandidates() []string {
	return []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	}
}

func (darwin) RemediationHint() string {
	return "install Docker Desktop or OrbStack and make sure it is running"
}

type windows struct{}

func (windows) Name() string           { return "windows" }
func (windows) HostAlias() string      { return dockerHostAlias }
func (windows) ExtraRunArgs() []string { return nil }

func (windows) BrowserCandidates() []string {
	return []string{
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
	}
}

func (windows) RemediationHint() string {
	return fmt.Sprintf("install Docker Desktop with the WSL 2 backend and make sure it is running (detected OS: %s)", goruntime.GOOS)
}
