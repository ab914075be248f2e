// Package sandbox manages the lifecycle of browser sandbox containers: port
// reservation, launch with crash detection, health supervision, teardown, and
// cleanup of anything left behind by earlier runs.
package sandbox

import (
	"time"

	"github.com/surfbox-dev/surfbox/internal/port"
)

// Status is an instance's lifecycle state.
type Status string

const (
	StatusCreating Status = "creating"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

// BrowserMode selects where an instance's browser runs.
type BrowserMode string

const (
	// ModeHeadless runs a browser inside the container.
	ModeHeadless BrowserMode = "headless"

	// ModeHostBridged attaches the sandbox to a debugging browser on the
	// host, reached through the container-to-host alias.
	ModeHostBridged BrowserMode = "host-bridged-cdp"

	// ModeExternal attaches the sandbox to a user-supplied CDP endpoint.
	ModeExternal BrowserMode = "external-cdp"
)

// Instance is one managed sandbox.
type Instance struct {
	// ID is the stable unique identifier.
	ID string

	// Name is the user-chosen instance name.
	Name string

	// ContainerName is the deterministic engine-side name derived from Name.
	// It is what makes create idempotent and orphans findable.
	ContainerName string

	// ContainerID is the engine-assigned id after a successful launch.
	ContainerID string

	Image string
	Ports port.Set
	Mode  BrowserMode

	// CDPEndpoint is the container-reachable websocket endpoint for the
	// host-bridged and external modes. Empty in headless mode.
	CDPEndpoint string

	Status Status

	// Err carries the most recent failure description when Status is error,
	// or a degradation note (e.g. lost heartbeat) on a running instance.
	Err string

	// HeartbeatLost is set when the in-sandbox agent stopped answering
	// heartbeats for the full failure run. The manager retires the instance
	// right after setting it.
	HeartbeatLost bool

	CreatedAt   time.Time
	LastHealthy time.Time
}

// Running reports whether the instance is in a state where work can be sent
// to it.
func (i *Instance) Running() bool {
	return i.Status == StatusRunning
}
