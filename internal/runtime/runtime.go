// Package runtime detects and drives container engines for surfbox.
// Docker is the primary candidate and podman the secondary; both are consumed
// through their CLIs so the tool has no daemon-socket dependencies.
package runtime

import "context"

// EngineKind identifies a container engine. The value doubles as the CLI
// binary name.
type EngineKind string

const (
	EngineDocker EngineKind = "docker"
	EnginePodman EngineKind = "podman"
)

// Info reports the outcome of runtime detection.
type Info struct {
	// Available is true when the engine can actually run workloads, not just
	// when its CLI exists.
	Available bool

	// Engine is the detected engine kind, empty when unavailable.
	Engine EngineKind

	// Version is the engine server version string.
	Version string

	// OSType is the operating system the engine executes containers for.
	OSType string

	// VMBackingPresent is true once the engine is confirmed to execute
	// Linux-style containers. Always true on Linux hosts; on macOS and
	// Windows it means the backing VM is up.
	VMBackingPresent bool

	// Reason is the human-readable cause when unavailable.
	Reason string
}

// ContainerEngine is the CLI surface the sandbox manager consumes. The
// concrete Engine shells out; MockEngine backs tests.
type ContainerEngine interface {
	// Kind returns the engine identifier.
	Kind() EngineKind

	// StartContainer invokes `run` with the given arguments and returns the
	// engine-assigned container id.
	StartContainer(ctx context.Context, runArgs []string) (string, error)

	// IsRunning reports whether the named container is currently running.
	// A container that does not exist reports false with no error.
	IsRunning(ctx context.Context, name string) (bool, error)

	// Logs returns the last tail lines of container output.
	Logs(ctx context.Context, name string, tail int) (string, error)

	// Stop gracefully stops a container with the given grace period.
	Stop(ctx context.Context, name string, timeoutSeconds int) error

	// Remove force-removes a container. Removing a container that does not
	// exist is not an error.
	Remove(ctx context.Context, name string, force bool) error

	// ListNames returns the names of all containers (running or stopped)
	// whose name matches the given prefix.
	ListNames(ctx context.Context, prefix string) ([]string, error)
}
