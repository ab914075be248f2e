package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/surfbox-dev/surfbox/internal/logging"
	"github.com/surfbox-dev/surfbox/internal/system"
)

// Engine drives a container engine through its CLI.
type Engine struct {
	kind   EngineKind
	bin    string
	runner system.CommandRunner
}

// NewEngine creates an Engine for the given kind.
func NewEngine(kind EngineKind, runner system.CommandRunner) *Engine {
	return &Engine{
		kind:   kind,
		bin:    string(kind),
		runner: runner,
	}
}

// Kind returns the engine identifier.
func (e *Engine) Kind() EngineKind {
	return e.kind
}

// run executes an engine command, folding stderr into the returned error.
func (e *Engine) run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := e.runner.Run(ctx, e.bin, args...)
	if err != nil {
		return "", fmt.Errorf("%s %s failed: %s: %w", e.bin, args[0], strings.TrimSpace(stderr), err)
	}
	return stdout, nil
}

// StartContainer invokes `run` with the prepared argument list and returns
// the container id printed by the engine. The launch call returning
// successfully does NOT prove the entrypoint is alive; callers must follow up
// with IsRunning after a settle delay.
func (e *Engine) StartContainer(ctx context.Context, runArgs []string) (string, error) {
	args := append([]string{"run"}, runArgs...)
	out, err := e.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsRunning checks if a container is currently running. A container that
// does not exist reports false, not an error. Any other inspect failure, a
// daemon that cannot be reached included, is an error: callers must not read
// "could not ask" as "container gone".
func (e *Engine) IsRunning(ctx context.Context, name string) (bool, error) {
	out, err := e.run(ctx, "inspect", "--format", "{{.State.Running}}", name)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}

// Logs returns the last tail lines of a container's output. Both streams are
// returned together; crash diagnostics do not care which one the entrypoint
// used.
func (e *Engine) Logs(ctx context.Context, name string, tail int) (string, error) {
	stdout, stderr, err := e.runner.Run(ctx, e.bin, "logs", "--tail", strconv.Itoa(tail), name)
	if err != nil {
		return "", fmt.Errorf("%s logs failed: %s: %w", e.bin, strings.TrimSpace(stderr), err)
	}
	return strings.TrimSpace(stdout + stderr), nil
}

// Stop gracefully stops a container, waiting up to timeoutSeconds before the
// engine escalates to SIGKILL.
func (e *Engine) Stop(ctx context.Context, name string, timeoutSeconds int) error {
	logging.Debug("stopping container", "container", name, "timeout", timeoutSeconds)
	_, err := e.run(ctx, "stop", "-t", strconv.Itoa(timeoutSeconds), name)
	return err
}

// Remove removes a container. Removing a container that is already gone is
// treated as success.
func (e *Engine) Remove(ctx context.Context, name string, force bool) error {
	logging.Debug("removing container", "container", name, "force", force)

	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, name)

	_, err := e.run(ctx, args...)
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

// ListNames returns the names of all containers matching the prefix,
// regardless of state.
func (e *Engine) ListNames(ctx context.Context, prefix string) ([]string, error) {
	out, err := e.run(ctx, "ps", "-a", "--format", "{{.Names}}", "--filter", "name="+prefix)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		name := strings.TrimSpace(line)
		// The name filter is a substring match; keep only true prefix hits.
		if name != "" && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such container") || strings.Contains(msg, "not found")
}

var _ ContainerEngine = (*Engine)(nil)
