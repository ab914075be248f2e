// Package system provides abstractions for OS operations to enable testing.
//
// The container engine wrapper, the runtime detector, and the CDP bridge all
// shell out to external binaries (docker, podman, a browser). Routing those
// calls through CommandRunner lets every package above this one run its tests
// without any of these binaries installed.
package system

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// Process is a handle to a spawned OS process.
type Process interface {
	// Pid returns the OS process id.
	Pid() int

	// Kill terminates the process immediately.
	Kill() error
}

// CommandRunner abstracts external command execution for testability.
type CommandRunner interface {
	// LookPath searches for an executable in PATH.
	LookPath(name string) (string, error)

	// Run executes a command to completion and returns stdout and stderr
	// separately. Engine error refinement depends on stderr content, so the
	// two streams are never merged.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

	// Start spawns a long-lived detached process (e.g. a browser) and
	// returns a handle without waiting for it to exit.
	Start(name string, args ...string) (Process, error)
}

// FileSystem abstracts the handful of file operations surfbox performs.
type FileSystem interface {
	// Exists returns true if the path exists.
	Exists(path string) bool

	// MkdirAll creates a directory along with any necessary parents.
	MkdirAll(path string, perm os.FileMode) error
}

// OSRunner implements CommandRunner using real OS operations.
type OSRunner struct{}

func (OSRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (OSRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (OSRunner) Start(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	// Reap the child when it exits so killed browsers do not linger as
	// zombies for the life of this process.
	go func() { _ = cmd.Wait() }()
	return &osProcess{cmd: cmd}, nil
}

type osProcess struct {
	cmd *exec.Cmd
}

func (p *osProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *osProcess) Kill() error {
	return p.cmd.Process.Kill()
}

// OSFileSystem implements FileSystem using real OS operations.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
