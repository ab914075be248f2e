package system

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Name   string
	Args   []string
}

// MockResult is a scripted response for a MockRunner command.
type MockResult struct {
	Stdout string
	Stderr string
	Err    error
}

// MockRunner implements CommandRunner for testing. Responses are scripted by
// command prefix; all invocations are recorded for verification.
type MockRunner struct {
	mu sync.Mutex

	// Binaries lists executables that LookPath resolves.
	Binaries map[string]string

	// Results maps a space-joined command prefix to a scripted result.
	// The longest matching prefix wins.
	Results map[string]MockResult

	// StartErr is returned by Start when set.
	StartErr error

	// CallLog records all method calls in order.
	CallLog []MockCall

	// Started holds handles for every process spawned via Start.
	Started []*MockProcess
}

// NewMockRunner creates a MockRunner with no binaries and no scripted results.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Binaries: make(map[string]string),
		Results:  make(map[string]MockResult),
	}
}

// AddBinary makes name resolvable through LookPath.
func (m *MockRunner) AddBinary(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Binaries[name] = "/usr/bin/" + name
}

// Script sets the result for commands matching the given prefix,
// e.g. "docker inspect" or "docker run".
func (m *MockRunner) Script(prefix string, res MockResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[prefix] = res
}

// CallsFor returns all recorded calls for a method ("Run", "LookPath", "Start").
func (m *MockRunner) CallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []MockCall
	for _, c := range m.CallLog {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

func (m *MockRunner) record(method, name string, args []string) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Name: name, Args: args})
}

func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("LookPath", name, nil)
	if path, ok := m.Binaries[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Run", name, args)

	full := name + " " + strings.Join(args, " ")
	bestLen := -1
	var best MockResult
	for prefix, res := range m.Results {
		if strings.HasPrefix(full, prefix) && len(prefix) > bestLen {
			bestLen = len(prefix)
			best = res
		}
	}
	if bestLen < 0 {
		return "", "", fmt.Errorf("no scripted result for %q", full)
	}
	return best.Stdout, best.Stderr, best.Err
}

func (m *MockRunner) Start(name string, args ...string) (Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Start", name, args)
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	p := &MockProcess{pid: 1000 + len(m.Started)}
	m.Started = append(m.Started, p)
	return p, nil
}

// MockProcess implements Process for testing.
type MockProcess struct {
	pid    int
	Killed bool
}

func (p *MockProcess) Pid() int { return p.pid }

func (p *MockProcess) Kill() error {
	p.Killed = true
	return nil
}

// MockFS implements FileSystem for testing.
type MockFS struct {
	mu    sync.Mutex
	paths map[string]bool

	MkdirAllErr error
}

// NewMockFS creates an empty MockFS.
func NewMockFS() *MockFS {
	return &MockFS{paths: make(map[string]bool)}
}

// AddPath marks a path as existing.
func (m *MockFS) AddPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[path] = true
}

func (m *MockFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paths[path]
}

func (m *MockFS) MkdirAll(path string, perm os.FileMode) error {
	if m.MkdirAllErr != nil {
		return m.MkdirAllErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[path] = true
	return nil
}
