package runtime

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MockEngine is a ContainerEngine for testing. Containers transition through
// a scripted lifecycle and every call is recorded for verification.
type MockEngine struct {
	mu sync.Mutex

	// Running maps container name -> running state for containers that exist.
	Running map[string]bool

	// LogOutput maps container name -> scripted `logs` output.
	LogOutput map[string]string

	// Errors injects an error for a specific method name.
	Errors map[string]error

	// CrashOnStart lists container names whose entrypoint "dies" right after
	// a successful launch call: StartContainer succeeds but the container is
	// recorded as not running.
	CrashOnStart map[string]bool

	// CallLog records method invocations in order.
	CallLog []MockEngineCall

	nextID int
}

// MockEngineCall is one recorded invocation.
type MockEngineCall struct {
	Method string
	Name   string
	Args   []string
}

// NewMockEngine creates an empty MockEngine.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		Running:      make(map[string]bool),
		LogOutput:    make(map[string]string),
		Errors:       make(map[string]error),
		CrashOnStart: make(map[string]bool),
	}
}

// SetError injects an error for a method ("StartContainer", "Stop", ...).
func (m *MockEngine) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[method] = err
}

// CallsFor returns recorded calls for one method.
func (m *MockEngine) CallsFor(method string) []MockEngineCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockEngineCall
	for _, c := range m.CallLog {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockEngine) record(method, name string, args ...string) {
	m.CallLog = append(m.CallLog, MockEngineCall{Method: method, Name: name, Args: args})
}

func (m *MockEngine) Kind() EngineKind { return "mock" }

func (m *MockEngine) StartContainer(ctx context.Context, runArgs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := extractName(runArgs)
	m.record("StartContainer", name, runArgs...)

	if err := m.Errors["StartContainer"]; err != nil {
		return "", err
	}

	m.nextID++
	m.Running[name] = !m.CrashOnStart[name]
	return "mock-container-" + name, nil
}

func (m *MockEngine) IsRunning(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("IsRunning", name)

	if err := m.Errors["IsRunning"]; err != nil {
		return false, err
	}
	return m.Running[name], nil
}

func (m *MockEngine) Logs(ctx context.Context, name string, tail int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Logs", name)

	if err := m.Errors["Logs"]; err != nil {
		return "", err
	}
	return m.LogOutput[name], nil
}

func (m *MockEngine) Stop(ctx context.Context, name string, timeoutSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Stop", name)

	if err := m.Errors["Stop"]; err != nil {
		return err
	}
	if _, ok := m.Running[name]; ok {
		m.Running[name] = false
	}
	return nil
}

func (m *MockEngine) Remove(ctx context.Context, name string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Remove", name)

	if err := m.Errors["Remove"]; err != nil {
		return err
	}
	delete(m.Running, name)
	return nil
}

func (m *MockEngine) ListNames(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListNames", prefix)

	if err := m.Errors["ListNames"]; err != nil {
		return nil, err
	}
	var names []string
	for name := range m.Running {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// extractName pulls the --name value out of a run argument list.
func extractName(runArgs []string) string {
	for i, arg := range runArgs {
		if arg == "--name" && i+1 < len(runArgs) {
			return runArgs[i+1]
		}
	}
	return "unnamed"
}

var _ ContainerEngine = (*MockEngine)(nil)
