package cdp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/surfbox-dev/surfbox/internal/config"
	"github.com/surfbox-dev/surfbox/internal/errors"
	"github.com/surfbox-dev/surfbox/internal/platform"
	"github.com/surfbox-dev/surfbox/internal/system"
)

func testConfig(t *testing.T, port int) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.StateDir = t.TempDir()
	cfg.CDPPort = port
	cfg.CDPTimeout = config.Duration(500 * time.Millisecond)
	return cfg
}

// versionServer serves /json/version once ready() returns true.
func versionServer(t *testing.T, ready func() bool) (*httptest.Server, int) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" || !ready() {
			http.NotFound(w, r)
			return
		}
		port := r.Host[strings.LastIndex(r.Host, ":")+1:]
		fmt.Fprintf(w, `{"Browser":"Chrome/126.0","webSocketDebuggerUrl":"ws://127.0.0.1:%s/devtools/browser/abc"}`, port)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing server url: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())
	return srv, port
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestLaunch_AdoptsRunningBrowser(t *testing.T) {
	_, port := versionServer(t, func() bool { return true })
	runner := system.NewMockRunner()

	b := NewBridge(testConfig(t, port), platform.Current(), runner, system.NewMockFS())
	sess, err := b.Launch(context.Background(), "personal")
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	if sess.Spawned {
		t.Error("adopted session marked as spawned")
	}
	if len(runner.CallsFor("Start")) != 0 {
		t.Error("adopting must not spawn a process")
	}
	if sess.Browser != "Chrome/126.0" {
		t.Errorf("Browser = %q", sess.Browser)
	}

	alias := platform.Current().HostAlias()
	want := fmt.Sprintf("ws://%s:%d/devtools/browser/abc", alias, port)
	if sess.ContainerWebSocketURL != want {
		t.Errorf("ContainerWebSocketURL = %q, want %q", sess.ContainerWebSocketURL, want)
	}
	if !strings.Contains(sess.WebSocketURL, "127.0.0.1") {
		t.Errorf("WebSocketURL = %q, want loopback form", sess.WebSocketURL)
	}
}

func TestLaunch_SameIDReuses(t *testing.T) {
	_, port := versionServer(t, func() bool { return true })
	runner := system.NewMockRunner()

	b := NewBridge(testConfig(t, port), platform.Current(), runner, system.NewMockFS())
	first, err := b.Launch(context.Background(), "personal")
	if err != nil {
		t.Fatalf("first Launch failed: %v", err)
	}
	second, err := b.Launch(context.Background(), "personal")
	if err != nil {
		t.Fatalf("second Launch failed: %v", err)
	}

	if second.BrowserID != first.BrowserID || second.Port != first.Port {
		t.Errorf("second launch returned a different session: %+v vs %+v", second, first)
	}
	if len(runner.CallsFor("Start")) != 0 {
		t.Error("reuse must not spawn a process")
	}
}

func TestLaunch_DifferentIDIsBusy(t *testing.T) {
	_, port := versionServer(t, func() bool { return true })
	runner := system.NewMockRunner()

	b := NewBridge(testConfig(t, port), platform.Current(), runner, system.NewMockFS())
	if _, err := b.Launch(context.Background(), "personal"); err != nil {
		t.Fatalf("first Launch failed: %v", err)
	}

	_, err := b.Launch(context.Background(), "work")
	if err == nil {
		t.Fatal("expected session-busy error")
	}
	if errors.GetExitCode(err) != errors.ExitSessionBusy {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitSessionBusy)
	}
	if !strings.Contains(err.Error(), "personal") {
		t.Errorf("busy error %q should name the active browser", err)
	}
	// The original session must be untouched.
	if sess := b.Session(); sess == nil || sess.BrowserID != "personal" {
		t.Errorf("active session = %+v, want personal", sess)
	}
	if len(runner.CallsFor("Start")) != 0 {
		t.Error("a refused launch must not spawn a process")
	}
}

func TestLaunch_SpawnsAndWaitsForEndpoint(t *testing.T) {
	runner := system.NewMockRunner()
	for _, candidate := range platform.Current().BrowserCandidates() {
		runner.AddBinary(candidate)
	}

	// The endpoint answers only after the browser process has been spawned.
	_, port := versionServer(t, func() bool {
		return len(runner.CallsFor("Start")) > 0
	})

	fs := system.NewMockFS()
	cfg := testConfig(t, port)
	b := NewBridge(cfg, platform.Current(), runner, fs)

	sess, err := b.Launch(context.Background(), "personal")
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if !sess.Spawned {
		t.Error("spawned session not marked as spawned")
	}

	starts := runner.CallsFor("Start")
	if len(starts) != 1 {
		t.Fatalf("spawns = %d, want 1", len(starts))
	}
	args := strings.Join(starts[0].Args, " ")
	for _, want := range []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		"--remote-debugging-address=0.0.0.0",
		"--user-data-dir=",
		"--no-first-run",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("spawn args %q missing %q", args, want)
		}
	}

	profileDir, err := cfg.ProfileDir("personal")
	if err != nil {
		t.Fatalf("ProfileDir: %v", err)
	}
	if !fs.Exists(profileDir) {
		t.Errorf("profile dir %s was not created", profileDir)
	}
}

func TestLaunch_TimeoutKillsSpawnedBrowser(t *testing.T) {
	runner := system.NewMockRunner()
	for _, candidate := range platform.Current().BrowserCandidates() {
		runner.AddBinary(candidate)
	}

	b := NewBridge(testConfig(t, closedPort(t)), platform.Current(), runner, system.NewMockFS())
	_, err := b.Launch(context.Background(), "personal")
	if err == nil {
		t.Fatal("expected connect failure")
	}
	if errors.GetExitCode(err) != errors.ExitCDPConnectFailed {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitCDPConnectFailed)
	}

	if len(runner.Started) != 1 {
		t.Fatalf("spawns = %d, want 1", len(runner.Started))
	}
	if !runner.Started[0].Killed {
		t.Error("unresponsive browser was not killed")
	}
	if b.Session() != nil {
		t.Error("failed launch left a session behind")
	}
}

func TestLaunch_NoBrowserInstalled(t *testing.T) {
	runner := system.NewMockRunner()

	b := NewBridge(testConfig(t, closedPort(t)), platform.Current(), runner, system.NewMockFS())
	_, err := b.Launch(context.Background(), "personal")
	if err == nil {
		t.Fatal("expected error with no browser binaries")
	}
	if errors.GetExitCode(err) != errors.ExitCDPConnectFailed {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitCDPConnectFailed)
	}
}

func TestClose_KillsOnlySpawnedBrowsers(t *testing.T) {
	runner := system.NewMockRunner()
	for _, candidate := range platform.Current().BrowserCandidates() {
		runner.AddBinary(candidate)
	}
	_, port := versionServer(t, func() bool {
		return len(runner.CallsFor("Start")) > 0
	})

	b := NewBridge(testConfig(t, port), platform.Current(), runner, system.NewMockFS())
	if _, err := b.Launch(context.Background(), "personal"); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !runner.Started[0].Killed {
		t.Error("Close did not kill the spawned browser")
	}
	if b.Session() != nil {
		t.Error("session survived Close")
	}

	// Closing again is a no-op.
	if err := b.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestVerifyWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var wsPort int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json/version":
			fmt.Fprintf(w, `{"Browser":"Chrome/126.0","webSocketDebuggerUrl":"ws://127.0.0.1:%d/devtools/browser/abc"}`, wsPort)
		case "/devtools/browser/abc":
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			conn.Close()
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	wsPort, _ = strconv.Atoi(u.Port())

	b := NewBridge(testConfig(t, wsPort), platform.Current(), system.NewMockRunner(), system.NewMockFS())
	if _, err := b.Launch(context.Background(), "personal"); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if err := b.VerifyWebSocket(context.Background()); err != nil {
		t.Fatalf("VerifyWebSocket failed: %v", err)
	}
	if sess := b.Session(); !sess.Connected {
		t.Error("session not marked connected after successful handshake")
	}
}

func TestRewriteHost(t *testing.T) {
	tests := []struct {
		in, alias, want string
	}{
		{"ws://127.0.0.1:9222/devtools/browser/abc", "host.docker.internal", "ws://host.docker.internal:9222/devtools/browser/abc"},
		{"ws://localhost:9222/session?id=1", "host.docker.internal", "ws://host.docker.internal:9222/session?id=1"},
		{"ws://127.0.0.1/devtools", "host.docker.internal", "ws://host.docker.internal/devtools"},
	}
	for _, tt := range tests {
		got, err := RewriteHost(tt.in, tt.alias)
		if err != nil {
			t.Errorf("RewriteHost(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("RewriteHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
