// Package cdp manages the host-side debugging browser that sandboxes attach
// to over the Chrome DevTools Protocol. The bridge owns at most one browser
// session at a time: sandboxes share the session, and a second browser id can
// only take over after the first is closed.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/surfbox-dev/surfbox/internal/config"
	"github.com/surfbox-dev/surfbox/internal/errors"
	"github.com/surfbox-dev/surfbox/internal/logging"
	"github.com/surfbox-dev/surfbox/internal/platform"
	"github.com/surfbox-dev/surfbox/internal/system"
)

const (
	// probeTimeout bounds a single /json/version request.
	probeTimeout = 2 * time.Second

	// pollInterval paces readiness retries while a spawned browser boots.
	pollInterval = 250 * time.Millisecond
)

// Session is the active debugging browser.
type Session struct {
	// BrowserID identifies the profile this browser runs under.
	BrowserID string

	// Port is the host-side debugging port.
	Port int

	// Browser is the product string reported by the endpoint.
	Browser string

	// WebSocketURL is the DevTools endpoint as seen from the host.
	WebSocketURL string

	// ContainerWebSocketURL is the same endpoint with the host rewritten to
	// the alias containers resolve. Only the host changes; port, path, and
	// query survive untouched.
	ContainerWebSocketURL string

	// Spawned is true when the bridge started this browser itself. Adopted
	// browsers are never killed by the bridge.
	Spawned bool

	// Pid is the spawned browser's process id, zero for adopted browsers.
	Pid int

	// Connected reports whether a DevTools websocket handshake has succeeded.
	Connected bool

	StartedAt time.Time

	proc system.Process
}

// Bridge spawns or adopts the debugging browser and hands out its endpoint.
type Bridge struct {
	cfg    *config.Config
	plat   platform.Platform
	runner system.CommandRunner
	fs     system.FileSystem

	// probeHost is where the debugging port is expected to answer.
	probeHost string

	mu      sync.Mutex
	session *Session
}

// NewBridge creates a Bridge.
func NewBridge(cfg *config.Config, plat platform.Platform, runner system.CommandRunner, fs system.FileSystem) *Bridge {
	return &Bridge{
		cfg:       cfg,
		plat:      plat,
		runner:    runner,
		fs:        fs,
		probeHost: "127.0.0.1",
	}
}

// versionInfo is the subset of /json/version the bridge needs.
type versionInfo struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Launch ensures a debugging browser for browserID is running and returns its
// session.
//
// If a session for the same browser id exists it is revalidated and reused.
// A session under a different id makes Launch fail with a session-busy error
// and no side effects. With no session, a browser already answering on the
// debugging port is adopted; otherwise one is spawned with an isolated
// profile and awaited until its endpoint answers or the timeout kills it.
func (b *Bridge) Launch(ctx context.Context, browserID string) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil {
		if b.session.BrowserID != browserID {
			return nil, errors.SessionBusy(b.session.BrowserID)
		}
		if info, err := b.probe(ctx); err == nil {
			b.refresh(info)
			logging.Debug("reusing browser session", "browser", browserID, "port", b.session.Port)
			return b.snapshot(), nil
		}
		// Same id but the endpoint went away; tear down and start fresh.
		logging.Warn("browser session endpoint vanished, relaunching", "browser", browserID)
		b.teardownLocked()
	}

	if info, err := b.probe(ctx); err == nil {
		b.session = b.newSession(browserID, info, nil)
		logging.Info("adopted running browser", "browser", browserID, "port", b.cfg.CDPPort)
		return b.snapshot(), nil
	}

	proc, err := b.spawn(browserID)
	if err != nil {
		return nil, err
	}

	info, err := b.waitForEndpoint(ctx)
	if err != nil {
		// A browser that never exposes its endpoint is useless; kill it
		// rather than leave it orphaned on the debugging port.
		_ = proc.Kill()
		return nil, errors.CDPConnectFailed(b.cfg.CDPPort, err)
	}

	b.session = b.newSession(browserID, info, proc)
	logging.Info("browser session started",
		"browser", browserID, "port", b.cfg.CDPPort, "pid", proc.Pid())
	return b.snapshot(), nil
}

// Inspect probes the debugging port without adopting or spawning anything.
func (b *Bridge) Inspect(ctx context.Context) (browser, wsURL string, err error) {
	info, err := b.probe(ctx)
	if err != nil {
		return "", "", err
	}
	return info.Browser, info.WebSocketDebuggerURL, nil
}

// VerifyWebSocket performs a DevTools websocket handshake against the active
// session and records the result. Best effort: an unreachable socket leaves
// the session usable but marked unconnected.
func (b *Bridge) VerifyWebSocket(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return errors.CDPConnectFailed(b.cfg.CDPPort, fmt.Errorf("no active browser session"))
	}

	dialer := websocket.Dialer{HandshakeTimeout: probeTimeout}
	conn, _, err := dialer.DialContext(ctx, b.session.WebSocketURL, nil)
	if err != nil {
		b.session.Connected = false
		return errors.CDPConnectFailed(b.cfg.CDPPort, err)
	}
	_ = conn.Close()
	b.session.Connected = true
	return nil
}

// Session returns a copy of the active session, or nil.
func (b *Bridge) Session() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	return b.snapshot()
}

// Close ends the active session. Spawned browsers are killed; adopted ones
// are left running. Closing with no session is a no-op.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	err := b.teardownLocked()
	return err
}

func (b *Bridge) teardownLocked() error {
	var err error
	if b.session.proc != nil {
		logging.Debug("killing spawned browser", "browser", b.session.BrowserID, "pid", b.session.proc.Pid())
		err = b.session.proc.Kill()
	}
	b.session = nil
	return err
}

func (b *Bridge) newSession(browserID string, info *versionInfo, proc system.Process) *Session {
	s := &Session{
		BrowserID:             browserID,
		Port:                  b.cfg.CDPPort,
		Browser:               info.Browser,
		WebSocketURL:          info.WebSocketDebuggerURL,
		ContainerWebSocketURL: rewriteOrEmpty(info.WebSocketDebuggerURL, b.plat.HostAlias()),
		Spawned:               proc != nil,
		StartedAt:             time.Now(),
		proc:                  proc,
	}
	if proc != nil {
		s.Pid = proc.Pid()
	}
	return s
}

func (b *Bridge) refresh(info *versionInfo) {
	b.session.Browser = info.Browser
	b.session.WebSocketURL = info.WebSocketDebuggerURL
	b.session.ContainerWebSocketURL = rewriteOrEmpty(info.WebSocketDebuggerURL, b.plat.HostAlias())
}

func (b *Bridge) snapshot() *Session {
	s := *b.session
	s.proc = nil
	return &s
}

// spawn starts the first available browser binary with an isolated profile
// and the debugging port bound on all interfaces so containers can reach it.
func (b *Bridge) spawn(browserID string) (system.Process, error) {
	bin, err := b.findBrowser()
	if err != nil {
		return nil, err
	}

	profileDir, err := b.cfg.ProfileDir(browserID)
	if err != nil {
		return nil, err
	}
	if err := b.fs.MkdirAll(profileDir, 0o700); err != nil {
		return nil, errors.CDPConnectFailed(b.cfg.CDPPort, fmt.Errorf("creating profile dir: %w", err))
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", b.cfg.CDPPort),
		"--remote-debugging-address=0.0.0.0",
		"--user-data-dir=" + profileDir,
		"--no-first-run",
		"--no-default-browser-check",
	}

	logging.Debug("spawning browser", "binary", bin, "profile", profileDir, "port", b.cfg.CDPPort)
	proc, err := b.runner.Start(bin, args...)
	if err != nil {
		return nil, errors.CDPConnectFailed(b.cfg.CDPPort, fmt.Errorf("starting %s: %w", bin, err))
	}
	return proc, nil
}

func (b *Bridge) findBrowser() (string, error) {
	candidates := b.plat.BrowserCandidates()
	for _, candidate := range candidates {
		if path, err := b.runner.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", errors.CDPConnectFailed(b.cfg.CDPPort,
		fmt.Errorf("no debugging-capable browser found (tried %d candidates)", len(candidates)))
}

// probe issues a single /json/version request.
func (b *Bridge) probe(ctx context.Context) (*versionInfo, error) {
	return b.fetchVersion(ctx, 0)
}

// waitForEndpoint polls /json/version until the endpoint answers or the
// configured timeout expires.
func (b *Bridge) waitForEndpoint(ctx context.Context) (*versionInfo, error) {
	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.CDPTimeout.Std())
	defer cancel()

	attempts := int(b.cfg.CDPTimeout.Std()/pollInterval) + 1
	return b.fetchVersion(waitCtx, attempts)
}

func (b *Bridge) fetchVersion(ctx context.Context, retries int) (*versionInfo, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = pollInterval
	client.RetryWaitMax = pollInterval
	client.HTTPClient.Timeout = probeTimeout
	client.Logger = nil

	endpoint := fmt.Sprintf("http://%s/json/version", net.JoinHostPort(b.probeHost, strconv.Itoa(b.cfg.CDPPort)))
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("debugging endpoint returned %s", resp.Status)
	}
	var info versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding /json/version: %w", err)
	}
	if info.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("debugging endpoint reported no websocket url")
	}
	return &info, nil
}

// RewriteHost replaces only the hostname of a websocket URL, keeping scheme,
// port, path, and query intact. The rewritten form is what containers use to
// reach a browser bound on the host.
func RewriteHost(wsURL, alias string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("parsing websocket url %q: %w", wsURL, err)
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(alias, port)
	} else {
		u.Host = alias
	}
	return u.String(), nil
}

func rewriteOrEmpty(wsURL, alias string) string {
	rewritten, err := RewriteHost(wsURL, alias)
	if err != nil {
		return ""
	}
	return rewritten
}
