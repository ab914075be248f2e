package runtime

import (
	"context"
	"fmt"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/surfbox-dev/surfbox/internal/logging"
	"github.com/surfbox-dev/surfbox/internal/platform"
	"github.com/surfbox-dev/surfbox/internal/system"
)

// candidateOrder is the fixed detection priority when no engine is preferred.
var candidateOrder = []EngineKind{EngineDocker, EnginePodman}

// infoTimeout bounds the daemon probe during detection.
const infoTimeout = 5 * time.Second

// Detector probes the host for a usable container engine. A successful
// detection is cached for the process lifetime; failures are re-probed on
// every call so a user can start the daemon and retry without restarting.
type Detector struct {
	runner system.CommandRunner
	plat   platform.Platform

	mu     sync.Mutex
	cached *Info
}

// NewDetector creates a Detector.
func NewDetector(runner system.CommandRunner, plat platform.Platform) *Detector {
	return &Detector{runner: runner, plat: plat}
}

// Detect probes for a usable engine. When preferred is non-empty it is tried
// first; the remaining candidates follow in fixed priority order. If no
// candidate qualifies, the returned Info aggregates every candidate's reason
// plus a platform remediation hint.
func (d *Detector) Detect(ctx context.Context, preferred EngineKind) Info {
	candidates := orderCandidates(preferred)

	var reasons []string
	for _, kind := range candidates {
		info := d.probe(ctx, kind)
		if info.Available {
			logging.Debug("container runtime detected",
				"engine", info.Engine, "version", info.Version, "os", info.OSType)
			return info
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", kind, info.Reason))
	}

	return Info{
		Available: false,
		Reason:    fmt.Sprintf("%s (%s)", strings.Join(reasons, "; "), d.plat.RemediationHint()),
	}
}

// Ready returns the cached successful detection, probing on first use.
func (d *Detector) Ready(ctx context.Context) Info {
	d.mu.Lock()
	if d.cached != nil {
		info := *d.cached
		d.mu.Unlock()
		return info
	}
	d.mu.Unlock()

	info := d.Detect(ctx, "")
	if info.Available {
		d.mu.Lock()
		d.cached = &info
		d.mu.Unlock()
	}
	return info
}

// IsAnyAvailable is a fast poll: it checks binary presence for each
// candidate and runs the expensive daemon probe only for binaries that are
// actually installed.
func (d *Detector) IsAnyAvailable(ctx context.Context) bool {
	for _, kind := range candidateOrder {
		if _, err := d.runner.LookPath(string(kind)); err != nil {
			continue
		}
		if info := d.probe(ctx, kind); info.Available {
			return true
		}
	}
	return false
}

// probe runs the three-stage availability check for one engine:
// binary present, daemon executing, and (off Linux) Linux container support.
func (d *Detector) probe(ctx context.Context, kind EngineKind) Info {
	bin := string(kind)

	if _, err := d.runner.LookPath(bin); err != nil {
		return Info{Engine: kind, Reason: "not installed"}
	}

	infoCtx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	stdout, stderr, err := d.runner.Run(infoCtx, bin, infoFormatArgs(kind)...)
	if err != nil {
		return Info{Engine: kind, Reason: refineDaemonError(stderr)}
	}

	osType, version := parseInfoOutput(stdout)

	// The bridge and launch wiring assume Linux-style containers. An engine
	// reporting another OS (e.g. Windows containers mode) cannot serve them.
	if goruntime.GOOS != "linux" && osType != "linux" {
		return Info{
			Engine:  kind,
			Version: version,
			OSType:  osType,
			Reason:  fmt.Sprintf("engine is running in %s-container mode; switch it to Linux containers", osType),
		}
	}

	return Info{
		Available:        true,
		Engine:           kind,
		Version:          version,
		OSType:           osType,
		VMBackingPresent: osType == "linux",
	}
}

func orderCandidates(preferred EngineKind) []EngineKind {
	if preferred == "" {
		return candidateOrder
	}
	out := []EngineKind{preferred}
	for _, kind := range candidateOrder {
		if kind != preferred {
			out = append(out, kind)
		}
	}
	return out
}

// infoFormatArgs returns the engine-specific `info` invocation that yields
// "<ostype>;<server version>" on stdout. Reaching the daemon is the point:
// a CLI that cannot answer this cannot run workloads either.
func infoFormatArgs(kind EngineKind) []string {
	switch kind {
	case EnginePodman:
		return []string{"info", "--format", "{{.Host.Os}};{{.Version.Version}}"}
	default:
		return []string{"info", "--format", "{{.OSType}};{{.ServerVersion}}"}
	}
}

func parseInfoOutput(out string) (osType, version string) {
	parts := strings.SplitN(strings.TrimSpace(out), ";", 2)
	osType = strings.ToLower(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		version = strings.TrimSpace(parts[1])
	}
	return osType, version
}

// refineDaemonError turns raw engine stderr into an "installed but not
// running"-class reason. Best effort only; unrecognized output falls through
// to a generic message carrying the first stderr line.
func refineDaemonError(stderr string) string {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied"):
		return "installed, but access to the daemon socket was denied (is your user in the docker group?)"
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "cannot connect"),
		strings.Contains(lower, "is the docker daemon running"):
		return "installed, but the daemon is not running"
	default:
		first := strings.TrimSpace(stderr)
		if i := strings.IndexByte(first, '\n'); i >= 0 {
			first = first[:i]
		}
		if first == "" {
			first = "daemon probe failed"
		}
		return fmt.Sprintf("installed, but not responding: %s", first)
	}
}
