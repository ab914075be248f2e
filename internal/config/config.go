package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/kelseyhightower/envconfig"

	"github.com/surfbox-dev/surfbox/internal/errors"
)

// ContainerPrefix is prepended to instance names to form container names.
// The orphan sweep and emergency cleanup match on it, so it must stay stable
// across releases.
const ContainerPrefix = "surfbox-"

// instanceNameRegex validates instance names.
// Names must start with a lowercase letter or digit, followed by lowercase
// letters, digits, underscores, or hyphens. Maximum length is 63 characters
// (common container name limit), minus room for the prefix.
var instanceNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,54}$`)

// ValidateInstanceName checks if an instance name is valid.
func ValidateInstanceName(name string) error {
	if name == "" {
		return errors.ValidationError("instance name cannot be empty")
	}
	if !instanceNameRegex.MatchString(name) {
		return errors.ValidationError(fmt.Sprintf("invalid instance name %q: must start with a lowercase letter or digit and contain only lowercase letters, digits, underscores, or hyphens", name))
	}
	return nil
}

// ContainerName returns the deterministic container name for an instance.
func ContainerName(instanceName string) string {
	return ContainerPrefix + instanceName
}

// Duration wraps time.Duration so values can be written as "90s" or "2m" in
// the TOML file and in environment overrides.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all surfbox settings. Values come from defaults, then the TOML
// config file, then SURFBOX_* environment overrides, in that order.
//
// The timing knobs (settle delay, heartbeat interval/threshold, health
// interval) are deliberately configuration rather than constants: cold-cache
// container starts need longer settle windows on some machines, and no single
// set of numbers is right everywhere.
type Config struct {
	// Image is the sandbox container image running the browser agent.
	Image string `toml:"image" envconfig:"IMAGE"`

	// StateDir holds browser profiles and other per-session state.
	StateDir string `toml:"state_dir" envconfig:"STATE_DIR"`

	// CredentialFile, when it exists on the host, is mounted read-only into
	// each sandbox. Only this one file is ever mounted, never its directory.
	CredentialFile string `toml:"credential_file" envconfig:"CREDENTIAL_FILE"`

	PortRangeFrom int `toml:"port_range_from" envconfig:"PORT_RANGE_FROM"`
	PortRangeTo   int `toml:"port_range_to" envconfig:"PORT_RANGE_TO"`

	MemoryLimit string `toml:"memory_limit" envconfig:"MEMORY_LIMIT"`
	CPULimit    string `toml:"cpu_limit" envconfig:"CPU_LIMIT"`

	// StopTimeoutSeconds is passed to the engine as the grace period between
	// SIGTERM and SIGKILL on stop.
	StopTimeoutSeconds int `toml:"stop_timeout_seconds" envconfig:"STOP_TIMEOUT_SECONDS"`

	// SettleDelay is the wait between the launch call returning and the
	// survival inspect. Engines on some platforms report success before the
	// entrypoint has executed.
	SettleDelay Duration `toml:"settle_delay" envconfig:"SETTLE_DELAY"`

	// RunTimeout bounds the launch call itself, which may include an image
	// pull on first use.
	RunTimeout Duration `toml:"run_timeout" envconfig:"RUN_TIMEOUT"`

	// InspectTimeout bounds engine inspect/info calls.
	InspectTimeout Duration `toml:"inspect_timeout" envconfig:"INSPECT_TIMEOUT"`

	HeartbeatInterval  Duration `toml:"heartbeat_interval" envconfig:"HEARTBEAT_INTERVAL"`
	HeartbeatThreshold int      `toml:"heartbeat_threshold" envconfig:"HEARTBEAT_THRESHOLD"`

	// HealthInterval is the slower authoritative container-status check.
	// It is independent from the heartbeat on purpose: they answer different
	// questions.
	HealthInterval Duration `toml:"health_interval" envconfig:"HEALTH_INTERVAL"`

	AgentReadyAttempts int      `toml:"agent_ready_attempts" envconfig:"AGENT_READY_ATTEMPTS"`
	AgentReadyInterval Duration `toml:"agent_ready_interval" envconfig:"AGENT_READY_INTERVAL"`

	// CDPPort is the host-side debugging port for the external browser.
	CDPPort int `toml:"cdp_port" envconfig:"CDP_PORT"`

	// CDPTimeout bounds how long to wait for a freshly spawned browser's
	// debugging endpoint to answer before killing it.
	CDPTimeout Duration `toml:"cdp_timeout" envconfig:"CDP_TIMEOUT"`

	// LogTail is how many lines of container output to attach to a
	// launch-crash diagnosis.
	LogTail int `toml:"log_tail" envconfig:"LOG_TAIL"`

	// LogFile, when set, receives a rotated copy of debug logs.
	LogFile string `toml:"log_file" envconfig:"LOG_FILE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".surfbox")

	return &Config{
		Image:              "ghcr.io/surfbox-dev/surfbox-agent:latest",
		StateDir:           base,
		CredentialFile:     filepath.Join(base, "credentials.json"),
		PortRangeFrom:      39000,
		PortRangeTo:        39199,
		MemoryLimit:        "2g",
		CPULimit:           "2",
		StopTimeoutSeconds: 5,
		SettleDelay:        Duration(1500 * time.Millisecond),
		RunTimeout:         Duration(4 * time.Minute),
		InspectTimeout:     Duration(5 * time.Second),
		HeartbeatInterval:  Duration(10 * time.Second),
		HeartbeatThreshold: 3,
		HealthInterval:     Duration(30 * time.Second),
		AgentReadyAttempts: 30,
		AgentReadyInterval: Duration(time.Second),
		CDPPort:            9222,
		CDPTimeout:         Duration(20 * time.Second),
		LogTail:            50,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".surfbox", "config.toml")
}

// Load builds the effective configuration: defaults, overlaid by the TOML
// file at path (if it exists), overlaid by SURFBOX_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, errors.ConfigError(fmt.Sprintf("parsing %s", path), err)
			}
		}
	}

	if err := envconfig.Process("surfbox", cfg); err != nil {
		return nil, errors.ConfigError("processing environment overrides", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the rest of the system cannot work with.
func (c *Config) Validate() error {
	if c.PortRangeFrom < 1 || c.PortRangeTo > 65535 || c.PortRangeFrom > c.PortRangeTo {
		return errors.ConfigError(fmt.Sprintf("invalid port range %d-%d", c.PortRangeFrom, c.PortRangeTo), nil)
	}
	if c.HeartbeatThreshold < 1 {
		return errors.ConfigError("heartbeat_threshold must be at least 1", nil)
	}
	if c.HeartbeatInterval <= 0 || c.HealthInterval <= 0 {
		return errors.ConfigError("heartbeat_interval and health_interval must be positive", nil)
	}
	if c.CDPPort < 1 || c.CDPPort > 65535 {
		return errors.ConfigError(fmt.Sprintf("invalid cdp_port %d", c.CDPPort), nil)
	}
	return nil
}

// ProfileDir returns the isolated browser profile directory for a browser id,
// contained inside StateDir. The id comes from user input, so the join is
// hardened against path traversal.
func (c *Config) ProfileDir(browserID string) (string, error) {
	dir, err := securejoin.SecureJoin(c.StateDir, filepath.Join("profiles", browserID))
	if err != nil {
		return "", errors.ConfigError(fmt.Sprintf("resolving profile dir for %q", browserID), err)
	}
	return dir, nil
}
