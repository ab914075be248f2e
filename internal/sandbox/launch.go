package sandbox

import (
	"fmt"
	"strconv"

	"github.com/kballard/go-shellquote"

	"github.com/surfbox-dev/surfbox/internal/config"
	"github.com/surfbox-dev/surfbox/internal/logging"
	"github.com/surfbox-dev/surfbox/internal/platform"
	"github.com/surfbox-dev/surfbox/internal/system"
)

// Fixed in-container ports the sandbox image listens on. The host side of
// each mapping comes from the allocator.
const (
	containerAPIPort   = 8080
	containerCDPPort   = 9222
	containerVNCPort   = 5900
	containerNoVNCPort = 6080
)

// credentialMountPath is where the host credential file appears inside the
// sandbox. Always the single file, read-only; its directory is never exposed.
const credentialMountPath = "/home/agent/.config/surfbox/credentials.json"

// buildRunArgs assembles the engine `run` arguments for an instance. All
// published ports bind to loopback only; nothing a sandbox exposes is
// reachable from other machines.
func buildRunArgs(cfg *config.Config, plat platform.Platform, fs system.FileSystem, inst *Instance) []string {
	args := []string{
		"-d",
		"--name", inst.ContainerName,
		"--stop-timeout", strconv.Itoa(cfg.StopTimeoutSeconds),
	}

	if cfg.MemoryLimit != "" {
		args = append(args, "--memory", cfg.MemoryLimit)
	}
	if cfg.CPULimit != "" {
		args = append(args, "--cpus", cfg.CPULimit)
	}

	// Chromium's own sandbox needs syscalls the default seccomp profile
	// blocks.
	args = append(args, "--security-opt", "seccomp=unconfined")

	args = append(args, publishArg(inst.Ports.API, containerAPIPort)...)
	if inst.Ports.CDP != 0 {
		args = append(args, publishArg(inst.Ports.CDP, containerCDPPort)...)
	}
	if inst.Ports.VNC != 0 {
		args = append(args, publishArg(inst.Ports.VNC, containerVNCPort)...)
	}
	if inst.Ports.NoVNC != 0 {
		args = append(args, publishArg(inst.Ports.NoVNC, containerNoVNCPort)...)
	}

	args = append(args,
		"-e", "BROWSER_MODE="+string(inst.Mode),
		"-e", "API_PORT="+strconv.Itoa(containerAPIPort),
	)
	switch inst.Mode {
	case ModeHeadless:
		args = append(args,
			"-e", "START_BROWSER=1",
			"-e", "CDP_PORT="+strconv.Itoa(containerCDPPort),
		)
	default:
		args = append(args,
			"-e", "START_BROWSER=0",
			"-e", "EXTERNAL_CDP_ENDPOINT="+inst.CDPEndpoint,
		)
	}

	if fs.Exists(cfg.CredentialFile) {
		args = append(args, "-v", cfg.CredentialFile+":"+credentialMountPath+":ro")
	}

	args = append(args, plat.ExtraRunArgs()...)
	args = append(args, inst.Image)

	logging.Debug("launch arguments", "instance", inst.Name, "args", shellquote.Join(args...))
	return args
}

func publishArg(hostPort, containerPort int) []string {
	return []string{"-p", fmt.Sprintf("127.0.0.1:%d:%d", hostPort, containerPort)}
}
