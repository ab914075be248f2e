package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/surfbox-dev/surfbox/internal/cdp"
	"github.com/surfbox-dev/surfbox/internal/config"
	"github.com/surfbox-dev/surfbox/internal/errors"
	"github.com/surfbox-dev/surfbox/internal/events"
	"github.com/surfbox-dev/surfbox/internal/logging"
	"github.com/surfbox-dev/surfbox/internal/platform"
	"github.com/surfbox-dev/surfbox/internal/port"
	"github.com/surfbox-dev/surfbox/internal/runtime"
	"github.com/surfbox-dev/surfbox/internal/sandbox"
	"github.com/surfbox-dev/surfbox/internal/system"
)

// application wires the pieces a command needs. Built once per invocation.
type application struct {
	cfg     *config.Config
	plat    platform.Platform
	runner  system.CommandRunner
	fs      system.FileSystem
	bus     *events.Bus
	manager *sandbox.Manager
	bridge  *cdp.Bridge
	engine  runtime.ContainerEngine
}

// loadConfig builds the effective configuration and upgrades logging to the
// configured file sink.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.LogFile != "" {
		logging.SetupWithFile(verbose, jsonOutput, os.Stderr, cfg.LogFile)
	}
	return cfg, nil
}

// loadApp builds the full application: it requires a usable container engine
// and restores instances launched by earlier invocations.
func loadApp(ctx context.Context) (*application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	plat := platform.Current()
	runner := system.OSRunner{}
	fs := system.OSFileSystem{}

	detector := runtime.NewDetector(runner, plat)
	info := detector.Ready(ctx)
	if !info.Available {
		return nil, errors.RuntimeUnavailable(info.Reason)
	}
	logging.Debug("container engine ready", "engine", info.Engine, "version", info.Version)

	engine := runtime.NewEngine(info.Engine, runner)
	bus := events.NewBus()
	bus.Publish(events.Event{Type: events.TypeRuntimeDetected, Name: string(info.Engine), Detail: info.Version})

	manager := sandbox.NewManager(cfg, engine, port.NewAllocator(), bus, plat, fs)
	manager.AttachStore(sandbox.NewStore(filepath.Join(cfg.StateDir, "instances")))
	if err := manager.Restore(ctx); err != nil {
		logging.Warn("could not restore instance records", "error", err)
	}

	return &application{
		cfg:     cfg,
		plat:    plat,
		runner:  runner,
		fs:      fs,
		bus:     bus,
		manager: manager,
		bridge:  cdp.NewBridge(cfg, plat, runner, fs),
		engine:  engine,
	}, nil
}

// loadBridge builds just the browser bridge. Browser commands work without a
// container engine installed.
func loadBridge() (*config.Config, *cdp.Bridge, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	bridge := cdp.NewBridge(cfg, platform.Current(), system.OSRunner{}, system.OSFileSystem{})
	return cfg, bridge, nil
}
