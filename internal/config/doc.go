// Package config defines surfbox configuration and naming rules.
//
// Configuration is layered: built-in defaults, then a TOML file
// (~/.surfbox/config.toml by default), then SURFBOX_* environment variables.
//
//	cfg, err := config.Load(config.DefaultPath())
//
// Timing-sensitive orchestration values (launch settle delay, heartbeat
// interval and failure threshold, health-check interval) are configuration,
// not constants; see the field comments in Config for why.
//
// The package also owns the container naming convention: every container this
// tool creates is named ContainerPrefix + instance name, which is what makes
// orphan cleanup and idempotent re-creation possible.
package config
