// Package logging provides logging utilities for surfbox.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating instance", "name", name, "mode", mode)
//	logging.Warn("heartbeat missed", "instance", id, "failures", n)
//
// When a log file is configured, debug logs are additionally written to a
// size-rotated file so long-running monitor sessions do not grow without
// bound.
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Launching sandbox %s...", name)
//	logging.UserSuccess("Sandbox %s is running", name)
//	logging.UserWarning("Port %d is already in use", port)
//	logging.UserError("Failed to create sandbox: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
