package errors

import (
	"errors"
	"fmt"
)

// Exit codes for surfbox
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitInstanceNotFound   = 2
	ExitRuntimeUnavailable = 3
	ExitPortExhausted      = 4
	ExitLaunchCrashed      = 5
	ExitConfigError        = 6
	ExitCDPConnectFailed   = 7
	ExitSessionBusy        = 8
)

// SurfboxError is the base error type for surfbox
type SurfboxError struct {
	Code    int
	Message string
	Cause   error
}

func (e *SurfboxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SurfboxError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *SurfboxError) ExitCode() int {
	return e.Code
}

// Is reports whether target is a SurfboxError with the same code. This lets
// callers match on error category with errors.Is without comparing messages.
func (e *SurfboxError) Is(target error) bool {
	var other *SurfboxError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// New creates a new SurfboxError
func New(code int, message string) *SurfboxError {
	return &SurfboxError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a SurfboxError
func Wrap(code int, message string, cause error) *SurfboxError {
	return &SurfboxError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// InstanceNotFound returns an error for an unknown or already-removed instance.
// Query operations treat this as a hard error; destroy treats it as a no-op.
func InstanceNotFound(id string) *SurfboxError {
	return New(ExitInstanceNotFound, fmt.Sprintf("instance not found: %s", id))
}

// RuntimeUnavailable returns an error when no usable container engine exists.
// The reason should already carry a remediation hint for the current platform.
func RuntimeUnavailable(reason string) *SurfboxError {
	return New(ExitRuntimeUnavailable, fmt.Sprintf("no usable container runtime: %s", reason))
}

// PortExhausted returns an error when the configured port range has no free port.
func PortExhausted(from, to int, cause error) *SurfboxError {
	return Wrap(ExitPortExhausted, fmt.Sprintf("no free port in range %d-%d", from, to), cause)
}

// LaunchCrashed returns an error for a container that died right after launch.
// logTail carries the last lines of container output when they could be fetched.
func LaunchCrashed(name, logTail string) *SurfboxError {
	msg := fmt.Sprintf("container %s exited immediately after launch", name)
	if logTail != "" {
		msg = fmt.Sprintf("%s; last output:\n%s", msg, logTail)
	}
	return New(ExitLaunchCrashed, msg)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *SurfboxError {
	return Wrap(ExitConfigError, message, cause)
}

// CDPConnectFailed returns an error when a debugging endpoint never became
// responsive. The spawned browser process is killed before this propagates.
func CDPConnectFailed(port int, cause error) *SurfboxError {
	return Wrap(ExitCDPConnectFailed, fmt.Sprintf("debugging endpoint on port %d never became responsive", port), cause)
}

// SessionBusy returns an error when a different external browser session is
// already active.
func SessionBusy(activeBrowser string) *SurfboxError {
	return New(ExitSessionBusy, fmt.Sprintf("external browser session for %q is already active; close it first", activeBrowser))
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *SurfboxError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var sbErr *SurfboxError
	if errors.As(err, &sbErr) {
		return sbErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
