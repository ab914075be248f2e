// Package errors provides typed errors with exit codes for surfbox.
//
// # Error Types
//
// SurfboxError is the base error type that wraps an error with an exit code:
//
//	type SurfboxError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// Defined exit codes for different error categories:
//
//	ExitSuccess            = 0  // Success
//	ExitGeneralError       = 1  // General/unknown errors
//	ExitInstanceNotFound   = 2  // Instance does not exist
//	ExitRuntimeUnavailable = 3  // No usable container engine
//	ExitPortExhausted      = 4  // Port range has no free port
//	ExitLaunchCrashed      = 5  // Container died right after launch
//	ExitConfigError        = 6  // Configuration error
//	ExitCDPConnectFailed   = 7  // Debugging endpoint never responded
//	ExitSessionBusy        = 8  // Another external browser session is active
//
// # Error Constructors
//
// Use the provided constructors for consistent error creation:
//
//	errors.InstanceNotFound(id)
//	errors.RuntimeUnavailable(reason)
//	errors.PortExhausted(10000, 10100, cause)
//	errors.LaunchCrashed(name, logTail)
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
