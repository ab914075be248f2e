package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSurfboxError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *SurfboxError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestSurfboxError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := New(ExitGeneralError, "no cause")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain error", fmt.Errorf("plain"), ExitGeneralError},
		{"instance not found", InstanceNotFound("abc"), ExitInstanceNotFound},
		{"runtime unavailable", RuntimeUnavailable("docker not installed"), ExitRuntimeUnavailable},
		{"port exhausted", PortExhausted(10000, 10001, nil), ExitPortExhausted},
		{"launch crashed", LaunchCrashed("surfbox-web", ""), ExitLaunchCrashed},
		{"cdp connect failed", CDPConnectFailed(9222, fmt.Errorf("timeout")), ExitCDPConnectFailed},
		{"session busy", SessionBusy("chrome"), ExitSessionBusy},
		{"wrapped in fmt.Errorf", fmt.Errorf("context: %w", PortExhausted(1, 2, nil)), ExitPortExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("during create: %w", LaunchCrashed("surfbox-web", "panic"))

	if !errors.Is(err, New(ExitLaunchCrashed, "")) {
		t.Error("expected errors.Is to match LaunchCrashed by code")
	}
	if errors.Is(err, New(ExitPortExhausted, "")) {
		t.Error("did not expect LaunchCrashed to match PortExhausted")
	}
}

func TestLaunchCrashed_IncludesLogTail(t *testing.T) {
	err := LaunchCrashed("surfbox-web", "chrome: cannot open display")
	if got := err.Error(); !strings.Contains(got, "cannot open display") {
		t.Errorf("expected log tail in message, got %q", got)
	}
}
