// Package errors provides structured CLI error types for biomectl.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// to provide consistent, actionable error output across all commands.
// Kind carries the supervisor/session error taxonomy so callers can
// branch on failure class without string matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for CLI errors.
const (
	ExitSuccess   = 0  // Successful execution
	ExitGeneral   = 1  // General error
	ExitAuth      = 2  // Authentication error
	ExitNetwork   = 3  // Network/download error
	ExitConfig    = 4  // Configuration error
	ExitTimeout   = 5  // Readiness/operation timeout
	ExitExecution = 6  // Subprocess/session failure
	ExitUsage     = 64 // Command line usage error (BSD convention)
)

// Kind classifies supervisor and session failures.
type Kind int

// Error kinds.
const (
	KindGeneral Kind = iota
	KindDownload
	KindExtraction
	KindAlreadyRunning
	KindMissingDependency
	KindImmediateExit
	KindNoProcess
	KindTimeout
	KindTransport
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDownload:
		return "download"
	case KindExtraction:
		return "extraction"
	case KindAlreadyRunning:
		return "already_running"
	case KindMissingDependency:
		return "missing_dependency"
	case KindImmediateExit:
		return "immediate_exit"
	case KindNoProcess:
		return "no_process"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	default:
		return "general"
	}
}

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int

	// Kind is the failure classification.
	Kind Kind
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// HasKind reports whether err is a CLIError of the given kind.
func HasKind(err error, kind Kind) bool {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Kind == kind
	}

	return false
}

// --- Common error constructors ---

// Download returns an error for a failed archive or release download.
func Download(what string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to download %s", what),
		Hint:    "Check your network connection and try again",
		Cause:   cause,
		Code:    ExitNetwork,
		Kind:    KindDownload,
	}
}

// Extraction returns an error for a corrupt archive or a missing expected entry.
func Extraction(what string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to extract %s", what),
		Hint:    "The downloaded archive may be corrupt; delete it and retry",
		Cause:   cause,
		Code:    ExitGeneral,
		Kind:    KindExtraction,
	}
}

// AlreadyRunning returns an error for start called while a process is tracked.
func AlreadyRunning(pid int) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Engine server already running (pid %d)", pid),
		Hint:    "Run 'biomectl engine stop' first",
		Code:    ExitExecution,
		Kind:    KindAlreadyRunning,
	}
}

// MissingDependencies returns an itemized error for start called without a
// usable environment. The missing slice names the absent components.
func MissingDependencies(missing []string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Engine not installed — missing: %s", strings.Join(missing, ", ")),
		Hint:    "Run 'biomectl engine setup' to install the toolchain, server files, and dependencies",
		Code:    ExitConfig,
		Kind:    KindMissingDependency,
	}
}

// ImmediateExit returns an error for a subprocess that died within the startup
// grace window. The excerpt carries the tail of the persisted log.
func ImmediateExit(excerpt string) *CLIError {
	msg := "Engine server exited immediately after start"
	if excerpt != "" {
		msg = fmt.Sprintf("%s\n%s", msg, excerpt)
	}

	return &CLIError{
		Message: msg,
		Hint:    "Inspect the full log with 'biomectl engine logs'",
		Code:    ExitExecution,
		Kind:    KindImmediateExit,
	}
}

// NoProcess returns an error for stop/status called with nothing tracked.
func NoProcess() *CLIError {
	return &CLIError{
		Message: "No engine server process is being tracked",
		Hint:    "Run 'biomectl engine start' first",
		Code:    ExitExecution,
		Kind:    KindNoProcess,
	}
}

// ReadinessTimeout returns an error for a readiness signal not observed in time.
func ReadinessTimeout(wait string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Engine server did not become ready within %s", wait),
		Hint:    "Inspect the server log with 'biomectl engine logs'",
		Code:    ExitTimeout,
		Kind:    KindTimeout,
	}
}

// Transport returns an error surfaced from the realtime channel client.
func Transport(cause error) *CLIError {
	return &CLIError{
		Message: "Realtime connection failed",
		Hint:    "Check that the engine server is reachable",
		Cause:   cause,
		Code:    ExitNetwork,
		Kind:    KindTransport,
	}
}

// NotAuthenticated returns an error indicating a missing credential token.
func NotAuthenticated() *CLIError {
	return &CLIError{
		Message: "No credential token configured",
		Hint:    "Run 'biomectl auth login' or set BIOME_CREDENTIAL_TOKEN",
		Code:    ExitAuth,
	}
}

// CannotPrompt returns an error for interactive input in a non-interactive session.
func CannotPrompt(envVar string) *CLIError {
	return &CLIError{
		Message: "Interactive input is not available",
		Hint:    fmt.Sprintf("Set the %s environment variable or pass the value as a flag", envVar),
		Code:    ExitUsage,
	}
}

// TokenEmpty returns an error when the credential token is empty.
func TokenEmpty() *CLIError {
	return &CLIError{
		Message: "Credential token cannot be empty",
		Hint:    "Enter a valid token or set BIOME_CREDENTIAL_TOKEN",
		Code:    ExitAuth,
	}
}

// ConfigFailed returns an error for configuration save failures.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s", operation),
		Hint:    "Check file permissions for your biomectl config directory or run 'biomectl doctor'",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// InvalidEngineMode returns an error for an unsupported engine mode value.
func InvalidEngineMode(mode string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid engine mode: %s", mode),
		Hint:    "Supported modes: standalone, hosted",
		Code:    ExitUsage,
	}
}
