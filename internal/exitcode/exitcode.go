// Package exitcode maps SDK errors onto stable CLI exit codes.
package exitcode

import (
	"os"

	"github.com/felixgeelhaar/bizdir/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// AuthError indicates an authentication or authorization failure
	AuthError = 3

	// BlockedError indicates the account is inside a blocked window
	BlockedError = 4

	// NetworkError indicates a network connectivity issue
	NetworkError = 5

	// Interrupted indicates the user cancelled the operation
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}
	switch errors.KindOf(err) {
	case errors.KindAuth, errors.KindForbidden:
		return AuthError
	case errors.KindBlocked:
		return BlockedError
	case errors.KindNetwork:
		return NetworkError
	case errors.KindValidation:
		return UsageError
	default:
		return GeneralError
	}
}
