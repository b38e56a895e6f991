package commands

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitUsage      = -1
	ExitUnresolved = -2
	ExitEmptyTable = -3
	exitFailure    = 1
)

// Sentinel errors.
var (
	// ErrMissingArguments is returned when INPUT or OUTPUT is not given.
	ErrMissingArguments = errors.New("expected INPUT and OUTPUT paths")
	// ErrInvalidNumber is returned for malformed hexadecimal flag values.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrUnknownFlag is returned when the command line has an unrecognized flag.
	ErrUnknownFlag = errors.New("unrecognized flag")
	// ErrBadFilter is returned when -filter is not a valid regular expression.
	ErrBadFilter = errors.New("invalid filter expression")
	// ErrInputParse is returned when the input parser fails.
	ErrInputParse = errors.New("input file parsing failed")
	// ErrEmptyTable is returned when no symbols are left for output.
	ErrEmptyTable = errors.New("no symbols passed for output, operation aborted")
	// ErrTablesDiffer is returned by diff --exit-code when the tables differ.
	ErrTablesDiffer = errors.New("symbol tables differ")
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitErr(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

func usageErr(format string, args ...any) error {
	return exitErr(ExitUsage, fmt.Errorf(format, args...))
}

// ExitCode returns the exit code for err. Errors without an ExitError exit 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return exitFailure
}
