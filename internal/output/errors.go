package output

import (
	"errors"
	"fmt"
)

// Exit codes. Every failure of the credential tool maps to ExitFailure.
const (
	ExitOK      = 0 // Success
	ExitFailure = 1 // Argument, lookup, or I/O failure
)

// Kind classifies a CLIError for callers and tests
type Kind string

const (
	KindArgument       Kind = "argument"         // Bad or missing flags
	KindStoreNotFound  Kind = "store-not-found"  // Location does not exist
	KindStore          Kind = "store"            // Store could not be opened, read or written
	KindSecretNotFound Kind = "secret-not-found" // Alias has no clear password
	KindMaskFormat     Kind = "mask-format"      // Masked token malformed or undecryptable
	KindConfig         Kind = "config"           // Config file problem
)

// CLIError represents a structured error with exit code and optional hint
type CLIError struct {
	Kind     Kind
	ExitCode int
	Message  string
	Hint     string
	Err      error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError
func NewCLIError(kind Kind, msg string) *CLIError {
	return &CLIError{
		Kind:     kind,
		ExitCode: ExitFailure,
		Message:  msg,
	}
}

// WithHint adds a user-facing hint to the error
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// WithErr attaches the underlying cause
func (e *CLIError) WithErr(err error) *CLIError {
	e.Err = err
	return e
}

// PrintError prints the error and its hint via the formatter
func PrintError(formatter Formatter, err error) {
	formatter.PrintError(err)
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Hint != "" {
		formatter.PrintHint(cliErr.Hint)
	}
}
