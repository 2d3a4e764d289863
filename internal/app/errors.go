package app

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by commands that exist only as stubs.
var ErrNotImplemented = errors.New("not implemented")

// UsageError reports a malformed invocation. Nothing was executed.
type UsageError struct {
	Msg string
	Err error
}

// NewUsageError creates a UsageError with a formatted message.
func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsageError reports whether err is or wraps a UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// OperationError represents a failure of one command on one target.
type OperationError struct {
	Op     string // Command name (e.g., "show", "edit", "revert")
	Target string // Project or file the command acted on
	Err    error
}

func (e *OperationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
