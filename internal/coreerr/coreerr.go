// Package coreerr implements the error taxonomy shared by every core
// component: each failure is propagated as a distinct Kind, never
// conflated into a bare string error.
package coreerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	NotFound         Kind = "not_found"
	InvalidState     Kind = "invalid_state"
	Conflict         Kind = "conflict"
	ProbeFailed      Kind = "probe_failed"
	IOError          Kind = "io_error"
	DependencyFailed Kind = "dependency_failed"
	Cancelled        Kind = "cancelled"
)

// CoreError wraps an underlying error with a taxonomy Kind and a
// component-scoped message.
type CoreError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// New builds a CoreError without a wrapped cause.
func New(kind Kind, op, message string) error {
	return &CoreError{Kind: kind, Op: op, Message: message}
}

// Wrap builds a CoreError around an existing error.
func Wrap(kind Kind, op, message string, err error) error {
	return &CoreError{Kind: kind, Op: op, Message: message, Err: err}
}

// Is reports whether the first CoreError in err's chain carries the
// given Kind; CoreErrors wrapped beneath it are not inspected.
func Is(err error, kind Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not a CoreError.
func KindOf(err error) Kind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
