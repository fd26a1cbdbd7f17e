// Package lock provides the in-memory lock handle, its options, and the
// validation/state-transition operations used by the coordinator.
//
// Import graph: lock <- lockcoordinator <- internal/lockapi, cmd/condlockd
package lock

import "fmt"

// ErrorCode represents the kind of error a lock operation can surface to a
// caller. Conditional-check failures and transport errors are not part of
// this taxonomy — they are internal to the lockstore/lockcoordinator
// boundary and never reach a caller of this package.
type ErrorCode int

const (
	// ErrOptionsValidation indicates an Options value failed validation
	// (e.g. the prolongEveryMs/leaseDurationInMs invariant).
	ErrOptionsValidation ErrorCode = iota + 1

	// ErrTableConfigValidation indicates a table descriptor has a reserved
	// attribute-name collision.
	ErrTableConfigValidation

	// ErrNotGranted indicates the acquisition failed because the handle
	// was already held or retries were exhausted.
	ErrNotGranted
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrOptionsValidation:
		return "LockOptionsValidation"
	case ErrTableConfigValidation:
		return "LockTableConfigValidation"
	case ErrNotGranted:
		return "LockNotGranted"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// Error represents a lock-domain error with a code, message, and the
// group/id pair it concerns (when applicable).
type Error struct {
	Code  ErrorCode
	Msg   string
	Group string
	ID    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Group != "" || e.ID != "" {
		return fmt.Sprintf("%s: %s (%s|%s)", e.Code, e.Msg, e.Group, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewOptionsValidationError reports a failed Options invariant.
func NewOptionsValidationError(msg string) *Error {
	return &Error{Code: ErrOptionsValidation, Msg: msg}
}

// NewTableConfigValidationError reports a reserved-name collision in a
// table descriptor.
func NewTableConfigValidationError(msg string) *Error {
	return &Error{Code: ErrTableConfigValidation, Msg: msg}
}

// NewNotGrantedError reports a failed acquisition for (group, id).
func NewNotGrantedError(group, id, msg string) *Error {
	return &Error{Code: ErrNotGranted, Msg: msg, Group: group, ID: id}
}
