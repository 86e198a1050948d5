package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions callers branch on. Backend call
// failures are wrapped in BackendError with operation context instead.
var (
	// ErrNotConnected means an operation was attempted before a backend
	// session was established.
	ErrNotConnected = errors.New("not connected to trading server")

	// ErrNotFound means the requested entity does not exist on the
	// backend. At the HTTP layer this is not a transport error.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists means a group of the same name is already known,
	// either persisted or discovered.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoRights rejects balance operations on accounts whose rights
	// bitmask is zero.
	ErrNoRights = errors.New("account has no trading rights")

	// ErrInvalidInput covers malformed logins, missing required fields
	// and group names lacking a category separator.
	ErrInvalidInput = errors.New("invalid input")
)

// BackendError wraps a failed backend call with the operation name and
// the affected login or group.
type BackendError struct {
	Op     string
	Target string
	Err    error
}

func (e *BackendError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("backend %s for %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// WrapBackend attaches operation context to a backend failure. Sentinel
// errors pass through so errors.Is keeps working on the result.
func WrapBackend(op, target string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Target: target, Err: err}
}
