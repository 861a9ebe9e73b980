package solver

import (
	"errors"
	"fmt"
)

// StateErrorCode categorizes a rejected resume.
type StateErrorCode string

const (
	// ErrCodeInstanceMismatch: the state was produced for another instance.
	ErrCodeInstanceMismatch StateErrorCode = "INSTANCE_MISMATCH"
	// ErrCodeCorruptState: the state is internally inconsistent.
	ErrCodeCorruptState StateErrorCode = "CORRUPT_STATE"
	// ErrCodeVersion: the state was written by an incompatible version.
	ErrCodeVersion StateErrorCode = "STATE_VERSION"
)

// StateError is returned by Resume for a state it cannot continue.
type StateError struct {
	Code    StateErrorCode
	Message string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStateError reports whether err is a StateError.
// Uses errors.As to handle wrapped errors.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

func corrupt(format string, args ...any) *StateError {
	return &StateError{Code: ErrCodeCorruptState, Message: fmt.Sprintf(format, args...)}
}
