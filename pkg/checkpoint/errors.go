package checkpoint

import (
	"errors"
	"fmt"
)

// ErrInvalidState matches every *InvalidStateError with errors.Is.
var ErrInvalidState = errors.New("checkpoint: invalid state")

// InvalidStateError is returned when a string cannot be decoded into a Token.
// It is always recoverable: callers treat it as "no valid resume point".
type InvalidStateError struct {
	// Input is the full string handed to Decode.
	Input string

	// Offending is the part of Input that failed validation.
	Offending string

	// Reason describes the failed check.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (e *InvalidStateError) Error() string {
	msg := fmt.Sprintf("checkpoint: invalid state: %s", e.Reason)
	if e.Offending != "" {
		msg += fmt.Sprintf(" (at %q)", e.Offending)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidStateError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidState) hold.
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

func invalid(input, offending, reason string, cause error) *InvalidStateError {
	return &InvalidStateError{Input: input, Offending: offending, Reason: reason, Err: cause}
}
