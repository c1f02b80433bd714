package guard

import (
	"errors"
	"fmt"
)

// Phase is the lifecycle state of a Guard.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseArmed
	PhaseCompleted
	PhaseInterrupted
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseArmed:
		return "Armed"
	case PhaseCompleted:
		return "Completed"
	case PhaseInterrupted:
		return "Interrupted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition can leave p.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseInterrupted
}

// ErrInvalidTransition is returned for a transition the state machine does not allow.
var ErrInvalidTransition = errors.New("guard: invalid phase transition")

// checkTransition validates from -> to.
func checkTransition(from, to Phase) error {
	ok := false
	switch from {
	case PhaseIdle:
		ok = to == PhaseArmed
	case PhaseArmed:
		ok = to == PhaseCompleted || to == PhaseInterrupted
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
