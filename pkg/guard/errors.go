package guard

import (
	"errors"
	"fmt"
	"os"

	"github.com/bft-labs/sigresume/pkg/checkpoint"
)

// ErrInterrupted matches every *InterruptedError with errors.Is.
var ErrInterrupted = errors.New("guard: interrupted by signal")

// InterruptedError reports that a watched signal stopped the guarded
// operation. It carries the last checkpoint reported before the interruption
// was surfaced, if there was one.
type InterruptedError struct {
	// Signal is the signal that was delivered.
	Signal os.Signal

	token    checkpoint.Token
	hasToken bool
}

// NewInterruptedError builds an InterruptedError. Pass ok=false when no
// checkpoint was reported.
func NewInterruptedError(sig os.Signal, tok checkpoint.Token, ok bool) *InterruptedError {
	return &InterruptedError{Signal: sig, token: tok, hasToken: ok}
}

// Checkpoint returns the resume position. ok is false when the operation was
// interrupted before reporting any progress; it must then start over.
func (e *InterruptedError) Checkpoint() (tok checkpoint.Token, ok bool) {
	return e.token, e.hasToken
}

func (e *InterruptedError) Error() string {
	if e.hasToken {
		return fmt.Sprintf("guard: interrupted by %v at checkpoint %s", e.Signal, e.token)
	}
	return fmt.Sprintf("guard: interrupted by %v before any checkpoint", e.Signal)
}

// Is makes errors.Is(err, ErrInterrupted) hold.
func (e *InterruptedError) Is(target error) bool { return target == ErrInterrupted }

func misuse(format string, args ...interface{}) string {
	return "guard: " + fmt.Sprintf(format, args...)
}
