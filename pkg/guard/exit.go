package guard

import (
	"errors"
	"syscall"
)

// Process exit codes. ExitResumable is sysexits EX_TEMPFAIL: a supervisor
// seeing it can rerun the command and expect it to resume.
const (
	ExitSuccess   = 0
	ExitFailure   = 1
	ExitResumable = 75

	// exitSignalBase follows the shell convention of 128 + signal number.
	exitSignalBase = 128
)

// ExitCode maps the result of a guarded command to a process exit code:
// nil is ExitSuccess, an interruption with a checkpoint is ExitResumable, an
// interruption without one is 128+signal, anything else is ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ie *InterruptedError
	if !errors.As(err, &ie) {
		return ExitFailure
	}
	if _, ok := ie.Checkpoint(); ok {
		return ExitResumable
	}
	if s, ok := ie.Signal.(syscall.Signal); ok {
		return exitSignalBase + int(s)
	}
	return ExitFailure
}

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch {
	case code == ExitSuccess:
		return "success"
	case code == ExitFailure:
		return "error"
	case code == ExitResumable:
		return "interrupted, resumable"
	case code > exitSignalBase && code < exitSignalBase+65:
		return "interrupted (" + syscall.Signal(code-exitSignalBase).String() + ")"
	default:
		return "unknown"
	}
}
