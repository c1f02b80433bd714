// Package guard turns process termination signals into resumable errors.
//
// A [Guard] watches a set of signals for the lifetime of one scoped
// operation. The operation reports progress with [Guard.Checkpoint]; when a
// watched signal arrives the guard uninstalls its handlers and the next
// checkpoint (or [Guard.Poll]) returns an [*InterruptedError] carrying the most
// recently reported [checkpoint.Token]. The signal itself never runs business
// logic: it only closes [Guard.Done] and cancels the context handed to the
// operation.
//
// # Usage
//
// The [Run] helper opens, closes and maps results:
//
//	err := guard.Run(ctx, func(ctx context.Context, g *guard.Guard) error {
//	    for pos := start; pos < end; pos++ {
//	        if err := process(ctx, pos); err != nil {
//	            return err
//	        }
//	        if err := g.Checkpoint(codecToken(pos + 1)); err != nil {
//	            return err
//	        }
//	    }
//	    return nil
//	})
//
//	var ie *guard.InterruptedError
//	if errors.As(err, &ie) {
//	    if tok, ok := ie.Checkpoint(); ok {
//	        persist(codec.Encode(tok))
//	    }
//	    os.Exit(guard.ExitCode(err))
//	}
//
// # State Machine
//
// A guard is single use:
//   - Idle -> Armed (Open)
//   - Armed -> Interrupted (a delivered signal is surfaced by Poll or Checkpoint)
//   - Armed -> Completed (Close without a surfaced signal)
//
// # Ownership
//
// Signal handlers are process-wide. At most one armed guard may own a given
// signal; opening a second guard for an owned signal panics, as does
// reporting progress on a guard that is not armed. Both indicate a defect in
// the calling code.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package guard
