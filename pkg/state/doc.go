// Package state persists encoded checkpoints between runs.
//
// The guard never writes anything itself: a command that was interrupted
// encodes the checkpoint and saves the resulting string here, and the next run
// loads and decodes it.
//
// # Usage
//
//	repo := state.NewFileRepository("/var/lib/myjob/checkpoint")
//
//	tok, ok, err := state.LoadToken(ctx, repo, codec)
//	switch {
//	case errors.Is(err, checkpoint.ErrInvalidState):
//	    // corrupt or from another schema version, start over
//	case err != nil:
//	    return err
//	case ok:
//	    // resume from tok
//	}
//
//	// on interruption
//	if err := repo.Save(ctx, codec.Encode(tok)); err != nil {
//	    return err
//	}
//
// The stored string is opaque to this package. A missing checkpoint is
// reported as ErrNoState, never as an empty string.
package state
