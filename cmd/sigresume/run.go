package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bft-labs/sigresume/internal/batchjob"
	"github.com/bft-labs/sigresume/pkg/checkpoint"
	"github.com/bft-labs/sigresume/pkg/guard"
	"github.com/bft-labs/sigresume/pkg/log"
	"github.com/bft-labs/sigresume/pkg/state"
)

// Retry policy for saving the checkpoint after an interruption.
const (
	saveAttempts       = 3
	saveBackoffInitial = 100 * time.Millisecond
	saveBackoffMax     = time.Second
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the batch job, resuming from the saved checkpoint if there is one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireJob(); err != nil {
				return err
			}
			return a.runJob(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&a.cfg.Input, "input", a.cfg.Input, "input file")
	cmd.Flags().IntVar(&a.cfg.BatchSize, "batch-size", a.cfg.BatchSize, "records per checkpoint")
	cmd.Flags().DurationVar(&a.cfg.StepDelay, "step-delay", a.cfg.StepDelay, "simulated work per record")
	cmd.Flags().StringSliceVar(&a.cfg.Signals, "signals", a.cfg.Signals, "signals that interrupt the job")
	return cmd
}

// runJob runs the job under a guard. An interruption with a checkpoint saves
// it; completion clears the saved state. The returned error maps to the
// process exit code.
func (a *app) runJob(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	repo := state.NewFileRepository(a.cfg.StateFile)
	logger := a.log.With().Str("state_file", a.cfg.StateFile).Logger()

	start, err := a.resumePoint(ctx, repo)
	if err != nil {
		return err
	}

	sigs, err := a.cfg.GuardSignals()
	if err != nil {
		return err
	}
	adapter := log.NewZerologAdapterWithLogger(logger)
	job := &batchjob.Job{
		Input:     a.cfg.Input,
		Output:    a.cfg.Output,
		BatchSize: a.cfg.BatchSize,
		StepDelay: a.cfg.StepDelay,
		Logger:    adapter,
	}
	opts := append([]guard.Option{guard.WithSignals(sigs...), guard.WithLogger(adapter)}, a.guardOpts...)

	var done batchjob.Position
	err = guard.Run(ctx, job.Func(start, &done), opts...)

	var ie *guard.InterruptedError
	switch {
	case err == nil:
		if cerr := repo.Clear(ctx); cerr != nil {
			return fmt.Errorf("clear checkpoint: %w", cerr)
		}
		logger.Info().Int64("records", done.Records).Int64("batches", done.Batch).Msg("job completed")
		return nil

	case errors.As(err, &ie):
		return saveCheckpoint(ctx, repo, ie, logger)

	default:
		return err
	}
}

// saveCheckpoint persists the checkpoint carried by ie and returns the error
// the command exits with. A checkpoint the next run could not resume from is
// not saved, and the interruption is reported as having none.
func saveCheckpoint(ctx context.Context, repo state.Repository, ie *guard.InterruptedError, logger zerolog.Logger) error {
	tok, ok := ie.Checkpoint()
	if !ok {
		logger.Warn().Msg("interrupted before the first checkpoint, nothing saved")
		return ie
	}
	if _, err := batchjob.PositionFromToken(tok); err != nil {
		logger.Error().Err(err).Stringer("checkpoint", tok).Msg("checkpoint is not resumable, nothing saved")
		return guard.NewInterruptedError(ie.Signal, checkpoint.Token{}, false)
	}

	b := state.NewBackoff(saveBackoffInitial, saveBackoffMax)
	if err := state.SaveWithRetry(ctx, repo, batchjob.Codec.Encode(tok), saveAttempts, b); err != nil {
		return fmt.Errorf("interrupted by %v: %w", ie.Signal, err)
	}
	logger.Info().Stringer("checkpoint", tok).Msg("checkpoint saved, rerun to resume")
	return ie
}

// resumePoint loads the saved position. Unusable state is logged and the job
// starts over.
func (a *app) resumePoint(ctx context.Context, repo state.Repository) (batchjob.Position, error) {
	tok, ok, err := state.LoadToken(ctx, repo, batchjob.Codec)
	switch {
	case errors.Is(err, checkpoint.ErrInvalidState):
		a.log.Warn().Err(err).Msg("ignoring unusable checkpoint, starting over")
		return batchjob.Position{}, nil
	case err != nil:
		return batchjob.Position{}, fmt.Errorf("load checkpoint: %w", err)
	case !ok:
		return batchjob.Position{}, nil
	}

	pos, err := batchjob.PositionFromToken(tok)
	if err != nil {
		a.log.Warn().Err(err).Msg("ignoring unusable checkpoint, starting over")
		return batchjob.Position{}, nil
	}
	return pos, nil
}
