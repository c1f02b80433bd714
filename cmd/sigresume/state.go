package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bft-labs/sigresume/internal/batchjob"
	"github.com/bft-labs/sigresume/pkg/guard"
	"github.com/bft-labs/sigresume/pkg/log"
	"github.com/bft-labs/sigresume/pkg/state"
)

func (a *app) stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset the saved checkpoint",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireState(); err != nil {
				return err
			}
			repo := state.NewFileRepository(a.cfg.StateFile)
			return printState(a.stdout, repo.Path())(repo.Load(cmd.Context()))
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the saved checkpoint so the next run starts over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireState(); err != nil {
				return err
			}
			repo := state.NewFileRepository(a.cfg.StateFile)
			if err := repo.Clear(cmd.Context()); err != nil {
				return err
			}
			a.log.Info().Str("state_file", repo.Path()).Msg("checkpoint cleared")
			return nil
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the checkpoint every time a running job saves it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireState(); err != nil {
				return err
			}
			return a.watchState(cmd.Context())
		},
	}

	cmd.AddCommand(showCmd, clearCmd, watchCmd)
	return cmd
}

// watchState prints the state file on every change until a watched signal
// arrives.
func (a *app) watchState(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sigs, err := a.cfg.GuardSignals()
	if err != nil {
		return err
	}
	repo := state.NewFileRepository(a.cfg.StateFile)
	show := printState(a.stdout, repo.Path())

	opts := append([]guard.Option{
		guard.WithSignals(sigs...),
		guard.WithLogger(log.NewZerologAdapterWithLogger(a.log)),
	}, a.guardOpts...)

	a.log.Info().Str("state_file", repo.Path()).Msg("watching checkpoint")
	err = guard.Run(ctx, func(ctx context.Context, g *guard.Guard) error {
		return repo.Watch(ctx, func(encoded string, err error) error {
			// a checkpoint that does not decode is printed, not fatal
			if perr := show(encoded, err); perr != nil && !errors.Is(perr, errUnusableState) {
				return perr
			}
			return nil
		})
	}, opts...)
	if errors.Is(err, guard.ErrInterrupted) {
		// a signal is how watching ends
		return nil
	}
	return err
}

var errUnusableState = errors.New("saved checkpoint is unusable; the next run starts over")

// printState returns a function writing one loaded state string to w.
func printState(w io.Writer, path string) func(encoded string, err error) error {
	return func(encoded string, err error) error {
		if errors.Is(err, state.ErrNoState) {
			fmt.Fprintf(w, "%s: no checkpoint\n", path)
			return nil
		}
		if err != nil {
			return err
		}

		tok, err := batchjob.Codec.Decode(encoded)
		if err != nil {
			fmt.Fprintf(w, "%s: %s (unusable)\n", path, encoded)
			return fmt.Errorf("%w: %v", errUnusableState, err)
		}
		pos, err := batchjob.PositionFromToken(tok)
		if err != nil {
			fmt.Fprintf(w, "%s: %s (unusable)\n", path, encoded)
			return fmt.Errorf("%w: %v", errUnusableState, err)
		}
		fmt.Fprintf(w, "%s: %s\n  batch=%d records=%d input_offset=%d output_size=%d\n",
			path, encoded, pos.Batch, pos.Records, pos.In, pos.Out)
		return nil
	}
}
