package guard

import (
	"context"
	"errors"
)

// Func is a guarded operation. ctx is cancelled when a watched signal is
// delivered; g receives checkpoints.
type Func func(ctx context.Context, g *Guard) error

// Run opens a guard, runs fn and closes the guard on every exit path,
// including panics. The result is mapped as follows:
//   - an *InterruptedError from fn is returned as is;
//   - an error wrapping context.Canceled while a signal is pending becomes an
//     *InterruptedError carrying the latest checkpoint;
//   - any other error is returned unchanged;
//   - nil means the scope completed.
func Run(ctx context.Context, fn Func, opts ...Option) error {
	g := New(opts...)
	g.Open()

	runCtx, cancel := g.Context(ctx)
	defer func() {
		cancel()
		g.Close()
	}()

	return g.settle(fn(runCtx, g))
}

func (g *Guard) settle(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInterrupted) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		if perr := g.Poll(); perr != nil {
			return perr
		}
	}
	return err
}
