package state

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Backoff is exponential backoff with ±20% jitter.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff creates a backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Wait sleeps for the current duration, then doubles it. It returns early
// with ctx.Err() when ctx is done.
func (b *Backoff) Wait(ctx context.Context) error {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	t := time.NewTimer(time.Duration(float64(b.current) + jitter))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return nil
}

// Reset resets the backoff to the initial duration.
func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// SaveWithRetry calls repo.Save up to attempts times, waiting on b between
// failures.
func SaveWithRetry(ctx context.Context, repo Repository, encoded string, attempts int, b *Backoff) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if werr := b.Wait(ctx); werr != nil {
				return fmt.Errorf("save checkpoint: %w (last error: %v)", werr, err)
			}
		}
		if err = repo.Save(ctx, encoded); err == nil {
			return nil
		}
	}
	return fmt.Errorf("save checkpoint after %d attempts: %w", attempts, err)
}
