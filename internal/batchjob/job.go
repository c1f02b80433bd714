package batchjob

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/sigresume/pkg/guard"
	"github.com/bft-labs/sigresume/pkg/log"
)

// Job copies Input to Output line by line, prefixing each record with its
// sequence number. Output is made durable and a checkpoint reported after
// every BatchSize records.
type Job struct {
	Input     string
	Output    string
	BatchSize int

	// StepDelay is slept before each record to simulate work.
	StepDelay time.Duration

	Logger log.Logger
}

// Func adapts the job to guard.Run. The final position is stored in *done
// when the job returns, whether or not it finished.
func (j *Job) Func(start Position, done *Position) guard.Func {
	return func(ctx context.Context, g *guard.Guard) error {
		pos, err := j.Run(ctx, g, start)
		if done != nil {
			*done = pos
		}
		return err
	}
}

// Run processes the input from start until EOF or interruption. Output past
// start.Out belongs to an uncommitted batch and is truncated first.
func (j *Job) Run(ctx context.Context, g *guard.Guard, start Position) (Position, error) {
	if j.BatchSize <= 0 {
		return start, fmt.Errorf("batchjob: batch size must be positive, got %d", j.BatchSize)
	}
	logger := j.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	in, err := os.Open(j.Input)
	if err != nil {
		return start, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(j.Output, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return start, fmt.Errorf("open output: %w", err)
	}
	defer out.Close()

	if err := rewind(in, out, start); err != nil {
		return start, err
	}
	if !start.IsZero() {
		logger.Info("resuming",
			log.Int64("batch", start.Batch),
			log.Int64("records", start.Records),
			log.Int64("input_offset", start.In))
		// the resume point stays valid until the first new batch commits
		if err := g.Checkpoint(start.Token()); err != nil {
			return start, err
		}
	}

	r := bufio.NewReader(in)
	w := bufio.NewWriter(out)
	pos := start

	for {
		next, n, eof, err := j.copyBatch(ctx, r, w, pos)
		if err != nil {
			return pos, err
		}
		if n == 0 {
			logger.Info("input exhausted", log.Int64("records", pos.Records))
			return pos, nil
		}

		if err := w.Flush(); err != nil {
			return pos, fmt.Errorf("write output: %w", err)
		}
		if err := out.Sync(); err != nil {
			return pos, fmt.Errorf("sync output: %w", err)
		}
		next.Batch++
		pos = next
		logger.Debug("batch committed",
			log.Int64("batch", pos.Batch),
			log.Int("records_in_batch", n),
			log.Int64("records", pos.Records))

		if err := g.Checkpoint(pos.Token()); err != nil {
			return pos, err
		}
		if eof {
			logger.Info("input exhausted", log.Int64("records", pos.Records))
			return pos, nil
		}
	}
}

// copyBatch copies up to BatchSize records into w. It returns the position
// after the batch (not yet committed), the number of records copied and
// whether the input is exhausted.
func (j *Job) copyBatch(ctx context.Context, r *bufio.Reader, w *bufio.Writer, pos Position) (Position, int, bool, error) {
	n := 0
	for n < j.BatchSize {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return pos, n, false, fmt.Errorf("read input: %w", err)
		}
		eof := err != nil
		if line == "" {
			return pos, n, true, nil
		}

		if err := j.step(ctx); err != nil {
			return pos, n, false, err
		}

		rec := strconv.FormatInt(pos.Records+1, 10) + "\t" + trimEOL(line) + "\n"
		if _, err := w.WriteString(rec); err != nil {
			return pos, n, false, fmt.Errorf("write output: %w", err)
		}
		pos.In += int64(len(line))
		pos.Out += int64(len(rec))
		pos.Records++
		n++

		if eof {
			return pos, n, true, nil
		}
	}
	return pos, n, false, nil
}

func (j *Job) step(ctx context.Context) error {
	if j.StepDelay <= 0 {
		return nil
	}
	t := time.NewTimer(j.StepDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func rewind(in, out *os.File, start Position) error {
	if _, err := in.Seek(start.In, io.SeekStart); err != nil {
		return fmt.Errorf("seek input: %w", err)
	}
	fi, err := out.Stat()
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	if fi.Size() < start.Out {
		return fmt.Errorf("batchjob: output has %d bytes, checkpoint expects at least %d", fi.Size(), start.Out)
	}
	if err := out.Truncate(start.Out); err != nil {
		return fmt.Errorf("truncate output: %w", err)
	}
	if _, err := out.Seek(start.Out, io.SeekStart); err != nil {
		return fmt.Errorf("seek output: %w", err)
	}
	return nil
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
