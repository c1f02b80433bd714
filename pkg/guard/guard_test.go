//go:build !windows

package guard

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"go.uber.org/goleak"

	"github.com/bft-labs/sigresume/pkg/checkpoint"
)

func offsetToken(n int64) checkpoint.Token {
	return checkpoint.NewToken(checkpoint.Int("offset", n))
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "Idle"},
		{PhaseArmed, "Armed"},
		{PhaseCompleted, "Completed"},
		{PhaseInterrupted, "Interrupted"},
		{Phase(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %s, want %s", tt.phase, got, tt.want)
		}
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Phase
		to      Phase
		wantErr bool
	}{
		{"idle to armed", PhaseIdle, PhaseArmed, false},
		{"armed to completed", PhaseArmed, PhaseCompleted, false},
		{"armed to interrupted", PhaseArmed, PhaseInterrupted, false},
		{"idle to completed", PhaseIdle, PhaseCompleted, true},
		{"armed to armed", PhaseArmed, PhaseArmed, true},
		{"completed to armed", PhaseCompleted, PhaseArmed, true},
		{"interrupted to completed", PhaseInterrupted, PhaseCompleted, true},
		{"completed to interrupted", PhaseCompleted, PhaseInterrupted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkTransition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error %v is not ErrInvalidTransition", err)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	g := New()

	if g.Phase() != PhaseIdle {
		t.Errorf("initial phase = %v, want Idle", g.Phase())
	}
	sigs := g.Signals()
	if len(sigs) != 2 || sigs[0] != os.Interrupt || sigs[1] != syscall.SIGTERM {
		t.Errorf("Signals() = %v, want [interrupt terminated]", sigs)
	}
	if _, ok := g.Latest(); ok {
		t.Error("Latest() ok = true on a new guard")
	}
}

func TestWithSignals(t *testing.T) {
	g := New(WithSignals(syscall.SIGHUP, syscall.SIGHUP, nil, syscall.SIGTERM))
	sigs := g.Signals()
	if len(sigs) != 2 || sigs[0] != syscall.SIGHUP || sigs[1] != syscall.SIGTERM {
		t.Errorf("Signals() = %v, want [hangup terminated]", sigs)
	}

	g = New(WithSignals())
	if len(g.Signals()) != 2 {
		t.Errorf("empty WithSignals gave %v, want defaults", g.Signals())
	}
}

func TestGuard_LatestCheckpointWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	g, n, _ := testGuard(t, WithSignals(syscall.SIGTERM))
	g.Open()
	defer g.Close()

	const reports = 50
	for i := int64(1); i <= reports; i++ {
		if err := g.Checkpoint(offsetToken(i * 10)); err != nil {
			t.Fatalf("Checkpoint(%d) error = %v before any signal", i, err)
		}
	}

	if !n.deliver(syscall.SIGTERM) {
		t.Fatal("no handler installed for SIGTERM")
	}
	waitDelivered(t, g)

	err := g.Poll()
	var ie *InterruptedError
	if !errors.As(err, &ie) {
		t.Fatalf("Poll() error = %v, want *InterruptedError", err)
	}
	if ie.Signal != syscall.SIGTERM {
		t.Errorf("Signal = %v, want SIGTERM", ie.Signal)
	}
	tok, ok := ie.Checkpoint()
	if !ok {
		t.Fatal("Checkpoint() ok = false, want the last reported token")
	}
	if !tok.Equal(offsetToken(reports * 10)) {
		t.Errorf("token = %s, want {offset:%d}", tok, reports*10)
	}
	if g.Phase() != PhaseInterrupted {
		t.Errorf("phase = %v, want Interrupted", g.Phase())
	}
}

func TestGuard_CheckpointSurfacesInterruption(t *testing.T) {
	defer goleak.VerifyNone(t)

	g, n, _ := testGuard(t, WithSignals(syscall.SIGTERM))
	g.Open()
	defer g.Close()

	if err := g.Checkpoint(offsetToken(10)); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	n.deliver(syscall.SIGTERM)
	waitDelivered(t, g)

	// the checkpoint reported at the poll point is the one attached
	err := g.Checkpoint(offsetToken(20))
	var ie *InterruptedError
	if !errors.As(err, &ie) {
		t.Fatalf("Checkpoint() error = %v, want *InterruptedError", err)
	}
	if tok, _ := ie.Checkpoint(); !tok.Equal(offsetToken(20)) {
		t.Errorf("token = %s, want {offset:20}", tok)
	}
	if !errors.Is(err, ErrInterrupted) {
		t.Error("errors.Is(err, ErrInterrupted) = false")
	}

	// surfaced once; Poll keeps returning the same error
	if again := g.Poll(); again != err {
		t.Errorf("second Poll() = %v, want the same error", again)
	}
	expectPanic(t, "Checkpoint after interruption", func() { _ = g.Checkpoint(offsetToken(30)) })
}

func TestGuard_InterruptedWithoutProgress(t *testing.T) {
	defer goleak.VerifyNone(t)

	g, n, _ := testGuard(t)
	g.Open()
	defer g.Close()

	n.deliver(os.Interrupt)
	waitDelivered(t, g)

	err := g.Poll()
	var ie *InterruptedError
	if !errors.As(err, &ie) {
		t.Fatalf("Poll() error = %v, want *InterruptedError", err)
	}
	if _, ok := ie.Checkpoint(); ok {
		t.Error("Checkpoint() ok = true, want no checkpoint")
	}
	if ie.Signal != os.Interrupt {
		t.Errorf("Signal = %v, want interrupt", ie.Signal)
	}
}

func TestGuard_HandlersRemovedOnDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	g, n, r := testGuard(t)
	g.Open()
	defer g.Close()

	if n.installed() != 1 {
		t.Fatalf("installed handlers = %d, want 1", n.installed())
	}
	if owner, ok := r.Owner(syscall.SIGTERM); !ok || owner != g {
		t.Fatal("guard does not own SIGTERM while armed")
	}

	n.deliver(syscall.SIGTERM)
	waitDelivered(t, g)

	// uninstall happens before Done is closed
	if n.installed() != 0 {
		t.Errorf("installed handlers = %d after delivery, want 0", n.installed())
	}
	if r.Len() != 0 {
		t.Errorf("registry owns %d signals after delivery, want 0", r.Len())
	}
	if n.deliver(os.Interrupt) {
		t.Error("second signal reached the guard")
	}
	if sig, _ := g.Pending(); sig != syscall.SIGTERM {
		t.Errorf("Pending() = %v, want the first signal", sig)
	}
}

func TestGuard_CloseCompletes(t *testing.T) {
	defer goleak.VerifyNone(t)

	g, n, r := testGuard(t)
	g.Open()

	if err := g.Checkpoint(offsetToken(10)); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	out := g.Close()
	if out.Phase != PhaseCompleted {
		t.Errorf("outcome phase = %v, want Completed", out.Phase)
	}
	if out.Signal != nil || out.Err != nil {
		t.Errorf("outcome = %+v, want no signal and no error", out)
	}
	if _, ok := g.Latest(); ok {
		t.Error("Latest() still set after completion")
	}
	if n.installed() != 0 || r.Len() != 0 {
		t.Errorf("handlers=%d owned=%d after Close, want 0", n.installed(), r.Len())
	}
	if n.deliver(syscall.SIGTERM) {
		t.Error("signal after Close reached the guard")
	}
	if err := g.Poll(); err != nil {
		t.Errorf("Poll() after Close = %v, want nil", err)
	}

	// idempotent
	if again := g.Close(); again.Phase != PhaseCompleted {
		t.Errorf("second Close phase = %v", again.Phase)
	}
	if n.stopCount() != 1 {
		t.Errorf("Stop called %d times, want 1", n.stopCount())
	}
}

func TestGuard_CloseWithUnsurfacedSignal(t *testing.T) {
	defer goleak.VerifyNone(t)

	g, n, _ := testGuard(t)
	g.Open()
	n.deliver(syscall.SIGTERM)
	waitDelivered(t, g)

	out := g.Close()
	if out.Phase != PhaseCompleted {
		t.Errorf("outcome phase = %v, want Completed", out.Phase)
	}
	if out.Signal != syscall.SIGTERM {
		t.Errorf("outcome signal = %v, want SIGTERM", out.Signal)
	}
	if out.Err != nil {
		t.Errorf("outcome error = %v, want nil", out.Err)
	}
}

func TestGuard_CloseAfterInterruption(t *testing.T) {
	defer goleak.VerifyNone(t)

	g, n, _ := testGuard(t)
	g.Open()
	_ = g.Checkpoint(offsetToken(5))
	n.deliver(syscall.SIGTERM)
	waitDelivered(t, g)
	err := g.Poll()

	out := g.Close()
	if out.Phase != PhaseInterrupted {
		t.Errorf("outcome phase = %v, want Interrupted", out.Phase)
	}
	if out.Err == nil || error(out.Err) != err {
		t.Errorf("outcome error = %v, want %v", out.Err, err)
	}
}

func TestGuard_CloseIdle(t *testing.T) {
	g, n, _ := testGuard(t)
	if out := g.Close(); out.Phase != PhaseIdle {
		t.Errorf("Close on idle guard phase = %v, want Idle", out.Phase)
	}
	if n.stopCount() != 0 {
		t.Error("Close on idle guard touched the notifier")
	}
}

func TestGuard_Misuse(t *testing.T) {
	t.Run("checkpoint before open", func(t *testing.T) {
		g, _, _ := testGuard(t)
		expectPanic(t, "Checkpoint", func() { _ = g.Checkpoint(offsetToken(1)) })
	})

	t.Run("checkpoint after completion", func(t *testing.T) {
		g, _, _ := testGuard(t)
		g.Open()
		g.Close()
		expectPanic(t, "Checkpoint", func() { _ = g.Checkpoint(offsetToken(1)) })
	})

	t.Run("open twice", func(t *testing.T) {
		g, _, _ := testGuard(t)
		g.Open()
		defer g.Close()
		expectPanic(t, "second Open", g.Open)
	})

	t.Run("reopen after close", func(t *testing.T) {
		g, _, _ := testGuard(t)
		g.Open()
		g.Close()
		expectPanic(t, "Open after Close", g.Open)
	})

	t.Run("second guard for an owned signal", func(t *testing.T) {
		n := newFakeNotifier()
		r := NewRegistry()
		first := New(WithNotifier(n), WithRegistry(r), WithSignals(syscall.SIGTERM, syscall.SIGHUP))
		first.Open()
		defer first.Close()

		second := New(WithNotifier(n), WithRegistry(r), WithSignals(syscall.SIGHUP))
		expectPanic(t, "Open of nested guard", second.Open)

		// failed claim must not take anything
		if owner, _ := r.Owner(syscall.SIGHUP); owner != first {
			t.Error("SIGHUP ownership changed after failed Open")
		}
		if n.installed() != 1 {
			t.Errorf("installed handlers = %d, want 1", n.installed())
		}
	})
}

func TestGuard_DisjointSignalsMayNest(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := newFakeNotifier()
	r := NewRegistry()
	outer := New(WithNotifier(n), WithRegistry(r), WithSignals(syscall.SIGTERM))
	inner := New(WithNotifier(n), WithRegistry(r), WithSignals(syscall.SIGHUP))

	outer.Open()
	inner.Open()

	n.deliver(syscall.SIGHUP)
	waitDelivered(t, inner)

	if err := inner.Poll(); !errors.Is(err, ErrInterrupted) {
		t.Errorf("inner Poll() = %v, want interruption", err)
	}
	if err := outer.Poll(); err != nil {
		t.Errorf("outer Poll() = %v, want nil", err)
	}

	inner.Close()
	if out := outer.Close(); out.Phase != PhaseCompleted {
		t.Errorf("outer phase = %v, want Completed", out.Phase)
	}

	// a released signal can be claimed again
	again := New(WithNotifier(n), WithRegistry(r), WithSignals(syscall.SIGHUP))
	again.Open()
	again.Close()
}

func TestInterruptedError_Error(t *testing.T) {
	with := NewInterruptedError(syscall.SIGTERM, offsetToken(20), true)
	want := "guard: interrupted by " + syscall.SIGTERM.String() + " at checkpoint {offset:20}"
	if with.Error() != want {
		t.Errorf("Error() = %q, want %q", with.Error(), want)
	}

	without := NewInterruptedError(os.Interrupt, checkpoint.Token{}, false)
	want = "guard: interrupted by " + os.Interrupt.String() + " before any checkpoint"
	if without.Error() != want {
		t.Errorf("Error() = %q, want %q", without.Error(), want)
	}
}
