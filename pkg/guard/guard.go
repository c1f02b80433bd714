package guard

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/sigresume/pkg/checkpoint"
	"github.com/bft-labs/sigresume/pkg/log"
)

// Option configures a Guard.
type Option func(*Guard)

// WithSignals sets the watched signals. An empty list keeps the default.
func WithSignals(sigs ...os.Signal) Option {
	return func(g *Guard) {
		g.signals = dedupe(sigs)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l log.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithNotifier replaces os/signal, typically with a fake in tests.
func WithNotifier(n Notifier) Option {
	return func(g *Guard) {
		if n != nil {
			g.notifier = n
		}
	}
}

// WithRegistry replaces the process-wide ownership registry.
func WithRegistry(r *Registry) Option {
	return func(g *Guard) {
		if r != nil {
			g.registry = r
		}
	}
}

// Outcome summarizes how a guard scope ended.
type Outcome struct {
	Phase Phase

	// Signal is the delivered signal, nil if none arrived.
	Signal os.Signal

	// Err is set when Phase is PhaseInterrupted.
	Err *InterruptedError
}

// Guard converts signal delivery into an *InterruptedError at the next
// checkpoint. Checkpoint, Poll and Close belong to the goroutine running the
// guarded operation; Phase, Latest and Done may be used from anywhere.
type Guard struct {
	signals  []os.Signal
	notifier Notifier
	registry *Registry
	logger   log.Logger

	mu    sync.Mutex
	phase Phase
	err   *InterruptedError

	latest atomic.Pointer[checkpoint.Token]

	ch        chan os.Signal
	received  os.Signal // written before delivered is closed
	delivered chan struct{}
	stop      chan struct{}
	exited    chan struct{}

	uninstallOnce sync.Once
	stopOnce      sync.Once
}

// New returns an idle guard.
func New(opts ...Option) *Guard {
	g := &Guard{
		signals:   DefaultSignals(),
		notifier:  osNotifier{},
		registry:  defaultRegistry,
		logger:    log.NewNoopLogger(),
		phase:     PhaseIdle,
		delivered: make(chan struct{}),
		stop:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	// os/signal treats an empty list as "every signal"
	if len(g.signals) == 0 {
		g.signals = DefaultSignals()
	}
	return g
}

// Open arms the guard: it claims the signals and installs handlers.
// It panics if the guard was opened before or a signal is owned by another
// armed guard.
func (g *Guard) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := checkTransition(g.phase, PhaseArmed); err != nil {
		panic(misuse("Open on a %s guard; guards are single use", g.phase))
	}
	if err := g.registry.claim(g, g.signals); err != nil {
		panic(misuse("%v", err))
	}

	// capacity 1 keeps a signal that arrives before watch is scheduled
	g.ch = make(chan os.Signal, 1)
	g.notifier.Notify(g.ch, g.signals...)
	go g.watch()

	g.setPhaseLocked(PhaseArmed, "open")
}

// watch waits for the first delivery. Handlers are removed before the
// interruption becomes visible, so a repeated signal never reaches the guard.
func (g *Guard) watch() {
	defer close(g.exited)

	select {
	case sig := <-g.ch:
		g.uninstall()
		g.received = sig
		close(g.delivered)
		g.logger.Warn("signal received", log.Stringer("signal", sig))
	case <-g.stop:
	}
}

func (g *Guard) uninstall() {
	g.uninstallOnce.Do(func() {
		g.notifier.Stop(g.ch)
		g.registry.release(g, g.signals)
	})
}

// Checkpoint records tok as the latest resume position and then polls.
// It returns an *InterruptedError carrying tok if a signal has been delivered.
// It panics if the guard is not armed.
func (g *Guard) Checkpoint(tok checkpoint.Token) error {
	if p := g.Phase(); p != PhaseArmed {
		panic(misuse("Checkpoint on a %s guard", p))
	}
	g.latest.Store(&tok)
	return g.Poll()
}

// Poll surfaces a delivered signal. The first call that observes it moves the
// guard to Interrupted; later calls return the same error. Poll returns nil
// while no signal has arrived and on guards that are idle or completed.
func (g *Guard) Poll() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.phase {
	case PhaseInterrupted:
		return g.err
	case PhaseArmed:
	default:
		return nil
	}

	select {
	case <-g.delivered:
	default:
		return nil
	}

	tok, ok := g.Latest()
	g.err = NewInterruptedError(g.received, tok, ok)
	g.setPhaseLocked(PhaseInterrupted, "signal")
	return g.err
}

// Pending reports a delivered signal that may not have been surfaced yet.
func (g *Guard) Pending() (os.Signal, bool) {
	select {
	case <-g.delivered:
		return g.received, true
	default:
		return nil, false
	}
}

// Done is closed when a watched signal is delivered.
func (g *Guard) Done() <-chan struct{} {
	return g.delivered
}

// Context returns a child of parent that is cancelled when a watched signal
// is delivered, with ErrInterrupted as its cause. Call cancel to release it.
func (g *Guard) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-g.delivered:
			cancel(ErrInterrupted)
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(nil) }
}

// Latest returns the most recently reported checkpoint.
func (g *Guard) Latest() (checkpoint.Token, bool) {
	if p := g.latest.Load(); p != nil {
		return *p, true
	}
	return checkpoint.Token{}, false
}

// Phase returns the current phase.
func (g *Guard) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Signals returns the watched signals.
func (g *Guard) Signals() []os.Signal {
	out := make([]os.Signal, len(g.signals))
	copy(out, g.signals)
	return out
}

// Close uninstalls the handlers and stops the delivery goroutine. An armed
// guard becomes Completed and its last checkpoint is discarded; a signal
// delivered but never surfaced is reported in the outcome only. Close is safe
// to call more than once and on an idle guard.
func (g *Guard) Close() Outcome {
	g.mu.Lock()
	opened := g.phase != PhaseIdle
	g.mu.Unlock()

	if opened {
		g.uninstall()
		g.stopOnce.Do(func() { close(g.stop) })
		<-g.exited
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out := Outcome{Phase: g.phase}
	if sig, ok := g.Pending(); ok {
		out.Signal = sig
	}

	if g.phase == PhaseArmed {
		if out.Signal != nil {
			g.logger.Warn("signal arrived after the last checkpoint, scope completed",
				log.Stringer("signal", out.Signal))
		}
		g.latest.Store(nil)
		g.setPhaseLocked(PhaseCompleted, "close")
		out.Phase = PhaseCompleted
	}
	out.Err = g.err
	return out
}

func (g *Guard) setPhaseLocked(next Phase, reason string) {
	prev := g.phase
	if err := checkTransition(prev, next); err != nil {
		panic(misuse("%v", err))
	}
	g.phase = next

	fields := []log.Field{
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason),
	}
	if next == PhaseInterrupted && g.err != nil {
		if tok, ok := g.err.Checkpoint(); ok {
			fields = append(fields, log.Stringer("checkpoint", tok))
		}
	}
	g.logger.Debug("guard transition", fields...)
}

func dedupe(sigs []os.Signal) []os.Signal {
	out := make([]os.Signal, 0, len(sigs))
	seen := make(map[os.Signal]bool, len(sigs))
	for _, s := range sigs {
		if s == nil || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
