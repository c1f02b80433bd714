package guard

import (
	"os"
	"sync"
	"testing"
	"time"
)

// fakeNotifier records installed handlers and delivers simulated signals the
// way os/signal does: non-blocking sends to every channel watching the signal.
type fakeNotifier struct {
	mu       sync.Mutex
	watching map[chan<- os.Signal][]os.Signal
	stops    int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{watching: make(map[chan<- os.Signal][]os.Signal)}
}

func (f *fakeNotifier) Notify(c chan<- os.Signal, sig ...os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watching[c] = append(f.watching[c], sig...)
}

func (f *fakeNotifier) Stop(c chan<- os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.watching, c)
	f.stops++
}

// deliver reports whether any installed handler received sig.
func (f *fakeNotifier) deliver(sig os.Signal) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	delivered := false
	for c, sigs := range f.watching {
		for _, s := range sigs {
			if s != sig {
				continue
			}
			select {
			case c <- sig:
			default:
			}
			delivered = true
		}
	}
	return delivered
}

func (f *fakeNotifier) installed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watching)
}

func (f *fakeNotifier) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// testGuard returns a guard isolated from the process: fake notifier and a
// private registry.
func testGuard(t *testing.T, opts ...Option) (*Guard, *fakeNotifier, *Registry) {
	t.Helper()
	n := newFakeNotifier()
	r := NewRegistry()
	opts = append([]Option{WithNotifier(n), WithRegistry(r)}, opts...)
	return New(opts...), n, r
}

func waitDelivered(t *testing.T, g *Guard) {
	t.Helper()
	select {
	case <-g.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("signal was not delivered within 5s")
	}
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}
