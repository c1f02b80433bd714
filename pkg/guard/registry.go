package guard

import (
	"fmt"
	"os"
	"sync"
)

// Registry records which armed guard owns each signal.
// OS signal dispositions are process-wide, so guards share DefaultRegistry
// unless a test supplies its own through WithRegistry.
type Registry struct {
	mu     sync.Mutex
	owners map[os.Signal]*Guard
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[os.Signal]*Guard)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// claim gives g every signal in sigs, or none of them if any is taken.
func (r *Registry) claim(g *Guard, sigs []os.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sig := range sigs {
		if owner, ok := r.owners[sig]; ok && owner != g {
			return fmt.Errorf("signal %v is already owned by another armed guard", sig)
		}
	}
	for _, sig := range sigs {
		r.owners[sig] = g
	}
	return nil
}

// release drops g's ownership of sigs. Signals owned by other guards are left alone.
func (r *Registry) release(g *Guard, sigs []os.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sig := range sigs {
		if r.owners[sig] == g {
			delete(r.owners, sig)
		}
	}
}

// Owner returns the guard currently owning sig.
func (r *Registry) Owner(sig os.Signal) (*Guard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.owners[sig]
	return g, ok
}

// Len returns the number of owned signals.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}
