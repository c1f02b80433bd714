package guard

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
)

// DefaultSignals returns the interrupt and terminate signals.
func DefaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

// ParseSignal resolves a name such as "TERM", "SIGHUP" or "int".
// The names available depend on the platform; see SignalNames.
func ParseSignal(name string) (os.Signal, error) {
	key := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "SIG")
	if sig, ok := signalTable[key]; ok {
		return sig, nil
	}
	return nil, fmt.Errorf("guard: unknown signal %q (known: %s)", name, strings.Join(SignalNames(), ", "))
}

// ParseSignals resolves every name, stopping at the first unknown one.
func ParseSignals(names []string) ([]os.Signal, error) {
	out := make([]os.Signal, 0, len(names))
	for _, n := range names {
		sig, err := ParseSignal(n)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

// SignalNames lists the names ParseSignal accepts on this platform.
func SignalNames() []string {
	names := make([]string, 0, len(signalTable))
	for n := range signalTable {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
