package guard

import (
	"os"
	"os/signal"
)

// Notifier installs and removes signal handlers. It mirrors os/signal so
// tests can deliver simulated signals.
type Notifier interface {
	// Notify relays the given signals to c. sig is never empty.
	Notify(c chan<- os.Signal, sig ...os.Signal)

	// Stop stops relaying to c. No signal is sent to c once Stop returns.
	Stop(c chan<- os.Signal)
}

type osNotifier struct{}

func (osNotifier) Notify(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
func (osNotifier) Stop(c chan<- os.Signal)                     { signal.Stop(c) }

// OSNotifier returns the Notifier backed by os/signal.
func OSNotifier() Notifier {
	return osNotifier{}
}
