// Package breaker implements the binary trading circuit breaker: a gate
// over all new-trade approval that individual trade merits cannot reopen.
package breaker

import "sync"

// State of the breaker. Closed permits trading; Open rejects every new
// entry.
type State string

const (
	Closed State = "CLOSED"
	Open   State = "OPEN"
)

// Breaker is the CLOSED/OPEN state machine. It opens on a loss event that
// hits the daily limit and closes only at the start of a new trading day,
// and then only if no longer-horizon governor is still live.
//
// Transitions are idempotent: Trip reports whether this call performed the
// CLOSED→OPEN transition, so a caller can fire emergency side effects
// exactly once even when two near-simultaneous loss events both cross the
// threshold.
type Breaker struct {
	mu    sync.Mutex
	state State
}

// New returns a breaker in the given initial state. Anything other than an
// explicit Closed is treated as Open: an unknown state never defaults to
// "safe to trade".
func New(initial State) *Breaker {
	if initial != Closed {
		initial = Open
	}
	return &Breaker{state: initial}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether new entries are halted.
func (b *Breaker) IsOpen() bool {
	return b.State() == Open
}

// Trip moves the breaker to Open. It returns true only for the call that
// actually performed the transition; repeat trips return false.
func (b *Breaker) Trip() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open {
		return false
	}
	b.state = Open
	return true
}

// StartNewDay is the only path back to Closed. The daily reset is
// necessary but not sufficient: while the weekly governor is active the
// breaker stays Open. Returns true if the breaker closed on this call.
func (b *Breaker) StartNewDay(weeklyGovernorActive bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Closed || weeklyGovernorActive {
		return false
	}
	b.state = Closed
	return true
}
