// Package pdt tracks day trades against the Pattern-Day-Trader rule: a
// rolling window of business days, not calendar days.
package pdt

import (
	"sort"
	"sync"
	"time"

	"optrisk/calendar"
)

// WindowDays is the regulatory rolling window length in business days.
const WindowDays = 5

// Tracker counts day trades inside a rolling business-day window. A trade
// stays in the window while strictly fewer than WindowDays business days
// have elapsed since its trade date; weekends and holidays neither count
// toward that tally nor extend it.
type Tracker struct {
	mu sync.Mutex

	cal    *calendar.Calendar
	limit  int
	trades []time.Time // trade dates, exchange-local midnight
}

// NewTracker returns a tracker with the given day-trade limit using cal to
// decide which days are business days.
func NewTracker(limit int, cal *calendar.Calendar) *Tracker {
	return &Tracker{cal: cal, limit: limit}
}

// RecordDayTrade registers a completed day trade at time t.
func (tr *Tracker) RecordDayTrade(t time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.trades = append(tr.trades, tr.cal.MarketDate(t))
}

// inWindowLocked counts trades still inside the rolling window as of asOf.
func (tr *Tracker) inWindowLocked(asOf time.Time) int {
	n := 0
	for _, day := range tr.trades {
		if tr.cal.BusinessDaysBetween(day, asOf) < WindowDays {
			n++
		}
	}
	return n
}

// CanOpenDayTrade reports whether another day trade fits under the limit
// as of the given time.
func (tr *Tracker) CanOpenDayTrade(asOf time.Time) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.inWindowLocked(asOf) < tr.limit
}

// Remaining returns how many day trades are left in the window, clamped
// at zero.
func (tr *Tracker) Remaining(asOf time.Time) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	left := tr.limit - tr.inWindowLocked(asOf)
	if left < 0 {
		return 0
	}
	return left
}

// Prune drops trades that have aged out of the window as of asOf. Purely
// a memory bound; counting already ignores expired trades.
func (tr *Tracker) Prune(asOf time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	kept := tr.trades[:0]
	for _, day := range tr.trades {
		if tr.cal.BusinessDaysBetween(day, asOf) < WindowDays {
			kept = append(kept, day)
		}
	}
	tr.trades = kept
}

// State is the persistable form of the tracker.
type State struct {
	Limit      int         `json:"limit"`
	TradeDates []time.Time `json:"trade_dates"`
}

// Export captures the tracker for persistence.
func (tr *Tracker) Export() State {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	dates := make([]time.Time, len(tr.trades))
	copy(dates, tr.trades)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return State{Limit: tr.limit, TradeDates: dates}
}

// Import replaces the tracker contents with persisted state. A zero limit
// in the blob keeps the configured limit.
func (tr *Tracker) Import(st State) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if st.Limit > 0 {
		tr.limit = st.Limit
	}
	tr.trades = make([]time.Time, 0, len(st.TradeDates))
	for _, d := range st.TradeDates {
		tr.trades = append(tr.trades, tr.cal.MarketDate(d))
	}
}
