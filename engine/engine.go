// Package engine composes the position sizer, PDT tracker, risk guard and
// circuit breaker into the single pre-trade gate the rest of the bot must
// go through. One Engine instance owns the risk state for one account.
package engine

import (
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"optrisk/breaker"
	"optrisk/calendar"
	"optrisk/internal/id"
	"optrisk/journal"
	"optrisk/pdt"
	"optrisk/risk"
	"optrisk/state"
)

// AccountSnapshot is the caller-supplied view of the account at check
// time. The engine reads position aggregates; it never owns position
// lifecycle.
type AccountSnapshot struct {
	OpenPositions []risk.OpenPosition
	Now           time.Time // zero means "engine clock"
}

// CheckResult is a pre-trade decision plus, on approval of an opening
// order, the ID of the exposure reservation that approval took out.
// Release it with ReleaseExposure once the order fills (and the position
// shows up in snapshots) or is cancelled.
type CheckResult struct {
	risk.Decision
	ReservationID string
}

// Options are the engine's injectable collaborators. Zero values get safe
// defaults: UTC-naive NY calendar, in-memory store, no-op journal, broker
// and notifier, and a discard logger.
type Options struct {
	Calendar *calendar.Calendar
	Store    state.Store
	Journal  journal.Journal
	Logger   *logrus.Logger
	Broker   Broker
	Notifier Notifier
	Clock    func() time.Time
}

// Engine is the risk-control façade. A single mutex serializes every
// mutation that feeds an approval decision: aggregate-exposure commits,
// loss accumulation and breaker transitions. Two concurrent proposals
// that would individually pass but jointly bust a limit therefore get at
// most one approval; the loser sees a plain rejection, never an error.
type Engine struct {
	mu sync.Mutex

	limits  risk.Limits
	guard   *risk.Guard
	tracker *pdt.Tracker
	brk     *breaker.Breaker
	cal     *calendar.Calendar

	store    state.Store
	jrnl     journal.Journal
	log      *logrus.Logger
	broker   Broker
	notifier Notifier
	clock    func() time.Time

	reservations map[string]decimal.Decimal

	// one emergency bundle per trigger episode
	dailyEpisodeFired  bool
	weeklyEpisodeFired bool
	gatewayDown        bool

	saveCh   chan state.RiskState
	done     chan struct{}
	loopDone chan struct{}
}

// New builds an engine with fresh state.
func New(limits risk.Limits, opts Options) *Engine {
	if opts.Calendar == nil {
		opts.Calendar = calendar.New()
	}
	if opts.Store == nil {
		opts.Store = state.NewMemStore()
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
		opts.Logger.SetOutput(io.Discard)
	}
	if opts.Broker == nil {
		opts.Broker = NopBroker{}
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	e := &Engine{
		limits:       limits,
		guard:        risk.NewGuard(limits),
		tracker:      pdt.NewTracker(limits.PDTLimit, opts.Calendar),
		brk:          breaker.New(breaker.Closed),
		cal:          opts.Calendar,
		store:        opts.Store,
		jrnl:         opts.Journal,
		log:          opts.Logger,
		broker:       opts.Broker,
		notifier:     opts.Notifier,
		clock:        opts.Clock,
		reservations: make(map[string]decimal.Decimal),
		saveCh:       make(chan state.RiskState, 64),
		done:         make(chan struct{}),
		loopDone:     make(chan struct{}),
	}
	go e.saveLoop()
	return e
}

// NewFromStore builds an engine and restores persisted state from the
// store. The bool reports whether a persisted blob was actually restored;
// when it was missing or unparsable the engine starts from the fail-safe
// default instead, with the breaker open and data quarantine set.
func NewFromStore(limits risk.Limits, opts Options) (*Engine, bool) {
	e := New(limits, opts)
	st, restored := state.LoadOrDefault(e.store)
	e.Restore(st)
	if !restored {
		e.log.Warn("risk state missing or corrupt; starting in fail-safe mode")
	}
	return e, restored
}

// PreTradeCheck runs the full ordered check pipeline over the proposed
// trade. Every check runs; the Decision carries every failing reason. On
// approval of an opening order the trade's cost is reserved against the
// aggregate-exposure limit under the engine lock, which is what makes
// concurrent approvals serializable.
func (e *Engine) PreTradeCheck(trade risk.ProposedTrade, acct AccountSnapshot) CheckResult {
	now := acct.Now
	if now.IsZero() {
		now = e.clock()
	}

	e.mu.Lock()
	mode, failReasons := e.guard.RequiredStrategy()
	in := risk.CheckInput{
		RequiredMode:         mode,
		FailSafeReasons:      failReasons,
		CircuitOpen:          e.brk.IsOpen(),
		PDTAllowed:           e.tracker.CanOpenDayTrade(now),
		PDTRemaining:         e.tracker.Remaining(now),
		DailyLossLimitHit:    e.guard.DailyLossLimitHit(),
		WeeklyGovernorActive: e.guard.WeeklyGovernorActive(),
		OpenCostBases:        e.exposuresLocked(acct.OpenPositions),
	}
	d := risk.Evaluate(e.limits, trade, in)

	res := CheckResult{Decision: d}
	var snap *state.RiskState
	if d.Allowed && !trade.IsClosing {
		rid := id.New()
		e.reservations[rid] = trade.Cost()
		res.ReservationID = rid
		s := e.snapshotLocked()
		snap = &s
	}
	e.mu.Unlock()

	if snap != nil {
		e.enqueueSave(*snap)
	}

	rec := journal.DecisionRecord{
		ID:        id.New(),
		Time:      now,
		Symbol:    trade.Symbol,
		Action:    string(trade.Action),
		IsClosing: trade.IsClosing,
		Cost:      trade.Cost(),
		Allowed:   d.Allowed,
		Reasons:   d.Reasons(),
		ChecksRun: d.ChecksRun,
	}
	if err := e.jrnl.RecordDecision(rec); err != nil {
		e.log.Errorf("journal decision: %v", err)
	}
	if !d.Allowed {
		e.log.Infof("trade %s %s rejected: %v", trade.Symbol, trade.Action, d.Reasons())
	}
	return res
}

// exposuresLocked merges caller-visible position cost bases with exposure
// reserved for approved-but-unfilled trades.
func (e *Engine) exposuresLocked(positions []risk.OpenPosition) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(positions)+len(e.reservations))
	for _, p := range positions {
		out = append(out, p.CostBasis)
	}
	for _, cost := range e.reservations {
		out = append(out, cost)
	}
	return out
}

// ReleaseExposure frees a reservation after the order fills or is
// cancelled. Unknown IDs are ignored; a double release must not free
// someone else's headroom.
func (e *Engine) ReleaseExposure(reservationID string) {
	e.mu.Lock()
	_, ok := e.reservations[reservationID]
	if ok {
		delete(e.reservations, reservationID)
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	if ok {
		e.enqueueSave(snap)
	}
}

// RecordTradeLoss reports a realized loss. It feeds both the daily and
// weekly accumulators, trips the circuit breaker when the daily limit is
// reached and emits the corresponding emergency bundle, exactly once per
// episode even when concurrent losses cross the threshold together.
func (e *Engine) RecordTradeLoss(amount decimal.Decimal) {
	now := e.clock()

	e.mu.Lock()
	e.guard.RecordLoss(amount)
	e.guard.RecordWeeklyLoss(amount)

	var bundles []Bundle
	// The episode flag, not the breaker transition, gates emission: with the
	// weekly governor holding the breaker open across a day rollover, a
	// fresh daily-limit crossing must still fire its bundle.
	if e.guard.DailyLossLimitHit() && !e.dailyEpisodeFired {
		e.brk.Trip()
		e.dailyEpisodeFired = true
		bundles = append(bundles, e.newBundleLocked(TriggerDailyLoss, now))
	}
	if e.guard.WeeklyGovernorActive() && !e.weeklyEpisodeFired {
		e.weeklyEpisodeFired = true
		bundles = append(bundles, e.newBundleLocked(TriggerWeeklyGovernor, now))
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.enqueueSave(snap)
	e.recordLossEvent(journal.ScopeDaily, amount, false, now)
	e.dispatch(bundles)
}

// RecordTradeGain reports a realized gain. Gains never unwind the daily
// loss total.
func (e *Engine) RecordTradeGain(amount decimal.Decimal) {
	e.mu.Lock()
	e.guard.RecordGain(amount)
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.enqueueSave(snap)
	e.recordLossEvent(journal.ScopeDaily, amount, true, e.clock())
}

// RecordDayTrade registers a completed day trade with the PDT tracker.
func (e *Engine) RecordDayTrade(t time.Time) {
	e.mu.Lock()
	e.tracker.RecordDayTrade(t)
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.enqueueSave(snap)
}

// RecordPivot counts an intraday strategy pivot.
func (e *Engine) RecordPivot() {
	e.mu.Lock()
	e.guard.RecordPivot()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.enqueueSave(snap)
}

// SetDataQuarantine flags or clears suspect market data.
func (e *Engine) SetDataQuarantine(on bool) {
	e.mu.Lock()
	e.guard.SetDataQuarantine(on)
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.enqueueSave(snap)
}

// GatewayDisconnected reports loss of the broker gateway. Working orders
// are cancelled and a human alerted; positions are left alone. Repeat
// notifications within the same outage are ignored.
func (e *Engine) GatewayDisconnected() {
	now := e.clock()
	e.mu.Lock()
	var bundles []Bundle
	if !e.gatewayDown {
		e.gatewayDown = true
		bundles = append(bundles, e.newBundleLocked(TriggerGatewayDisconnect, now))
	}
	e.mu.Unlock()
	e.dispatch(bundles)
}

// GatewayReconnected closes the disconnect episode so a future outage
// emits a fresh bundle.
func (e *Engine) GatewayReconnected() {
	e.mu.Lock()
	e.gatewayDown = false
	e.mu.Unlock()
}

// StartNewDay rolls the engine into a new trading day: daily accumulators
// reset and the breaker may close, but only if the weekly governor is not
// still live.
func (e *Engine) StartNewDay() {
	e.mu.Lock()
	e.guard.AdvanceDay()
	reopened := e.brk.StartNewDay(e.guard.WeeklyGovernorActive())
	e.dailyEpisodeFired = false
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.enqueueSave(snap)
	if reopened {
		e.log.Info("new trading day: circuit breaker closed, trading resumes")
	}
}

// StartNewWeek clears the weekly governor at the Monday boundary and then
// performs the daily rollover.
func (e *Engine) StartNewWeek() {
	e.mu.Lock()
	e.guard.StartNewWeek()
	e.brk.StartNewDay(false)
	e.dailyEpisodeFired = false
	e.weeklyEpisodeFired = false
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.enqueueSave(snap)
}

// RequiredStrategy reports the mandatory strategy mode and the active
// trigger reasons. Lock-free snapshot: do not base an approval on it,
// PreTradeCheck re-validates under the lock.
func (e *Engine) RequiredStrategy() (risk.Mode, []string) {
	return e.guard.RequiredStrategy()
}

// DailyLosses returns the current daily realized-loss total.
func (e *Engine) DailyLosses() decimal.Decimal { return e.guard.DailyLosses() }

// CircuitOpen reports whether the breaker is halting new entries.
func (e *Engine) CircuitOpen() bool { return e.brk.IsOpen() }

// DayTradesRemaining reports PDT headroom as of now.
func (e *Engine) DayTradesRemaining(asOf time.Time) int {
	return e.tracker.Remaining(asOf)
}

// ShouldForceClose reports whether a contract expiring at expiry must be
// closed as of now, with the day boundary taken in the exchange timezone.
func (e *Engine) ShouldForceClose(expiry, now time.Time) bool {
	return e.limits.ShouldForceClose(e.cal.DaysToExpiry(expiry, now))
}

// PositionsToForceClose filters the supplied positions down to those at
// or under the force-close DTE threshold.
func (e *Engine) PositionsToForceClose(positions []risk.OpenPosition) []risk.OpenPosition {
	var out []risk.OpenPosition
	for _, p := range positions {
		if e.limits.ShouldForceClose(p.DaysToExpiry) {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) newBundleLocked(t Trigger, now time.Time) Bundle {
	return Bundle{
		ID:         id.New(),
		Trigger:    t,
		Time:       now,
		Directives: directivesFor(t),
	}
}

// dispatch executes emergency bundles outside the engine lock. Broker and
// notifier failures are logged, never propagated: the worst case must
// remain "trading is halted", not a crashed host.
func (e *Engine) dispatch(bundles []Bundle) {
	for _, b := range bundles {
		e.log.Warnf("%s", b)
		rec := journal.EmergencyRecord{ID: b.ID, Time: b.Time, Trigger: string(b.Trigger)}
		for _, d := range b.Directives {
			rec.Directives = append(rec.Directives, string(d))
		}
		if err := e.jrnl.RecordEmergency(rec); err != nil {
			e.log.Errorf("journal emergency: %v", err)
		}
		for _, d := range b.Directives {
			var err error
			switch d {
			case CloseAllPositions:
				err = e.broker.CloseAllPositions(string(b.Trigger))
			case CancelAllOrders:
				err = e.broker.CancelAllOrders(string(b.Trigger))
			case SendAlert:
				err = e.notifier.Alert(b)
			}
			if err != nil {
				e.log.Errorf("emergency directive %s: %v", d, err)
			}
		}
	}
}

func (e *Engine) recordLossEvent(scope journal.LossScope, amount decimal.Decimal, gain bool, now time.Time) {
	rec := journal.LossRecord{
		ID:     id.New(),
		Time:   now,
		Scope:  scope,
		Amount: amount,
		Gain:   gain,
	}
	if err := e.jrnl.RecordLoss(rec); err != nil {
		e.log.Errorf("journal loss event: %v", err)
	}
}

// Snapshot captures the full persisted aggregate.
func (e *Engine) Snapshot() state.RiskState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() state.RiskState {
	res := make(map[string]decimal.Decimal, len(e.reservations))
	for k, v := range e.reservations {
		res[k] = v
	}
	return state.RiskState{
		Guard:        e.guard.Export(),
		PDT:          e.tracker.Export(),
		Breaker:      e.brk.State(),
		Reservations: res,
		LastUpdated:  e.clock().UTC(),
	}
}

// Restore hydrates the engine from a persisted aggregate.
func (e *Engine) Restore(st state.RiskState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guard.Restore(st.Guard)
	e.tracker.Import(st.PDT)
	e.brk = breaker.New(st.Breaker)
	e.reservations = make(map[string]decimal.Decimal, len(st.Reservations))
	for k, v := range st.Reservations {
		e.reservations[k] = v
	}
	// A restored engine whose daily limit is already hit is mid-episode;
	// do not re-fire its emergency bundle.
	e.dailyEpisodeFired = e.guard.DailyLossLimitHit()
	e.weeklyEpisodeFired = e.guard.WeeklyGovernorActive()
}

// Checkpoint synchronously persists the current state.
func (e *Engine) Checkpoint() error {
	return e.store.Save(e.Snapshot())
}

// enqueueSave hands a snapshot to the persistence goroutine. It never
// blocks the trade path: when the buffer is full the snapshot is dropped,
// which is safe because a newer one always follows.
func (e *Engine) enqueueSave(st state.RiskState) {
	select {
	case e.saveCh <- st:
	case <-e.done:
	default:
		e.log.Debug("state save buffer full; dropping intermediate snapshot")
	}
}

func (e *Engine) saveLoop() {
	defer close(e.loopDone)
	for {
		select {
		case st := <-e.saveCh:
			if err := e.store.Save(st); err != nil {
				e.log.Errorf("persist risk state: %v", err)
			}
		case <-e.done:
			// Drain whatever is buffered, then stop.
			for {
				select {
				case st := <-e.saveCh:
					if err := e.store.Save(st); err != nil {
						e.log.Errorf("persist risk state: %v", err)
					}
				default:
					return
				}
			}
		}
	}
}

// Close flushes persistence, writes a final checkpoint and closes the
// journal.
func (e *Engine) Close() error {
	close(e.done)
	// Wait for the save goroutine to finish its drain; the final checkpoint
	// must be the last write, not racing a stale buffered snapshot.
	<-e.loopDone
	if err := e.Checkpoint(); err != nil {
		e.log.Errorf("final checkpoint: %v", err)
	}
	return e.jrnl.Close()
}
