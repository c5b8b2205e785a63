package risk

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Guard tracks realized losses per trading day and week and derives the
// strategy mode the rest of the system must obey.
//
// The daily accumulator is intentionally monotonic: gains never reduce it,
// which closes the "lose big, win a little, reset the clock" exploit. The
// weekly drawdown governor is sticky for the remainder of the calendar
// week; AdvanceDay never clears it, only StartNewWeek does.
type Guard struct {
	mu sync.Mutex

	limits Limits

	dailyLosses  decimal.Decimal
	dailyGains   decimal.Decimal
	weeklyLosses decimal.Decimal

	weeklyGovernor bool
	pivotCount     int
	dataQuarantine bool
}

func NewGuard(limits Limits) *Guard {
	return &Guard{
		limits:       limits,
		dailyLosses:  decimal.Zero,
		dailyGains:   decimal.Zero,
		weeklyLosses: decimal.Zero,
	}
}

// RecordLoss adds a realized loss (a positive dollar amount) to the daily
// total. Zero or negative amounts are ignored.
func (g *Guard) RecordLoss(amount decimal.Decimal) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyLosses = g.dailyLosses.Add(amount)
}

// RecordGain records a realized gain. It never reduces the daily loss
// total; it is tracked separately for reporting only.
func (g *Guard) RecordGain(amount decimal.Decimal) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyGains = g.dailyGains.Add(amount)
}

// RecordWeeklyLoss adds a realized loss to the weekly total and activates
// the weekly governor once the drawdown limit is reached.
func (g *Guard) RecordWeeklyLoss(amount decimal.Decimal) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.weeklyLosses = g.weeklyLosses.Add(amount)
	if g.weeklyLosses.GreaterThanOrEqual(g.limits.WeeklyDrawdownLimit()) {
		g.weeklyGovernor = true
	}
}

func (g *Guard) DailyLosses() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dailyLosses
}

func (g *Guard) WeeklyLosses() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.weeklyLosses
}

// DailyLossLimitHit reports whether the daily loss total is at or above
// the limit. The boundary is inclusive: a total exactly at the limit hits.
func (g *Guard) DailyLossLimitHit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dailyLosses.GreaterThanOrEqual(g.limits.DailyLossLimit())
}

func (g *Guard) WeeklyGovernorActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.weeklyGovernor
}

// ResetDaily clears the daily accumulators. Call only at the start of a
// new trading day, never mid-day.
func (g *Guard) ResetDaily() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetDailyLocked()
}

func (g *Guard) resetDailyLocked() {
	g.dailyLosses = decimal.Zero
	g.dailyGains = decimal.Zero
	g.pivotCount = 0
}

// AdvanceDay rolls the guard into a new trading day. The weekly governor
// survives; only StartNewWeek clears it.
func (g *Guard) AdvanceDay() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetDailyLocked()
}

// StartNewWeek resets both the daily and weekly accumulators and releases
// the weekly governor. Call at the Monday boundary.
func (g *Guard) StartNewWeek() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetDailyLocked()
	g.weeklyLosses = decimal.Zero
	g.weeklyGovernor = false
}

// RecordPivot counts an intraday strategy pivot.
func (g *Guard) RecordPivot() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pivotCount++
}

func (g *Guard) PivotCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pivotCount
}

// SetDataQuarantine flags (or clears) suspect market data. While set, the
// fail-safe strategy is mandatory.
func (g *Guard) SetDataQuarantine(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dataQuarantine = on
}

func (g *Guard) DataQuarantined() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dataQuarantine
}

// RequiredStrategy resolves the mandatory strategy mode from the current
// trigger set. The resolution is a pure OR: any active trigger forces
// ModeFailSafe, and all active trigger reasons are reported together.
func (g *Guard) RequiredStrategy() (Mode, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var reasons []string
	if g.dailyLosses.GreaterThanOrEqual(g.limits.DailyLossLimit()) {
		reasons = append(reasons, ReasonDailyLossLimit)
	}
	if g.weeklyGovernor {
		reasons = append(reasons, ReasonWeeklyGovernor)
	}
	if g.dataQuarantine {
		reasons = append(reasons, ReasonDataQuarantine)
	}
	if g.pivotCount >= g.limits.MaxIntradayPivots {
		reasons = append(reasons, ReasonPivotLimit)
	}
	if len(reasons) > 0 {
		return ModeFailSafe, reasons
	}
	return ModeNormal, nil
}

// AllowOrder is the pre-order gate. Under fail-safe only closing orders
// pass; opening orders are rejected with ReasonFailSafeActive.
func (g *Guard) AllowOrder(isClosing bool) (bool, string) {
	mode, _ := g.RequiredStrategy()
	if mode == ModeFailSafe && !isClosing {
		return false, ReasonFailSafeActive
	}
	return true, ""
}

// GuardState is the persistable slice of the guard.
type GuardState struct {
	DailyLosses    decimal.Decimal `json:"daily_losses"`
	DailyGains     decimal.Decimal `json:"daily_gains"`
	WeeklyLosses   decimal.Decimal `json:"weekly_losses"`
	WeeklyGovernor bool            `json:"weekly_governor"`
	PivotCount     int             `json:"pivot_count"`
	DataQuarantine bool            `json:"data_quarantine"`
}

// Export captures the guard state for persistence.
func (g *Guard) Export() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GuardState{
		DailyLosses:    g.dailyLosses,
		DailyGains:     g.dailyGains,
		WeeklyLosses:   g.weeklyLosses,
		WeeklyGovernor: g.weeklyGovernor,
		PivotCount:     g.pivotCount,
		DataQuarantine: g.dataQuarantine,
	}
}

// Restore hydrates the guard from persisted state.
func (g *Guard) Restore(st GuardState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyLosses = st.DailyLosses
	g.dailyGains = st.DailyGains
	g.weeklyLosses = st.WeeklyLosses
	g.weeklyGovernor = st.WeeklyGovernor
	g.pivotCount = st.PivotCount
	g.dataQuarantine = st.DataQuarantine
}
