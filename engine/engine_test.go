package engine

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optrisk/breaker"
	"optrisk/risk"
	"optrisk/state"
)

type fakeBroker struct {
	mu        sync.Mutex
	closeAll  int
	cancelAll int
}

func (b *fakeBroker) CloseAllPositions(string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeAll++
	return nil
}

func (b *fakeBroker) CancelAllOrders(string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelAll++
	return nil
}

func (b *fakeBroker) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeAll, b.cancelAll
}

type fakeNotifier struct {
	mu      sync.Mutex
	bundles []Bundle
}

func (n *fakeNotifier) Alert(b Bundle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bundles = append(n.bundles, b)
	return nil
}

func (n *fakeNotifier) alerts() []Bundle {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Bundle(nil), n.bundles...)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	limits := risk.DefaultLimits(decimal.NewFromInt(600))
	e := New(limits, opts)
	t.Cleanup(func() { e.Close() })
	return e
}

func openTrade(premium string, qty int) risk.ProposedTrade {
	return risk.ProposedTrade{
		Symbol:     "SPY",
		Action:     risk.Buy,
		Premium:    d(premium),
		Multiplier: 100,
		Quantity:   qty,
		StopPct:    d("0.20"),
	}
}

func TestPreTradeCheck_Approves(t *testing.T) {
	e := testEngine(t, Options{})

	res := e.PreTradeCheck(openTrade("0.50", 1), AccountSnapshot{})
	assert.True(t, res.Allowed, "reasons: %v", res.Reasons())
	assert.NotEmpty(t, res.ReservationID)
	assert.Len(t, res.ChecksRun, 7)
}

func TestPreTradeCheck_ReservationHoldsExposure(t *testing.T) {
	e := testEngine(t, Options{})

	first := e.PreTradeCheck(openTrade("0.80", 1), AccountSnapshot{})
	require.True(t, first.Allowed)

	// $80 reserved; another $80 would bust the $120 aggregate limit.
	second := e.PreTradeCheck(openTrade("0.80", 1), AccountSnapshot{})
	assert.False(t, second.Allowed)
	assert.Contains(t, second.Reasons(), risk.ReasonAggregateExposure)

	// Cancelling the first order frees the headroom.
	e.ReleaseExposure(first.ReservationID)
	third := e.PreTradeCheck(openTrade("0.80", 1), AccountSnapshot{})
	assert.True(t, third.Allowed)
}

func TestPreTradeCheck_ConcurrentAggregate(t *testing.T) {
	// Two concurrent $80 proposals against a $120 limit: each would pass
	// alone, so serialization must let through at most one.
	e := testEngine(t, Options{})

	const goroutines = 2
	start := make(chan struct{})
	results := make([]CheckResult, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = e.PreTradeCheck(openTrade("0.80", 1), AccountSnapshot{})
		}(i)
	}
	close(start)
	wg.Wait()

	approved := 0
	for _, r := range results {
		if r.Allowed {
			approved++
		}
	}
	assert.Equal(t, 1, approved, "exactly one of the racing proposals may pass")
}

func TestRecordTradeLoss_TripsBreakerOnce(t *testing.T) {
	broker := &fakeBroker{}
	notifier := &fakeNotifier{}
	e := testEngine(t, Options{Broker: broker, Notifier: notifier})

	e.RecordTradeLoss(d("59.99"))
	assert.False(t, e.CircuitOpen())
	closeAll, _ := broker.counts()
	assert.Zero(t, closeAll)

	e.RecordTradeLoss(d("0.02")) // daily total 60.01, limit 60.00
	assert.True(t, e.CircuitOpen())

	// A further loss in the same episode must not re-fire the directives.
	e.RecordTradeLoss(d("5.00"))

	closeAll, cancelAll := broker.counts()
	assert.Equal(t, 1, closeAll, "close-all fires exactly once per episode")
	assert.Equal(t, 1, cancelAll)

	alerts := notifier.alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, TriggerDailyLoss, alerts[0].Trigger)
	assert.NotEmpty(t, alerts[0].ID)
	assert.False(t, alerts[0].Time.IsZero())
}

func TestWeeklyGovernor_KeepsBreakerOpenAcrossDays(t *testing.T) {
	notifier := &fakeNotifier{}
	e := testEngine(t, Options{Notifier: notifier})

	// 90.00 in losses hits both the daily (60) and weekly (90) limits.
	e.RecordTradeLoss(d("90.00"))
	assert.True(t, e.CircuitOpen())

	mode, reasons := e.RequiredStrategy()
	assert.Equal(t, risk.ModeFailSafe, mode)
	assert.Contains(t, reasons, risk.ReasonWeeklyGovernor)

	// Daily reset is necessary but not sufficient: the governor is live.
	e.StartNewDay()
	assert.True(t, e.CircuitOpen())

	e.StartNewDay()
	assert.True(t, e.CircuitOpen())

	e.StartNewWeek()
	assert.False(t, e.CircuitOpen())
	mode, _ = e.RequiredStrategy()
	assert.Equal(t, risk.ModeNormal, mode)

	// One bundle for the daily trip, one for the governor.
	assert.Len(t, notifier.alerts(), 2)
}

func TestDailyLossEpisode_FiresAgainUnderGovernor(t *testing.T) {
	broker := &fakeBroker{}
	notifier := &fakeNotifier{}
	e := testEngine(t, Options{Broker: broker, Notifier: notifier})

	// Day 1: 90.00 busts the daily (60) and weekly (90) limits.
	e.RecordTradeLoss(d("90.00"))
	closeAll, _ := broker.counts()
	require.Equal(t, 2, closeAll, "daily and governor bundles on day 1")

	// The governor keeps the breaker open across the rollover, but the
	// daily episode is over.
	e.StartNewDay()
	require.True(t, e.CircuitOpen())
	require.True(t, e.DailyLosses().IsZero())

	// Day 2: a fresh daily-limit crossing is a new episode and must emit
	// its bundle even though the breaker never transitioned.
	e.RecordTradeLoss(d("60.00"))
	closeAll, _ = broker.counts()
	assert.Equal(t, 3, closeAll, "day-2 daily-loss episode fires close-all")

	var daily int
	for _, b := range notifier.alerts() {
		if b.Trigger == TriggerDailyLoss {
			daily++
		}
	}
	assert.Equal(t, 2, daily, "one daily-loss alert per day")
}

func TestStartNewDay_ClosesBreaker(t *testing.T) {
	e := testEngine(t, Options{})

	e.RecordTradeLoss(d("60.00"))
	require.True(t, e.CircuitOpen())

	e.StartNewDay()
	assert.False(t, e.CircuitOpen())
	assert.True(t, e.DailyLosses().IsZero())

	res := e.PreTradeCheck(openTrade("0.50", 1), AccountSnapshot{})
	assert.True(t, res.Allowed, "reasons: %v", res.Reasons())
}

func TestGainsNeverResetTheClock(t *testing.T) {
	e := testEngine(t, Options{})

	e.RecordTradeLoss(d("40.00"))
	e.RecordTradeGain(d("20.00"))
	assert.True(t, e.DailyLosses().Equal(d("40.00")))
}

func TestGatewayDisconnect_CancelsButDoesNotLiquidate(t *testing.T) {
	broker := &fakeBroker{}
	notifier := &fakeNotifier{}
	e := testEngine(t, Options{Broker: broker, Notifier: notifier})

	e.GatewayDisconnected()
	e.GatewayDisconnected() // same outage, no second bundle

	closeAll, cancelAll := broker.counts()
	assert.Zero(t, closeAll, "positions may be fine; do not liquidate blind")
	assert.Equal(t, 1, cancelAll)
	require.Len(t, notifier.alerts(), 1)
	assert.Equal(t, TriggerGatewayDisconnect, notifier.alerts()[0].Trigger)

	// After a reconnect a fresh outage is a fresh episode.
	e.GatewayReconnected()
	e.GatewayDisconnected()
	_, cancelAll = broker.counts()
	assert.Equal(t, 2, cancelAll)
}

func TestPDTFlow(t *testing.T) {
	e := testEngine(t, Options{})
	now := time.Date(2025, time.June, 11, 14, 0, 0, 0, time.UTC) // Wednesday

	for i := 0; i < 3; i++ {
		e.RecordDayTrade(now)
	}
	assert.Equal(t, 0, e.DayTradesRemaining(now))

	res := e.PreTradeCheck(openTrade("0.50", 1), AccountSnapshot{Now: now})
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reasons(), risk.ReasonPDTLimit)

	closing := openTrade("0.50", 1)
	closing.IsClosing = true
	res = e.PreTradeCheck(closing, AccountSnapshot{Now: now})
	assert.True(t, res.Allowed, "closing the position that opened the day trade must work")
}

func TestForceClose(t *testing.T) {
	e := testEngine(t, Options{})

	positions := []risk.OpenPosition{
		{Symbol: "SPY", CostBasis: d("50.00"), DaysToExpiry: 10},
		{Symbol: "QQQ", CostBasis: d("30.00"), DaysToExpiry: 3},
		{Symbol: "IWM", CostBasis: d("20.00"), DaysToExpiry: -1},
	}
	got := e.PositionsToForceClose(positions)
	require.Len(t, got, 2)
	assert.Equal(t, "QQQ", got[0].Symbol)
	assert.Equal(t, "IWM", got[1].Symbol)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	e := testEngine(t, Options{})
	e.RecordTradeLoss(d("90.00"))
	e.RecordPivot()
	e.SetDataQuarantine(true)
	now := time.Date(2025, time.June, 11, 14, 0, 0, 0, time.UTC)
	e.RecordDayTrade(now)

	snap := e.Snapshot()

	e2 := testEngine(t, Options{})
	e2.Restore(snap)

	assert.True(t, e2.CircuitOpen())
	assert.True(t, e2.DailyLosses().Equal(d("90.00")))
	assert.Equal(t, 2, e2.DayTradesRemaining(now))

	mode, reasons := e2.RequiredStrategy()
	assert.Equal(t, risk.ModeFailSafe, mode)
	assert.Contains(t, reasons, risk.ReasonDataQuarantine)
}

func TestRestore_DoesNotRefireEpisode(t *testing.T) {
	e := testEngine(t, Options{})
	e.RecordTradeLoss(d("60.00"))
	snap := e.Snapshot()

	broker := &fakeBroker{}
	e2 := testEngine(t, Options{Broker: broker})
	e2.Restore(snap)

	// Mid-episode restore: further losses must not re-fire close-all.
	e2.RecordTradeLoss(d("5.00"))
	closeAll, _ := broker.counts()
	assert.Zero(t, closeAll)
}

func TestNewFromStore_CorruptBlobMeansFailSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk_state.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	limits := risk.DefaultLimits(decimal.NewFromInt(600))
	e, restored := NewFromStore(limits, Options{Store: state.NewFileStore(path)})
	defer e.Close()

	assert.False(t, restored)
	assert.True(t, e.CircuitOpen())

	mode, _ := e.RequiredStrategy()
	assert.Equal(t, risk.ModeFailSafe, mode)

	res := e.PreTradeCheck(openTrade("0.50", 1), AccountSnapshot{})
	assert.False(t, res.Allowed)

	closing := openTrade("0.50", 1)
	closing.IsClosing = true
	assert.True(t, e.PreTradeCheck(closing, AccountSnapshot{}).Allowed)
}

func TestCheckpointAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk_state.json")
	store := state.NewFileStore(path)

	limits := risk.DefaultLimits(decimal.NewFromInt(600))
	e := New(limits, Options{Store: store})
	e.RecordTradeLoss(d("45.00"))
	require.NoError(t, e.Checkpoint())
	require.NoError(t, e.Close())

	e2, restored := NewFromStore(limits, Options{Store: store})
	defer e2.Close()
	assert.True(t, restored)
	assert.True(t, e2.DailyLosses().Equal(d("45.00")))
	assert.False(t, e2.CircuitOpen())
}

func TestClose_FinalCheckpointWins(t *testing.T) {
	store := state.NewMemStore()
	limits := risk.DefaultLimits(decimal.NewFromInt(600))
	e := New(limits, Options{Store: store})

	// Flood the save buffer so snapshots are still in flight at Close.
	for i := 0; i < 200; i++ {
		e.RecordTradeLoss(d("0.01"))
	}
	require.NoError(t, e.Close())

	st, err := store.Load()
	require.NoError(t, err)
	assert.True(t, st.Guard.DailyLosses.Equal(d("2.00")),
		"store holds the final total, not a stale buffered snapshot (got %s)",
		st.Guard.DailyLosses)
}

func TestSnapshot_IncludesBreakerState(t *testing.T) {
	e := testEngine(t, Options{})
	e.RecordTradeLoss(d("60.00"))

	snap := e.Snapshot()
	assert.Equal(t, breaker.Open, snap.Breaker)
	assert.True(t, snap.Guard.WeeklyLosses.Equal(d("60.00")))
}
