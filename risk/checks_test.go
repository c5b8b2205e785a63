package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func openTrade(premium string, qty int) ProposedTrade {
	return ProposedTrade{
		Symbol:     "SPY",
		Action:     Buy,
		Premium:    d(premium),
		Multiplier: 100,
		Quantity:   qty,
		StopPct:    d("0.25"),
	}
}

func TestEvaluate_CleanApproval(t *testing.T) {
	t.Parallel()

	dec := Evaluate(testLimits(), openTrade("0.50", 1), CheckInput{
		RequiredMode: ModeNormal,
		PDTAllowed:   true,
	})

	assert.True(t, dec.Allowed)
	assert.Empty(t, dec.Violations)
	assert.Equal(t, []string{
		CheckStrategyOverride, CheckPDT, CheckDailyLoss, CheckWeeklyGovernor,
		CheckPositionSize, CheckTradeRisk, CheckAggregateExposure,
	}, dec.ChecksRun)
}

func TestEvaluate_CollectsEveryFailure(t *testing.T) {
	t.Parallel()

	// A trade that is too big while fail-safe is mandated, the breaker is
	// open, PDT is exhausted and both loss limits are hit: the decision
	// must carry all of it, not just the first reason.
	in := CheckInput{
		RequiredMode:         ModeFailSafe,
		FailSafeReasons:      []string{ReasonDailyLossLimit},
		CircuitOpen:          true,
		PDTAllowed:           false,
		DailyLossLimitHit:    true,
		WeeklyGovernorActive: true,
	}
	dec := Evaluate(testLimits(), openTrade("2.00", 5), in) // cost $1000

	assert.False(t, dec.Allowed)
	assert.Equal(t, []string{
		ReasonFailSafeActive,
		ReasonCircuitOpen,
		ReasonPDTLimit,
		ReasonDailyLossLimit,
		ReasonWeeklyGovernor,
		ReasonPositionTooLarge,
		ReasonRiskTooHigh,
		ReasonAggregateExposure,
	}, dec.Reasons())
	assert.Len(t, dec.ChecksRun, 7, "every check still runs")
}

func TestEvaluate_ClosingOrderPassesUnderFailSafe(t *testing.T) {
	t.Parallel()

	in := CheckInput{
		RequiredMode:         ModeFailSafe,
		FailSafeReasons:      []string{ReasonWeeklyGovernor},
		CircuitOpen:          true,
		PDTAllowed:           false,
		DailyLossLimitHit:    true,
		WeeklyGovernorActive: true,
	}
	trade := openTrade("2.00", 5)
	trade.Action = Sell
	trade.IsClosing = true

	dec := Evaluate(testLimits(), trade, in)
	assert.True(t, dec.Allowed, "fail-safe means close-only, not close-never: %v", dec.Reasons())
}

func TestEvaluate_MalformedTradeRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		trade ProposedTrade
	}{
		{"zero premium", openTrade("0", 1)},
		{"negative premium", openTrade("-1.00", 1)},
		{"zero quantity", openTrade("0.50", 0)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dec := Evaluate(testLimits(), tt.trade, CheckInput{RequiredMode: ModeNormal, PDTAllowed: true})
			assert.False(t, dec.Allowed)
			assert.Contains(t, dec.Reasons(), ReasonBadTrade)
		})
	}
}

func TestEvaluate_AggregateIncludesReserved(t *testing.T) {
	t.Parallel()

	in := CheckInput{
		RequiredMode:  ModeNormal,
		PDTAllowed:    true,
		OpenCostBases: []decimal.Decimal{d("80.00")},
	}
	// $80 proposed on top of $80 held busts the $120 limit even though the
	// trade alone would pass.
	trade := openTrade("0.80", 1)
	trade.StopPct = d("0.20") // risk $16, under the $18 per-trade limit
	dec := Evaluate(testLimits(), trade, in)

	assert.False(t, dec.Allowed)
	assert.Equal(t, []string{ReasonAggregateExposure}, dec.Reasons())
}
