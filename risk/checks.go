package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Check names, in pipeline order.
const (
	CheckStrategyOverride  = "strategy_override"
	CheckPDT               = "pdt"
	CheckDailyLoss         = "daily_loss"
	CheckWeeklyGovernor    = "weekly_governor"
	CheckPositionSize      = "position_size"
	CheckTradeRisk         = "trade_risk"
	CheckAggregateExposure = "aggregate_exposure"
)

// CheckInput is a snapshot of everything outside the trade itself that the
// pipeline consults. The engine assembles it under its lock so the whole
// evaluation sees one consistent view.
type CheckInput struct {
	RequiredMode    Mode
	FailSafeReasons []string
	CircuitOpen     bool

	PDTAllowed   bool
	PDTRemaining int

	DailyLossLimitHit    bool
	WeeklyGovernorActive bool

	// Cost bases of open positions plus any exposure already reserved for
	// approved-but-unfilled trades.
	OpenCostBases []decimal.Decimal
}

// Evaluate runs the full ordered pre-trade pipeline. Every check runs and
// every failure is collected; a caller reading the Decision sees the
// complete rejection picture, not just the first reason.
//
// Checks that only constrain opening orders pass trivially for closing
// orders: under fail-safe the whole point is that closing remains allowed.
func Evaluate(limits Limits, trade ProposedTrade, in CheckInput) Decision {
	d := Decision{Allowed: true}
	sizer := NewPositionSizer(limits)

	malformed := trade.Premium.LessThanOrEqual(decimal.Zero) || trade.Quantity <= 0 || trade.Multiplier <= 0

	// strategy_override: fail-safe mandate and the circuit breaker both
	// gate new entries here.
	d.ran(CheckStrategyOverride)
	if !trade.IsClosing {
		if in.RequiredMode == ModeFailSafe {
			d.add(ReasonFailSafeActive,
				fmt.Sprintf("fail-safe strategy mandated (%v); only closing orders permitted", in.FailSafeReasons))
		}
		if in.CircuitOpen {
			d.add(ReasonCircuitOpen, "circuit breaker is open; new entries halted")
		}
	}

	d.ran(CheckPDT)
	if !trade.IsClosing && !in.PDTAllowed {
		d.add(ReasonPDTLimit,
			fmt.Sprintf("day-trade limit reached; %d remaining in window", in.PDTRemaining))
	}

	d.ran(CheckDailyLoss)
	if !trade.IsClosing && in.DailyLossLimitHit {
		d.add(ReasonDailyLossLimit, "daily realized loss limit reached")
	}

	d.ran(CheckWeeklyGovernor)
	if !trade.IsClosing && in.WeeklyGovernorActive {
		d.add(ReasonWeeklyGovernor, "weekly drawdown governor active")
	}

	cost := trade.Cost()

	d.ran(CheckPositionSize)
	if !trade.IsClosing {
		if malformed {
			d.add(ReasonBadTrade, "premium, quantity and multiplier must be positive")
		} else if !sizer.ValidatePositionSize(cost) {
			d.add(ReasonPositionTooLarge,
				fmt.Sprintf("cost %s exceeds position limit %s", cost, limits.PositionLimit()))
		}
	}

	d.ran(CheckTradeRisk)
	if !trade.IsClosing && !malformed {
		stop := trade.Premium.Mul(decimal.NewFromInt(1).Sub(trade.StopPct))
		tradeRisk := sizer.CalculateTradeRisk(trade.Premium, stop, trade.Multiplier, trade.Quantity)
		if !sizer.ValidateTradeRisk(tradeRisk) {
			d.add(ReasonRiskTooHigh,
				fmt.Sprintf("risk %s exceeds per-trade limit %s", tradeRisk, limits.RiskLimit()))
		}
	}

	d.ran(CheckAggregateExposure)
	if !trade.IsClosing && !malformed {
		if !sizer.ValidateAggregateExposure(in.OpenCostBases, cost) {
			d.add(ReasonAggregateExposure,
				fmt.Sprintf("aggregate exposure with cost %s exceeds limit %s", cost, limits.PositionLimit()))
		}
	}

	return d
}
