package risk

import "github.com/shopspring/decimal"

// Limits holds the account-level risk parameters. They are fixed for the
// lifetime of a session; a gameplan may tighten them but never loosen them.
type Limits struct {
	AccountBalance decimal.Decimal

	MaxPositionPct       decimal.Decimal // 0.20
	MaxRiskPct           decimal.Decimal // 0.03
	MaxDailyLossPct      decimal.Decimal // 0.10
	MaxWeeklyDrawdownPct decimal.Decimal // 0.15

	PDTLimit          int // day trades per 5 business days
	ForceCloseDTE     int // close anything at or under this many days to expiry
	MaxIntradayPivots int
}

// DefaultLimits returns the standard account parameters for the given balance.
func DefaultLimits(balance decimal.Decimal) Limits {
	return Limits{
		AccountBalance:       balance,
		MaxPositionPct:       decimal.NewFromFloat(0.20),
		MaxRiskPct:           decimal.NewFromFloat(0.03),
		MaxDailyLossPct:      decimal.NewFromFloat(0.10),
		MaxWeeklyDrawdownPct: decimal.NewFromFloat(0.15),
		PDTLimit:             3,
		ForceCloseDTE:        3,
		MaxIntradayPivots:    2,
	}
}

// PositionLimit is the largest dollar cost a single position may carry.
func (l Limits) PositionLimit() decimal.Decimal {
	return l.AccountBalance.Mul(l.MaxPositionPct)
}

// RiskLimit is the largest dollar amount a single trade may put at risk.
func (l Limits) RiskLimit() decimal.Decimal {
	return l.AccountBalance.Mul(l.MaxRiskPct)
}

// DailyLossLimit is the realized-loss total that halts the day.
func (l Limits) DailyLossLimit() decimal.Decimal {
	return l.AccountBalance.Mul(l.MaxDailyLossPct)
}

// WeeklyDrawdownLimit is the realized-loss total that halts the week.
func (l Limits) WeeklyDrawdownLimit() decimal.Decimal {
	return l.AccountBalance.Mul(l.MaxWeeklyDrawdownPct)
}
