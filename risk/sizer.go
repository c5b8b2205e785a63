package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNegativeMultiplier is returned when a sizing multiplier is below zero.
var ErrNegativeMultiplier = errors.New("risk: multiplier must not be negative")

// PositionSizer validates proposed trade sizes against the account limits.
// Every boundary is inclusive: a cost exactly at the limit passes, one cent
// over fails. All arithmetic is decimal so $120.00 compares equal to the
// computed limit rather than drifting to $119.999999.
type PositionSizer struct {
	limits Limits
}

func NewPositionSizer(limits Limits) *PositionSizer {
	return &PositionSizer{limits: limits}
}

// ValidatePositionSize reports whether cost fits within the single-position
// limit. Negative costs are bad data and never pass; zero is valid.
func (s *PositionSizer) ValidatePositionSize(cost decimal.Decimal) bool {
	if cost.IsNegative() {
		return false
	}
	return cost.LessThanOrEqual(s.limits.PositionLimit())
}

// ValidateTradeRisk reports whether the dollar risk fits within the
// per-trade risk limit.
func (s *PositionSizer) ValidateTradeRisk(risk decimal.Decimal) bool {
	if risk.IsNegative() {
		return false
	}
	return risk.LessThanOrEqual(s.limits.RiskLimit())
}

// CalculateTradeRisk returns the dollars lost if the stop is hit:
// (entry - stop) * multiplier * qty.
func (s *PositionSizer) CalculateTradeRisk(entry, stop decimal.Decimal, multiplier, qty int) decimal.Decimal {
	return entry.Sub(stop).
		Mul(decimal.NewFromInt(int64(multiplier))).
		Mul(decimal.NewFromInt(int64(qty)))
}

// Affordability is the result of CheckAffordability.
type Affordability struct {
	Affordable   bool
	MaxContracts int
}

// CheckAffordability reports whether at least one contract at the given
// premium fits the position limit, and how many would. A premium at or
// below zero is treated as bad data, never as a free trade.
func (s *PositionSizer) CheckAffordability(premium decimal.Decimal, multiplier int) Affordability {
	if premium.LessThanOrEqual(decimal.Zero) || multiplier <= 0 {
		return Affordability{}
	}
	contractCost := premium.Mul(decimal.NewFromInt(int64(multiplier)))
	max := s.limits.PositionLimit().Div(contractCost).Floor()
	n := int(max.IntPart())
	return Affordability{Affordable: n >= 1, MaxContracts: n}
}

// ApplyMultiplier scales a base dollar limit by a sizing multiplier.
// The multiplier is clamped to [0, 1]: values above 1 are capped so a
// signal can never amplify beyond the base limit. Negative values are
// a caller bug and return ErrNegativeMultiplier.
func (s *PositionSizer) ApplyMultiplier(base decimal.Decimal, multiplier decimal.Decimal) (decimal.Decimal, error) {
	if multiplier.IsNegative() {
		return decimal.Zero, ErrNegativeMultiplier
	}
	one := decimal.NewFromInt(1)
	if multiplier.GreaterThan(one) {
		multiplier = one
	}
	return base.Mul(multiplier), nil
}

// ValidateAggregateExposure reports whether the sum of existing cost bases
// plus the new cost stays within the position limit. This is a pure
// function; the engine serializes the read-modify-write around it.
func (s *PositionSizer) ValidateAggregateExposure(openCostBases []decimal.Decimal, newCost decimal.Decimal) bool {
	if newCost.IsNegative() {
		return false
	}
	total := newCost
	for _, cb := range openCostBases {
		total = total.Add(cb)
	}
	return total.LessThanOrEqual(s.limits.PositionLimit())
}
