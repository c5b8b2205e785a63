package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Mode is a trading strategy mode. ModeNormal means no mode is mandated;
// ModeFailSafe is the "no new risk, close only" mode forced by any active
// safety trigger.
type Mode string

const (
	ModeNormal        Mode = "normal"
	ModeMomentum      Mode = "momentum"
	ModeMeanReversion Mode = "mean_reversion"
	ModeFailSafe      Mode = "failsafe"
)

// ErrNoStopLoss is returned when a stop-loss price is requested for a mode
// that has no trading table entry (the fail-safe mode does not trade, so a
// stop price for it would be a bogus number).
var ErrNoStopLoss = errors.New("risk: mode has no stop-loss table entry")

// stopPcts is the per-mode stop-loss fraction off entry.
var stopPcts = map[Mode]decimal.Decimal{
	ModeMomentum:      decimal.NewFromFloat(0.25),
	ModeMeanReversion: decimal.NewFromFloat(0.15),
}

// StopLossPct returns the stop-loss fraction for the mode.
func StopLossPct(mode Mode) (decimal.Decimal, error) {
	pct, ok := stopPcts[mode]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoStopLoss, mode)
	}
	return pct, nil
}

// StopLossPrice returns entry reduced by the mode's stop-loss fraction.
func StopLossPrice(mode Mode, entry decimal.Decimal) (decimal.Decimal, error) {
	pct, err := StopLossPct(mode)
	if err != nil {
		return decimal.Zero, err
	}
	one := decimal.NewFromInt(1)
	return entry.Mul(one.Sub(pct)), nil
}

// GapResult compares the loss a stop was expected to cap against the loss
// actually realized when the fill came in worse than the stop.
type GapResult struct {
	ExpectedLoss decimal.Decimal
	ActualLoss   decimal.Decimal
	Gapped       bool
}

// GapLoss computes the realized loss when a position entered at entry was
// stopped out at actualFill instead of the expected stop price. Gapped is
// set whenever the actual loss exceeds the expected one.
func GapLoss(entry, expectedStop, actualFill decimal.Decimal, multiplier, qty int) GapResult {
	scale := decimal.NewFromInt(int64(multiplier)).Mul(decimal.NewFromInt(int64(qty)))
	expected := entry.Sub(expectedStop).Mul(scale)
	actual := entry.Sub(actualFill).Mul(scale)
	return GapResult{
		ExpectedLoss: expected,
		ActualLoss:   actual,
		Gapped:       actual.GreaterThan(expected),
	}
}

// ShouldForceClose reports whether a position at the given days-to-expiry
// must be closed. True at or under the force-close threshold, including
// negative DTE (an already-expired contract is an emergency, not a skip).
func (l Limits) ShouldForceClose(dte int) bool {
	return dte <= l.ForceCloseDTE
}
