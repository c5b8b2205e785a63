package risk

// Reason codes attached to rejected checks. Stable strings: they are
// journaled and consumed by operators, so treat them as an API.
const (
	ReasonFailSafeActive    = "FAILSAFE_ACTIVE"
	ReasonCircuitOpen       = "CIRCUIT_OPEN"
	ReasonPDTLimit          = "PDT_LIMIT"
	ReasonDailyLossLimit    = "DAILY_LOSS_LIMIT"
	ReasonWeeklyGovernor    = "WEEKLY_GOVERNOR"
	ReasonPositionTooLarge  = "POSITION_TOO_LARGE"
	ReasonRiskTooHigh       = "RISK_TOO_HIGH"
	ReasonAggregateExposure = "AGGREGATE_EXPOSURE"
	ReasonBadTrade          = "BAD_TRADE"
	ReasonDataQuarantine    = "DATA_QUARANTINE"
	ReasonPivotLimit        = "PIVOT_LIMIT"
)

// Violation is one failed check with its reason code and a human message.
type Violation struct {
	Code string
	Msg  string
}

// Decision is the outcome of a full pre-trade check. Every check runs and
// every failure is collected; Violations is the complete picture, not just
// the first rejection.
type Decision struct {
	Allowed    bool
	Violations []Violation
	ChecksRun  []string
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

func (d *Decision) ran(check string) {
	d.ChecksRun = append(d.ChecksRun, check)
}

// Reasons returns the rejection codes in check order.
func (d Decision) Reasons() []string {
	codes := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		codes = append(codes, v.Code)
	}
	return codes
}
