package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"optrisk/risk"
)

// Gameplan is the day's trading plan document supplied by the strategy
// layer. Its hard limits may tighten the account-level parameters but
// never loosen them; a plan that tries is rejected outright at load time.
type Gameplan struct {
	Date       string     `json:"date" yaml:"date"`
	Bias       string     `json:"bias,omitempty" yaml:"bias,omitempty"`
	HardLimits HardLimits `json:"hard_limits" yaml:"hard_limits"`
}

// HardLimits are the plan-level overrides. Zero means "inherit".
type HardLimits struct {
	MaxPositionPct       float64 `json:"max_position_pct" yaml:"max_position_pct"`
	MaxRiskPct           float64 `json:"max_risk_pct" yaml:"max_risk_pct"`
	MaxDailyLossPct      float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
	MaxWeeklyDrawdownPct float64 `json:"max_weekly_drawdown_pct" yaml:"max_weekly_drawdown_pct"`
	PDTLimit             int     `json:"pdt_limit" yaml:"pdt_limit"`
	ForceCloseDTE        int     `json:"force_close_dte" yaml:"force_close_dte"`
}

// GameplanError reports every hard limit that is looser than the account
// level allows, not just the first one found.
type GameplanError struct {
	Violations []string
}

func (e *GameplanError) Error() string {
	return fmt.Sprintf("gameplan loosens account limits: %s",
		strings.Join(e.Violations, "; "))
}

// LoadGameplan reads and validates a gameplan against the account limits.
func LoadGameplan(path string, account risk.Limits) (*Gameplan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gameplan: %w", err)
	}
	gp := &Gameplan{}
	if err := yaml.Unmarshal(data, gp); err != nil {
		if jerr := json.Unmarshal(data, gp); jerr != nil {
			return nil, fmt.Errorf("parse gameplan (tried YAML and JSON): %w", err)
		}
	}
	if err := gp.Validate(account); err != nil {
		return nil, err
	}
	return gp, nil
}

// Validate enforces the tighten-only rule. All violations are enumerated
// in a single *GameplanError.
func (gp *Gameplan) Validate(account risk.Limits) error {
	var violations []string

	checkPct := func(name string, plan float64, accountPct decimal.Decimal) {
		if plan == 0 {
			return
		}
		if plan < 0 || plan > 1 {
			violations = append(violations, fmt.Sprintf("%s %.4f out of range", name, plan))
			return
		}
		if decimal.NewFromFloat(plan).GreaterThan(accountPct) {
			violations = append(violations,
				fmt.Sprintf("%s %.4f looser than account %s", name, plan, accountPct))
		}
	}

	checkPct("hard_limits.max_position_pct", gp.HardLimits.MaxPositionPct, account.MaxPositionPct)
	checkPct("hard_limits.max_risk_pct", gp.HardLimits.MaxRiskPct, account.MaxRiskPct)
	checkPct("hard_limits.max_daily_loss_pct", gp.HardLimits.MaxDailyLossPct, account.MaxDailyLossPct)
	checkPct("hard_limits.max_weekly_drawdown_pct", gp.HardLimits.MaxWeeklyDrawdownPct, account.MaxWeeklyDrawdownPct)

	if gp.HardLimits.PDTLimit > account.PDTLimit {
		violations = append(violations,
			fmt.Sprintf("hard_limits.pdt_limit %d looser than account %d",
				gp.HardLimits.PDTLimit, account.PDTLimit))
	}
	// A lower force-close DTE keeps positions open longer into expiry, so
	// "tighter" here means a higher threshold.
	if gp.HardLimits.ForceCloseDTE != 0 && gp.HardLimits.ForceCloseDTE < account.ForceCloseDTE {
		violations = append(violations,
			fmt.Sprintf("hard_limits.force_close_dte %d looser than account %d",
				gp.HardLimits.ForceCloseDTE, account.ForceCloseDTE))
	}

	if len(violations) > 0 {
		return &GameplanError{Violations: violations}
	}
	return nil
}

// Apply returns the account limits tightened by the gameplan overrides.
// Call only after Validate has passed.
func (gp *Gameplan) Apply(account risk.Limits) risk.Limits {
	l := account
	if gp.HardLimits.MaxPositionPct > 0 {
		l.MaxPositionPct = decimal.NewFromFloat(gp.HardLimits.MaxPositionPct)
	}
	if gp.HardLimits.MaxRiskPct > 0 {
		l.MaxRiskPct = decimal.NewFromFloat(gp.HardLimits.MaxRiskPct)
	}
	if gp.HardLimits.MaxDailyLossPct > 0 {
		l.MaxDailyLossPct = decimal.NewFromFloat(gp.HardLimits.MaxDailyLossPct)
	}
	if gp.HardLimits.MaxWeeklyDrawdownPct > 0 {
		l.MaxWeeklyDrawdownPct = decimal.NewFromFloat(gp.HardLimits.MaxWeeklyDrawdownPct)
	}
	if gp.HardLimits.PDTLimit > 0 {
		l.PDTLimit = gp.HardLimits.PDTLimit
	}
	if gp.HardLimits.ForceCloseDTE > 0 {
		l.ForceCloseDTE = gp.HardLimits.ForceCloseDTE
	}
	return l
}
