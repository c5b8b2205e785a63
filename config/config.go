package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"optrisk/risk"
)

// Config is the complete engine configuration.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	State   StateConfig   `json:"state" yaml:"state"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// AccountConfig contains the account-level risk parameters. Zero values
// fall back to the standard defaults in Limits().
type AccountConfig struct {
	ID      string  `json:"id" yaml:"id"`
	Balance float64 `json:"balance" yaml:"balance"`

	MaxPositionPct       float64 `json:"max_position_pct" yaml:"max_position_pct"`
	MaxRiskPct           float64 `json:"max_risk_pct" yaml:"max_risk_pct"`
	MaxDailyLossPct      float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
	MaxWeeklyDrawdownPct float64 `json:"max_weekly_drawdown_pct" yaml:"max_weekly_drawdown_pct"`
	PDTLimit             int     `json:"pdt_limit" yaml:"pdt_limit"`
	ForceCloseDTE        int     `json:"force_close_dte" yaml:"force_close_dte"`
	MaxIntradayPivots    int     `json:"max_intraday_pivots" yaml:"max_intraday_pivots"`
}

// JournalConfig selects the risk-event journal backend.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// StateConfig locates the persisted risk-state blob.
type StateConfig struct {
	Path string `json:"path" yaml:"path"`
}

// LogConfig controls log level and file rotation.
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if err := pctInRange("account.max_position_pct", c.Account.MaxPositionPct); err != nil {
		return err
	}
	if err := pctInRange("account.max_risk_pct", c.Account.MaxRiskPct); err != nil {
		return err
	}
	if err := pctInRange("account.max_daily_loss_pct", c.Account.MaxDailyLossPct); err != nil {
		return err
	}
	if err := pctInRange("account.max_weekly_drawdown_pct", c.Account.MaxWeeklyDrawdownPct); err != nil {
		return err
	}
	if c.Account.PDTLimit < 0 {
		return fmt.Errorf("account.pdt_limit must not be negative")
	}
	if c.Account.ForceCloseDTE < 0 {
		return fmt.Errorf("account.force_close_dte must not be negative")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.File == "" {
			return fmt.Errorf("journal.file required for csv journal")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

func pctInRange(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0 and 1", name)
	}
	return nil
}

// Limits converts the account parameters into decimal risk limits,
// applying the standard defaults for any field left at zero.
func (c *AccountConfig) Limits() risk.Limits {
	l := risk.DefaultLimits(decimal.NewFromFloat(c.Balance))
	if c.MaxPositionPct > 0 {
		l.MaxPositionPct = decimal.NewFromFloat(c.MaxPositionPct)
	}
	if c.MaxRiskPct > 0 {
		l.MaxRiskPct = decimal.NewFromFloat(c.MaxRiskPct)
	}
	if c.MaxDailyLossPct > 0 {
		l.MaxDailyLossPct = decimal.NewFromFloat(c.MaxDailyLossPct)
	}
	if c.MaxWeeklyDrawdownPct > 0 {
		l.MaxWeeklyDrawdownPct = decimal.NewFromFloat(c.MaxWeeklyDrawdownPct)
	}
	if c.PDTLimit > 0 {
		l.PDTLimit = c.PDTLimit
	}
	if c.ForceCloseDTE > 0 {
		l.ForceCloseDTE = c.ForceCloseDTE
	}
	if c.MaxIntradayPivots > 0 {
		l.MaxIntradayPivots = c.MaxIntradayPivots
	}
	return l
}

// Default returns a configuration with the standard account parameters.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:                   "ACCT-001",
			Balance:              600,
			MaxPositionPct:       0.20,
			MaxRiskPct:           0.03,
			MaxDailyLossPct:      0.10,
			MaxWeeklyDrawdownPct: 0.15,
			PDTLimit:             3,
			ForceCloseDTE:        3,
			MaxIntradayPivots:    2,
		},
		Journal: JournalConfig{Type: "csv", File: "./risk_events.csv"},
		State:   StateConfig{Path: "./risk_state.json"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}
