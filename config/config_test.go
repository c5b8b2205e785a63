package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero balance", func(c *Config) { c.Account.Balance = 0 }},
		{"negative balance", func(c *Config) { c.Account.Balance = -100 }},
		{"pct above one", func(c *Config) { c.Account.MaxPositionPct = 1.5 }},
		{"negative pct", func(c *Config) { c.Account.MaxRiskPct = -0.01 }},
		{"csv without file", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }},
		{"sqlite without path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }},
		{"unknown journal", func(c *Config) { c.Journal.Type = "parquet" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	t.Parallel()

	doc := `
account:
  id: ACCT-600
  balance: 600
  max_position_pct: 0.20
  max_risk_pct: 0.03
  max_daily_loss_pct: 0.10
  max_weekly_drawdown_pct: 0.15
  pdt_limit: 3
  force_close_dte: 3
journal:
  type: none
state:
  path: ./risk_state.json
log:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ACCT-600", cfg.Account.ID)

	limits := cfg.Account.Limits()
	assert.True(t, limits.PositionLimit().Equal(decimal.RequireFromString("120")))
	assert.True(t, limits.RiskLimit().Equal(decimal.RequireFromString("18")))
}

func TestAccountLimits_DefaultsForZeroFields(t *testing.T) {
	t.Parallel()

	acct := AccountConfig{Balance: 1000}
	limits := acct.Limits()

	assert.True(t, limits.MaxPositionPct.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, 3, limits.PDTLimit)
	assert.Equal(t, 3, limits.ForceCloseDTE)
}
