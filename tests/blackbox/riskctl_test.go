//go:build blackbox

package blackbox

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"optrisk/breaker"
	"optrisk/pdt"
	"optrisk/state"
)

const configDoc = `
account:
  id: BLACKBOX-001
  balance: 600
state:
  path: %s
log:
  level: error
`

func TestVersion(t *testing.T) {
	out := run(t, "version")
	if !strings.Contains(out, "riskctl") {
		t.Errorf("version output missing binary name: %q", out)
	}
}

func TestGameplanTighteningAccepted(t *testing.T) {
	dir := t.TempDir()
	gp := writeFile(t, dir, "gameplan.yaml", `
date: "2025-06-11"
hard_limits:
  max_position_pct: 0.10
  max_risk_pct: 0.02
`)

	out := run(t, "gameplan", gp)
	if !strings.Contains(out, "OK") {
		t.Errorf("expected acceptance, got:\n%s", out)
	}
	// 10% of the default $600 balance
	if !strings.Contains(out, "$60.00") {
		t.Errorf("tightened position limit not reported:\n%s", out)
	}
}

func TestGameplanLooseningRejectedWithAllViolations(t *testing.T) {
	dir := t.TempDir()
	gp := writeFile(t, dir, "gameplan.yaml", `
hard_limits:
  max_position_pct: 0.40
  max_risk_pct: 0.09
  pdt_limit: 9
`)

	out := runErr(t, "gameplan", gp)
	for _, want := range []string{"max_position_pct", "max_risk_pct", "pdt_limit"} {
		if !strings.Contains(out, want) {
			t.Errorf("violation for %s not reported:\n%s", want, out)
		}
	}
}

func TestCheckWithoutStateIsFailSafe(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml",
		configf(filepath.Join(dir, "missing_state.json")))

	out := run(t, "check", "--config", cfg, "--premium", "1.00", "--qty", "1")
	if !strings.Contains(out, "fail-safe") {
		t.Errorf("missing state blob should report fail-safe mode:\n%s", out)
	}
	if !strings.Contains(out, "REJECTED") {
		t.Errorf("fail-safe engine should reject opening orders:\n%s", out)
	}
}

func TestCheckApprovesWithHealthyState(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "risk_state.json")

	st := state.RiskState{
		PDT:         pdt.State{Limit: 3},
		Breaker:     breaker.Closed,
		LastUpdated: time.Now().UTC(),
	}
	if err := state.NewFileStore(statePath).Save(st); err != nil {
		t.Fatal(err)
	}

	cfg := writeFile(t, dir, "config.yaml", configf(statePath))

	// $1.00 x 100 x 1 = $100 cost, inside the $120 position limit.
	out := run(t, "check", "--config", cfg, "--premium", "1.00", "--qty", "1", "--stop-pct", "0.15")
	if !strings.Contains(out, "APPROVED") {
		t.Errorf("healthy state should approve a small trade:\n%s", out)
	}

	// $1.50 x 100 x 1 = $150 busts the position limit.
	out = run(t, "check", "--config", cfg, "--premium", "1.50", "--qty", "1", "--stop-pct", "0.15")
	if !strings.Contains(out, "POSITION_TOO_LARGE") {
		t.Errorf("oversized trade should name the violated check:\n%s", out)
	}
}

func TestStateInspection(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "risk_state.json")

	st := state.SafeDefault()
	if err := state.NewFileStore(statePath).Save(st); err != nil {
		t.Fatal(err)
	}

	cfg := writeFile(t, dir, "config.yaml", configf(statePath))

	out := run(t, "state", "--config", cfg)
	if !strings.Contains(out, "HALTED") {
		t.Errorf("fail-safe state should report a halted engine:\n%s", out)
	}
	if !strings.Contains(out, "data quarantine:  true") {
		t.Errorf("fail-safe state should show the quarantine flag:\n%s", out)
	}
}

func configf(statePath string) string {
	return fmt.Sprintf(configDoc, statePath)
}
