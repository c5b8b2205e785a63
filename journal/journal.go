// Package journal records risk-engine events for audit: every pre-trade
// decision, every loss event, and every emergency directive bundle.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// DecisionRecord is one pre-trade check outcome.
type DecisionRecord struct {
	ID        string
	Time      time.Time
	Symbol    string
	Action    string
	IsClosing bool
	Cost      decimal.Decimal
	Allowed   bool
	Reasons   []string
	ChecksRun []string
}

// LossScope identifies which accumulator a loss event fed.
type LossScope string

const (
	ScopeDaily  LossScope = "daily"
	ScopeWeekly LossScope = "weekly"
)

// LossRecord is one realized loss or gain report.
type LossRecord struct {
	ID     string
	Time   time.Time
	Scope  LossScope
	Amount decimal.Decimal
	Gain   bool
}

// EmergencyRecord is one emitted directive bundle.
type EmergencyRecord struct {
	ID         string
	Time       time.Time
	Trigger    string
	Directives []string
}

// Journal persists risk events. Implementations must not block the trade
// path on anything slower than a local write.
type Journal interface {
	RecordDecision(DecisionRecord) error
	RecordLoss(LossRecord) error
	RecordEmergency(EmergencyRecord) error
	Close() error
}

// Nop discards everything. Useful default for library embedders.
type Nop struct{}

func (Nop) RecordDecision(DecisionRecord) error   { return nil }
func (Nop) RecordLoss(LossRecord) error           { return nil }
func (Nop) RecordEmergency(EmergencyRecord) error { return nil }
func (Nop) Close() error                          { return nil }
