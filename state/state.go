// Package state holds the persisted risk aggregate and its storage
// boundary. Persistence is an explicit save/load seam, never an implicit
// file touch inside business logic.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"optrisk/breaker"
	"optrisk/pdt"
	"optrisk/risk"
)

// RiskState is the full aggregate a RiskEngine needs to reconstruct exact
// behavior after a restart.
type RiskState struct {
	Guard   risk.GuardState `json:"guard"`
	PDT     pdt.State       `json:"pdt"`
	Breaker breaker.State   `json:"breaker"`

	// Reservations holds exposure reserved for approved-but-unfilled
	// trades, keyed by reservation ID so releases survive a restart.
	Reservations map[string]decimal.Decimal `json:"reservations"`

	LastUpdated time.Time `json:"last_updated"`
}

// SafeDefault is what a missing or unparsable blob reconstructs into:
// breaker open and data quarantine set, so the only mandated strategy is
// fail-safe. Never "zero losses, trading permitted."
func SafeDefault() RiskState {
	return RiskState{
		Guard: risk.GuardState{
			DailyLosses:    decimal.Zero,
			DailyGains:     decimal.Zero,
			WeeklyLosses:   decimal.Zero,
			DataQuarantine: true,
		},
		Breaker:      breaker.Open,
		Reservations: map[string]decimal.Decimal{},
		LastUpdated:  time.Now().UTC(),
	}
}

// Store persists RiskState snapshots.
type Store interface {
	Save(RiskState) error
	Load() (RiskState, error)
}

// LoadOrDefault loads from s, falling back to SafeDefault on any failure.
// The bool reports whether a persisted state was actually restored. State
// corruption is a non-fatal event here; the worst outcome is that trading
// stays halted until an operator intervenes.
func LoadOrDefault(s Store) (RiskState, bool) {
	st, err := s.Load()
	if err != nil {
		return SafeDefault(), false
	}
	return st, true
}

// FileStore keeps the blob in a single JSON file, written atomically via a
// temp file and rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Save(st RiskState) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal risk state: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	return os.Rename(tmp, fs.path)
}

func (fs *FileStore) Load() (RiskState, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		return RiskState{}, fmt.Errorf("read state file: %w", err)
	}
	var st RiskState
	if err := json.Unmarshal(data, &st); err != nil {
		return RiskState{}, fmt.Errorf("parse state file: %w", err)
	}
	return st, nil
}

// MemStore is an in-memory Store for tests and for callers that manage
// durability themselves.
type MemStore struct {
	mu    sync.Mutex
	st    RiskState
	saved bool
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Save(st RiskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = st
	m.saved = true
	return nil
}

func (m *MemStore) Load() (RiskState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return RiskState{}, fmt.Errorf("no state saved")
	}
	return m.st, nil
}
