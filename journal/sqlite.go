package journal

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordDecision(d DecisionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO decisions
		(id, time, symbol, action, is_closing, cost, allowed, reasons, checks_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Time, d.Symbol, d.Action, d.IsClosing, d.Cost.String(),
		d.Allowed, strings.Join(d.Reasons, ","), strings.Join(d.ChecksRun, ","),
	)
	return err
}

func (j *SQLiteJournal) RecordLoss(l LossRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO losses (id, time, scope, amount, gain)
		VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.Time, string(l.Scope), l.Amount.String(), l.Gain,
	)
	return err
}

func (j *SQLiteJournal) RecordEmergency(e EmergencyRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO emergencies (id, time, trigger_name, directives)
		VALUES (?, ?, ?, ?)`,
		e.ID, e.Time, e.Trigger, strings.Join(e.Directives, ","),
	)
	return err
}

// DecisionsBetween returns decisions in [from, to) ordered by time, for
// operator review via riskctl.
func (j *SQLiteJournal) DecisionsBetween(from, to time.Time) ([]DecisionRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, time, symbol, action, is_closing, cost, allowed, reasons, checks_run
		FROM decisions WHERE time >= ? AND time < ? ORDER BY time`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		var cost, reasons, checks string
		if err := rows.Scan(&d.ID, &d.Time, &d.Symbol, &d.Action, &d.IsClosing,
			&cost, &d.Allowed, &reasons, &checks); err != nil {
			return nil, err
		}
		d.Cost, err = decimal.NewFromString(cost)
		if err != nil {
			return nil, err
		}
		if reasons != "" {
			d.Reasons = strings.Split(reasons, ",")
		}
		if checks != "" {
			d.ChecksRun = strings.Split(checks, ",")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
