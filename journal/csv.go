package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVJournal writes all event kinds to one flat file with a kind column.
type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"kind", "id", "time", "detail", "amount", "outcome"}); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{w: w, f: f}, nil
}

func (j *CSVJournal) RecordDecision(d DecisionRecord) error {
	outcome := "approved"
	if !d.Allowed {
		outcome = "rejected:" + strings.Join(d.Reasons, "|")
	}
	j.w.Write([]string{
		"decision",
		d.ID,
		d.Time.Format(time.RFC3339),
		d.Symbol + " " + d.Action,
		d.Cost.String(),
		outcome,
	})
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) RecordLoss(l LossRecord) error {
	j.w.Write([]string{
		"loss",
		l.ID,
		l.Time.Format(time.RFC3339),
		string(l.Scope),
		l.Amount.String(),
		strconv.FormatBool(l.Gain),
	})
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) RecordEmergency(e EmergencyRecord) error {
	j.w.Write([]string{
		"emergency",
		e.ID,
		e.Time.Format(time.RFC3339),
		e.Trigger,
		"",
		strings.Join(e.Directives, "|"),
	})
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return err
	}
	return j.f.Close()
}
