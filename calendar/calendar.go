// Package calendar provides business-day arithmetic for US equity and
// options markets. Day boundaries are taken in the exchange's trading
// timezone (America/New_York), never UTC, so a contract expiring at the
// close is not miscounted by a day when the host clock runs in UTC.
package calendar

import (
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// Calendar knows which days the market trades. Weekends never trade;
// exchange holidays are injected because their exact set varies by year and
// venue and belongs to configuration, not code.
type Calendar struct {
	loc      *time.Location
	holidays map[string]bool
}

// New returns a calendar in the America/New_York trading timezone with the
// given holidays marked as non-trading days.
func New(holidays ...time.Time) *Calendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// The IANA database always carries America/New_York; a miss means a
		// broken host. Fall back to fixed EST rather than crashing.
		loc = time.FixedZone("EST", -5*60*60)
	}
	c := &Calendar{loc: loc, holidays: make(map[string]bool, len(holidays))}
	for _, h := range holidays {
		// A holiday is a calendar date, not an instant. Take the date as
		// given; converting a midnight value across zones would shift it.
		c.holidays[h.Format(dateLayout)] = true
	}
	return c
}

// Location returns the trading timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// MarketDate truncates t to its trading-day date in the exchange timezone.
func (c *Calendar) MarketDate(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
}

// IsBusinessDay reports whether t falls on a trading day.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	lt := t.In(c.loc)
	switch lt.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[lt.Format(dateLayout)]
}

// BusinessDaysBetween counts trading days d with from < d <= to. It is the
// number of business days that have elapsed since from as of to. Weekends
// and holidays neither count toward the total nor extend anything; they are
// simply skipped.
func (c *Calendar) BusinessDaysBetween(from, to time.Time) int {
	start := c.MarketDate(from)
	end := c.MarketDate(to)
	if !end.After(start) {
		return 0
	}
	n := 0
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			n++
		}
	}
	return n
}

// AddBusinessDays returns the date n trading days after t (n >= 0).
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	d := c.MarketDate(t)
	for n > 0 {
		d = d.AddDate(0, 0, 1)
		if c.IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// NextBusinessDay returns the first trading day strictly after t.
func (c *Calendar) NextBusinessDay(t time.Time) time.Time {
	return c.AddBusinessDays(t, 1)
}

// DaysToExpiry returns the number of calendar days from now until expiry,
// with both instants mapped to dates in the trading timezone first. A
// contract expiring later today is 0 DTE; an expired one is negative.
func (c *Calendar) DaysToExpiry(expiry, now time.Time) int {
	e := c.MarketDate(expiry)
	n := c.MarketDate(now)
	// Round rather than truncate: a DST transition makes one day in the
	// span 23 or 25 hours long.
	return int(math.Round(e.Sub(n).Hours() / 24))
}
