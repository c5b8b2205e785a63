package calendar

import "time"

func mustDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// NYSE2025 returns the NYSE full-closure holidays for 2025. Half days are
// not included; the engine only cares whether a date trades at all.
func NYSE2025() []time.Time {
	return []time.Time{
		mustDate("2025-01-01"), // New Year's Day
		mustDate("2025-01-20"), // Martin Luther King Jr. Day
		mustDate("2025-02-17"), // Washington's Birthday
		mustDate("2025-04-18"), // Good Friday
		mustDate("2025-05-26"), // Memorial Day
		mustDate("2025-06-19"), // Juneteenth
		mustDate("2025-07-04"), // Independence Day
		mustDate("2025-09-01"), // Labor Day
		mustDate("2025-11-27"), // Thanksgiving Day
		mustDate("2025-12-25"), // Christmas Day
	}
}

// NYSE2026 returns the NYSE full-closure holidays for 2026.
func NYSE2026() []time.Time {
	return []time.Time{
		mustDate("2026-01-01"),
		mustDate("2026-01-19"),
		mustDate("2026-02-16"),
		mustDate("2026-04-03"),
		mustDate("2026-05-25"),
		mustDate("2026-06-19"),
		mustDate("2026-07-03"), // July 4 observed
		mustDate("2026-09-07"),
		mustDate("2026-11-26"),
		mustDate("2026-12-25"),
	}
}
