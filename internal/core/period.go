package core

import "time"

// Period is the half-open window [Start, End) a budget item's current
// amount applies to.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the half-open window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Expired reports whether the window has fully elapsed at time t.
func (p Period) Expired(t time.Time) bool {
	return !t.Before(p.End)
}

// ComputePeriod derives the canonical period a cadence covers at the
// reference instant now. The function is pure and total over valid Cadence
// values; invalid day/month combinations are rejected at construction and
// cannot appear here.
//
// Days that do not exist in a given month clamp to that month's last day,
// so a monthly cadence on day 31 starts on Feb 28 (29 in leap years) rather
// than rolling into March.
func ComputePeriod(c Cadence, now time.Time) Period {
	switch c.Kind() {
	case CadenceMonthly:
		return monthlyPeriod(c.DayOfMonth(), now)
	case CadenceYearly:
		return yearlyPeriod(c.Month(), c.DayOfMonth(), now)
	case CadenceFixed:
		// A savings goal has no repeating window; the period is the time
		// remaining until the target date.
		return Period{Start: now, End: c.Date()}
	default: // CadenceEventually
		// Degenerate single-instant period: no amortization window.
		return Period{Start: now, End: now}
	}
}

func monthlyPeriod(day int, now time.Time) Period {
	year, month := now.Year(), int(now.Month())

	start := occurrence(year, month, day)
	if start.After(now) {
		year, month = prevMonth(year, month)
		start = occurrence(year, month, day)
	}

	nextYear, nextMonth := nextMonth(year, month)
	return Period{Start: start, End: occurrence(nextYear, nextMonth, day)}
}

func yearlyPeriod(month, day int, now time.Time) Period {
	year := now.Year()

	start := occurrence(year, month, day)
	if start.After(now) {
		year--
		start = occurrence(year, month, day)
	}

	return Period{Start: start, End: occurrence(year+1, month, day)}
}

// occurrence places day in the given month at midnight UTC, clamping to the
// month's last day when the month is shorter.
func occurrence(year, month, day int) time.Time {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year, month int) int {
	// Day zero of the following month.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func prevMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

func nextMonth(year, month int) (int, int) {
	if month == 12 {
		return year + 1, 1
	}
	return year, month + 1
}
