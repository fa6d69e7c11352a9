package core

import (
	"errors"
	"fmt"
	"time"
)

// CadenceKind discriminates the cadence variants.
type CadenceKind string

const (
	CadenceMonthly    CadenceKind = "monthly"
	CadenceYearly     CadenceKind = "yearly"
	CadenceFixed      CadenceKind = "fixed"
	CadenceEventually CadenceKind = "eventually"
)

var (
	ErrInvalidDay     = errors.New("invalid day of month")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidCadence = errors.New("invalid cadence")
)

// Cadence is the recurrence rule governing how a budget item repeats or
// targets a date. It is a closed sum type: the kind determines which payload
// fields are meaningful, and values are only constructed through the
// validating constructors below, so an out-of-range day or month can never
// reach the period math.
type Cadence struct {
	kind       CadenceKind
	dayOfMonth int       // Monthly, Yearly
	month      int       // Yearly
	date       time.Time // Fixed
}

// MonthlyCadence repeats every calendar month on dayOfMonth.
func MonthlyCadence(dayOfMonth int) (Cadence, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return Cadence{}, fmt.Errorf("%w: %d", ErrInvalidDay, dayOfMonth)
	}
	return Cadence{kind: CadenceMonthly, dayOfMonth: dayOfMonth}, nil
}

// YearlyCadence repeats every calendar year on the given month and day.
func YearlyCadence(month, dayOfMonth int) (Cadence, error) {
	if month < 1 || month > 12 {
		return Cadence{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return Cadence{}, fmt.Errorf("%w: %d", ErrInvalidDay, dayOfMonth)
	}
	return Cadence{kind: CadenceYearly, month: month, dayOfMonth: dayOfMonth}, nil
}

// FixedCadence targets a single date; used for savings goals.
func FixedCadence(date time.Time) Cadence {
	return Cadence{kind: CadenceFixed, date: date}
}

// EventuallyCadence is a one-time, undated goal or expense.
func EventuallyCadence() Cadence {
	return Cadence{kind: CadenceEventually}
}

// CadenceFromParts rebuilds a Cadence from its stored columns. The zero
// values of the unused payload fields are ignored per kind.
func CadenceFromParts(kind CadenceKind, dayOfMonth, month int, date time.Time) (Cadence, error) {
	switch kind {
	case CadenceMonthly:
		return MonthlyCadence(dayOfMonth)
	case CadenceYearly:
		return YearlyCadence(month, dayOfMonth)
	case CadenceFixed:
		return FixedCadence(date), nil
	case CadenceEventually:
		return EventuallyCadence(), nil
	default:
		return Cadence{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidCadence, kind)
	}
}

func (c Cadence) Kind() CadenceKind { return c.kind }

// DayOfMonth is meaningful for Monthly and Yearly cadences.
func (c Cadence) DayOfMonth() int { return c.dayOfMonth }

// Month is meaningful for Yearly cadences.
func (c Cadence) Month() int { return c.month }

// Date is meaningful for Fixed cadences.
func (c Cadence) Date() time.Time { return c.date }

// Repeats reports whether the cadence rolls over into a next period.
// Fixed and Eventually items are one-shot.
func (c Cadence) Repeats() bool {
	return c.kind == CadenceMonthly || c.kind == CadenceYearly
}

func (c Cadence) String() string {
	switch c.kind {
	case CadenceMonthly:
		return fmt.Sprintf("monthly(day=%d)", c.dayOfMonth)
	case CadenceYearly:
		return fmt.Sprintf("yearly(month=%d,day=%d)", c.month, c.dayOfMonth)
	case CadenceFixed:
		return fmt.Sprintf("fixed(%s)", c.date.Format("2006-01-02"))
	case CadenceEventually:
		return "eventually"
	default:
		return "invalid"
	}
}
