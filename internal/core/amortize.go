package core

import "time"

// ComputeCadenceAmount normalizes a budget item's contribution to a
// monthly-equivalent figure. This is the one place where heterogeneous
// cadences become comparable: every report and total sums CadenceAmount
// across items regardless of their native cadence.
//
// Amounts are plain float64 currency; rounding happens at display time
// only, never here.
func ComputeCadenceAmount(item BudgetItem) float64 {
	switch item.Cadence.Kind() {
	case CadenceMonthly:
		return item.TargetAmount
	case CadenceYearly:
		return item.TargetAmount / 12
	case CadenceFixed:
		// Savings goal: spread the remaining balance over the months left
		// until the target date. A goal date in the past (or today) leaves
		// a single month, so the full remainder is due immediately and we
		// never divide by zero or a negative count.
		remaining := item.TargetAmount - item.Amount
		months := monthsBetween(item.PeriodStart, item.PeriodEnd)
		if months < 1 {
			months = 1
		}
		return remaining / float64(months)
	default: // CadenceEventually
		// Due this month; nothing to spread.
		return item.TargetAmount
	}
}

// monthsBetween returns the number of whole or partial calendar months from
// from to to, rounded up. Zero or negative spans return 0.
func monthsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if from.AddDate(0, months, 0).Before(to) {
		months++
	}
	return months
}
