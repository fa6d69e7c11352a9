package core

import (
	"math"
	"testing"
	"time"
)

func fixedItem(amount, target float64, start, end time.Time) BudgetItem {
	return BudgetItem{
		Amount:       amount,
		TargetAmount: target,
		Cadence:      FixedCadence(end),
		PeriodStart:  start,
		PeriodEnd:    end,
	}
}

func TestComputeCadenceAmount_Monthly(t *testing.T) {
	c, _ := MonthlyCadence(1)
	item := BudgetItem{TargetAmount: 1500, Amount: 1500, Cadence: c}

	// Identity law: a monthly item is already a monthly figure.
	if got := ComputeCadenceAmount(item); got != 1500 {
		t.Errorf("ComputeCadenceAmount() = %v, want 1500", got)
	}
}

func TestComputeCadenceAmount_Yearly(t *testing.T) {
	c, _ := YearlyCadence(1, 1)
	item := BudgetItem{TargetAmount: 600, Amount: 600, Cadence: c}

	// Exact division, no rounding in storage.
	if got := ComputeCadenceAmount(item); got != 50 {
		t.Errorf("ComputeCadenceAmount() = %v, want 50", got)
	}
}

func TestComputeCadenceAmount_Eventually(t *testing.T) {
	item := BudgetItem{TargetAmount: 250, Cadence: EventuallyCadence()}

	if got := ComputeCadenceAmount(item); got != 250 {
		t.Errorf("ComputeCadenceAmount() = %v, want 250", got)
	}
}

func TestComputeCadenceAmount_Savings(t *testing.T) {
	now := date(2024, 3, 1)

	tests := []struct {
		name   string
		amount float64
		target float64
		end    time.Time
		want   float64
	}{
		{
			name:   "ten months out",
			amount: 200,
			target: 1200,
			end:    date(2025, 1, 1),
			want:   100, // (1200-200)/10
		},
		{
			name:   "six months out",
			amount: 1000,
			target: 6000,
			end:    date(2024, 9, 1),
			want:   5000.0 / 6,
		},
		{
			name:   "partial month rounds the divisor up",
			amount: 0,
			target: 900,
			end:    date(2024, 5, 15), // 2 months + 14 days -> 3
			want:   300,
		},
		{
			name:   "goal date passed: full remainder due now",
			amount: 300,
			target: 1000,
			end:    date(2023, 12, 1),
			want:   700,
		},
		{
			name:   "goal date is today",
			amount: 0,
			target: 480,
			end:    now,
			want:   480,
		},
		{
			name:   "already fully saved",
			amount: 1000,
			target: 1000,
			end:    date(2024, 9, 1),
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCadenceAmount(fixedItem(tt.amount, tt.target, now, tt.end))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ComputeCadenceAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same instant", date(2024, 3, 1), date(2024, 3, 1), 0},
		{"backwards", date(2024, 3, 1), date(2024, 2, 1), 0},
		{"one day", date(2024, 3, 1), date(2024, 3, 2), 1},
		{"exactly one month", date(2024, 3, 1), date(2024, 4, 1), 1},
		{"one month and a day", date(2024, 3, 1), date(2024, 4, 2), 2},
		{"exactly a year", date(2024, 3, 1), date(2025, 3, 1), 12},
		{"across new year", date(2024, 12, 20), date(2025, 1, 5), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := monthsBetween(tt.from, tt.to); got != tt.want {
				t.Errorf("monthsBetween(%v, %v) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
