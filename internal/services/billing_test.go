package services

import (
	"testing"

	"conti/internal/core"
)

func TestNextMonthlyOccurrence(t *testing.T) {
	tests := []struct {
		name  string
		after core.Date
		day   int
		want  string
	}{
		{"later this month", core.NewDate(2025, 1, 10), 15, "2025-01-15"},
		{"on the day itself", core.NewDate(2025, 1, 15), 15, "2025-02-15"},
		{"already passed", core.NewDate(2025, 1, 20), 15, "2025-02-15"},
		{"day 31 into February", core.NewDate(2025, 1, 31), 31, "2025-02-28"},
		{"day 31 leap February", core.NewDate(2024, 1, 31), 31, "2024-02-29"},
		{"day 31 into April", core.NewDate(2025, 3, 31), 31, "2025-04-30"},
		{"December wraps the year", core.NewDate(2025, 12, 20), 5, "2026-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextMonthlyOccurrence(tt.after, tt.day)
			if got.String() != tt.want {
				t.Errorf("NextMonthlyOccurrence(%s, %d) = %s, want %s", tt.after, tt.day, got, tt.want)
			}
		})
	}
}

func TestNextSubscriptionBilling(t *testing.T) {
	sub := core.Subscription{
		Name:       "Streaming",
		Amount:     core.Money{Cents: 999},
		BillingDay: 12,
		Active:     true,
	}

	got := NextSubscriptionBilling(sub, core.NewDate(2025, 3, 12))
	if got.String() != "2025-04-12" {
		t.Errorf("on the billing day itself next billing = %s, want 2025-04-12", got)
	}

	got = NextSubscriptionBilling(sub, core.NewDate(2025, 3, 2))
	if got.String() != "2025-03-12" {
		t.Errorf("before the billing day next billing = %s, want 2025-03-12", got)
	}
}

func TestCycleFor(t *testing.T) {
	card := core.CreditCard{
		Name:       "Visa",
		ClosingDay: 20,
		DueDay:     5,
	}

	t.Run("before closing", func(t *testing.T) {
		cycle := CycleFor(card, core.NewDate(2025, 3, 10))
		if cycle.Closing.String() != "2025-03-20" {
			t.Errorf("Closing = %s, want 2025-03-20", cycle.Closing)
		}
		if cycle.Due.String() != "2025-04-05" {
			t.Errorf("Due = %s, want 2025-04-05", cycle.Due)
		}
	})

	t.Run("after closing", func(t *testing.T) {
		cycle := CycleFor(card, core.NewDate(2025, 3, 25))
		if cycle.Closing.String() != "2025-04-20" {
			t.Errorf("Closing = %s, want 2025-04-20", cycle.Closing)
		}
		if cycle.Due.String() != "2025-05-05" {
			t.Errorf("Due = %s, want 2025-05-05", cycle.Due)
		}
	})

	t.Run("clamped closing day", func(t *testing.T) {
		short := core.CreditCard{Name: "Amex", ClosingDay: 31, DueDay: 10}
		cycle := CycleFor(short, core.NewDate(2025, 2, 10))
		if cycle.Closing.String() != "2025-02-28" {
			t.Errorf("Closing = %s, want 2025-02-28", cycle.Closing)
		}
		if cycle.Due.String() != "2025-03-10" {
			t.Errorf("Due = %s, want 2025-03-10", cycle.Due)
		}
	})
}
