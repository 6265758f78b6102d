package services

import "conti/internal/core"

// NextMonthlyOccurrence returns the first occurrence of day strictly after
// the reference date. Days past the end of a month land on its last day,
// so day 31 bills on Feb 28 and Apr 30.
func NextMonthlyOccurrence(after core.Date, day int) core.Date {
	candidate := clampedDate(after.Year(), after.Month(), day)
	if candidate.After(after.Time) {
		return candidate
	}
	next := after.AddMonths(1)
	return clampedDate(next.Year(), next.Month(), day)
}

func clampedDate(year, month, day int) core.Date {
	if last := core.DaysInMonth(year, month); day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}

// NextSubscriptionBilling returns the next date the subscription bills.
// On the billing day itself the charge is considered taken, so the
// following month's date is returned.
func NextSubscriptionBilling(sub core.Subscription, today core.Date) core.Date {
	return NextMonthlyOccurrence(today, sub.BillingDay)
}

// CardCycle is the statement window a reference date falls into.
type CardCycle struct {
	Closing core.Date
	Due     core.Date
}

// CycleFor returns the card's next statement closing after the reference
// date and the payment due date that follows that closing.
func CycleFor(card core.CreditCard, on core.Date) CardCycle {
	closing := NextMonthlyOccurrence(on, card.ClosingDay)
	return CardCycle{
		Closing: closing,
		Due:     NextMonthlyOccurrence(closing, card.DueDay),
	}
}
