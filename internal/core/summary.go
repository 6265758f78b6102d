package core

// CategoryAmount is an expense total aggregated under one category.
// CategoryID is empty for uncategorized spend.
type CategoryAmount struct {
	CategoryID string
	Name       string
	Amount     Money
}

// MonthSummary holds the financial totals for a specific year+month.
// Balance is income minus expenses for that month alone; months never
// carry a balance forward. Credit-card expenses count toward
// TotalExpenses even though history listings hide them.
type MonthSummary struct {
	Year               int
	Month              int // 1-12
	TotalIncome        Money
	TotalExpenses      Money
	Balance            Money
	ExpensesByCategory []CategoryAmount
}

// IsZero reports whether the month had no activity at all.
func (s MonthSummary) IsZero() bool {
	return s.TotalIncome.Cents == 0 && s.TotalExpenses.Cents == 0 && len(s.ExpensesByCategory) == 0
}
