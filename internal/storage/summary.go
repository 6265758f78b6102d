package storage

import (
	"context"
	"fmt"

	"conti/internal/core"
)

// ReadMonthSummary implements store.SummaryStore. Totals and the category
// breakdown include credit card purchases even though the history listing
// hides them; only the balance they contribute is visible there.
func (r *SQLiteRepository) ReadMonthSummary(ctx context.Context, year, month int) (core.MonthSummary, error) {
	s := core.MonthSummary{Year: year, Month: month}
	from, to := monthBounds(year, month)

	var income, expenses int64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE date BETWEEN ? AND ?`, from, to).Scan(&income, &expenses)
	if err != nil {
		return s, fmt.Errorf("read month totals: %w", err)
	}

	s.TotalIncome = core.Money{Cents: income}
	s.TotalExpenses = core.Money{Cents: expenses}
	s.Balance = core.Money{Cents: income - expenses}

	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(t.category_id, ''), COALESCE(c.name, 'Uncategorized'), SUM(t.amount_cents)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.kind = 'expense' AND t.date BETWEEN ? AND ?
		GROUP BY t.category_id, c.name
		HAVING SUM(t.amount_cents) > 0
		ORDER BY SUM(t.amount_cents) DESC`, from, to)
	if err != nil {
		return s, fmt.Errorf("read category breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.CategoryID, &ca.Name, &ca.Amount.Cents); err != nil {
			return s, fmt.Errorf("scan category breakdown: %w", err)
		}
		s.ExpensesByCategory = append(s.ExpensesByCategory, ca)
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("iterate category breakdown: %w", err)
	}

	return s, nil
}

// ListRecurringAnchors implements store.SummaryStore
func (r *SQLiteRepository) ListRecurringAnchors(ctx context.Context, until core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE is_recurring = 1 AND parent_id IS NULL AND date <= ?
		 ORDER BY date`, until.String())
	if err != nil {
		return nil, fmt.Errorf("list recurring anchors: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}
