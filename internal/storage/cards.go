package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/core"
)

const cardColumns = `id, name, brand, bank, limit_cents, used_cents, closing_day, due_day`

func scanCard(rs rowScanner) (core.CreditCard, error) {
	var c core.CreditCard
	err := rs.Scan(&c.ID, &c.Name, &c.Brand, &c.Bank, &c.LimitCents,
		&c.UsedCents, &c.ClosingDay, &c.DueDay)
	return c, err
}

// CreateCard implements store.CardStore
func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.CreditCard) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Brand, c.Bank, c.LimitCents, c.UsedCents, c.ClosingDay, c.DueDay)
	if err != nil {
		return fmt.Errorf("create credit card: %w", err)
	}

	slog.InfoContext(ctx, "Credit card created", "id", c.ID, "name", c.Name)
	return nil
}

// GetCard implements store.CardStore
func (r *SQLiteRepository) GetCard(ctx context.Context, id string) (core.CreditCard, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CreditCard{}, fmt.Errorf("credit card %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("get credit card: %w", err)
	}
	return c, nil
}

// ListCards implements store.CardStore
func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.CreditCard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var out []core.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit cards: %w", err)
	}
	return out, nil
}

// UpdateCard implements store.CardStore. used_cents is deliberately left
// out: it only moves through CardAdjustment deltas applied with row writes.
func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.CreditCard) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credit_cards
		 SET name = ?, brand = ?, bank = ?, limit_cents = ?, closing_day = ?, due_day = ?
		 WHERE id = ?`,
		c.Name, c.Brand, c.Bank, c.LimitCents, c.ClosingDay, c.DueDay, c.ID)
	if err != nil {
		return fmt.Errorf("update credit card: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("credit card %s: %w", c.ID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Credit card updated", "id", c.ID, "name", c.Name)
	return nil
}

// DeleteCard implements store.CardStore
func (r *SQLiteRepository) DeleteCard(ctx context.Context, id string) error {
	var refs int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE credit_card_id = ?`, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count card references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("credit card %s has %d transactions: %w", id, refs, core.ErrCardInUse)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete credit card: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("credit card %s: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Credit card deleted", "id", id)
	return nil
}

// ListCardTransactions implements store.CardStore
func (r *SQLiteRepository) ListCardTransactions(ctx context.Context, cardID string, year, month int) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE credit_card_id = ?`
	args := []any{cardID}
	if year > 0 && month > 0 {
		from, to := monthBounds(year, month)
		query += ` AND date BETWEEN ? AND ?`
		args = append(args, from, to)
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list card transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}
