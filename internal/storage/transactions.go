package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/core"
	"conti/internal/store"
)

const transactionColumns = `id, description, amount_cents, date, kind, category_id, payment_method, credit_card_id, installments, installment_number, parent_id, is_recurring`

const insertTransactionSQL = `
INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateTransactionSQL = `
UPDATE transactions
SET description = ?, amount_cents = ?, date = ?, kind = ?, category_id = ?,
    payment_method = ?, credit_card_id = ?, installments = ?,
    installment_number = ?, parent_id = ?, is_recurring = ?
WHERE id = ?`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(rs rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		date     string
		category sql.NullString
		card     sql.NullString
		parent   sql.NullString
	)
	err := rs.Scan(&t.ID, &t.Description, &t.Amount.Cents, &date, &t.Kind,
		&category, &t.PaymentMethod, &card, &t.Installments,
		&t.InstallmentNumber, &parent, &t.IsRecurring)
	if err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	t.Date = d
	t.CategoryID = category.String
	t.CreditCardID = card.String
	t.ParentID = parent.String
	return t, nil
}

// nullable maps the empty string to NULL so optional references stay
// NULL in the database and foreign keys hold.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func insertArgs(t core.Transaction) []any {
	return []any{
		t.ID, t.Description, t.Amount.Cents, t.Date.String(), string(t.Kind),
		nullable(t.CategoryID), string(t.PaymentMethod), nullable(t.CreditCardID),
		t.Installments, t.InstallmentNumber, nullable(t.ParentID), t.IsRecurring,
	}
}

func updateArgs(t core.Transaction) []any {
	return []any{
		t.Description, t.Amount.Cents, t.Date.String(), string(t.Kind),
		nullable(t.CategoryID), string(t.PaymentMethod), nullable(t.CreditCardID),
		t.Installments, t.InstallmentNumber, nullable(t.ParentID), t.IsRecurring,
		t.ID,
	}
}

// applyCardDelta moves a credit card's used amount inside the surrounding
// transaction so rows and card counter change together or not at all.
func applyCardDelta(ctx context.Context, tx *sql.Tx, adj *store.CardAdjustment) error {
	if adj == nil || adj.DeltaCents == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE credit_cards SET used_cents = used_cents + ? WHERE id = ?`,
		adj.DeltaCents, adj.CardID)
	if err != nil {
		return fmt.Errorf("adjust card used amount: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("credit card %s: %w", adj.CardID, core.ErrNotFound)
	}
	return nil
}

// CreateTransactions implements store.TransactionStore
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, rows []core.Transaction, adj *store.CardAdjustment) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, insertTransactionSQL, insertArgs(row)...); err != nil {
			return fmt.Errorf("insert transaction %s: %w", row.ID, err)
		}
	}
	if err := applyCardDelta(ctx, tx, adj); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transactions saved",
		"rows", len(rows),
		"group_key", rows[0].GroupKey(),
		"description", rows[0].Description)
	return nil
}

// GetTransaction implements store.TransactionStore
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions implements store.TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any

	if f.Year > 0 && f.Month > 0 {
		from, to := monthBounds(f.Year, f.Month)
		query += ` AND date BETWEEN ? AND ?`
		args = append(args, from, to)
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if f.CategoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.CardID != "" {
		query += ` AND credit_card_id = ?`
		args = append(args, f.CardID)
	} else if !f.IncludeCard {
		query += ` AND credit_card_id IS NULL`
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListGroup implements store.TransactionStore
func (r *SQLiteRepository) ListGroup(ctx context.Context, groupKey string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE id = ? OR parent_id = ?
		 ORDER BY installment_number, date`, groupKey, groupKey)
	if err != nil {
		return nil, fmt.Errorf("list group: %w", err)
	}
	defer rows.Close()

	group, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(group) == 0 {
		return nil, fmt.Errorf("transaction group %s: %w", groupKey, core.ErrNotFound)
	}
	return group, nil
}

// UpdateTransaction implements store.TransactionStore
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, row core.Transaction, adj *store.CardAdjustment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, updateTransactionSQL, updateArgs(row)...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %s: %w", row.ID, core.ErrNotFound)
	}
	if err := applyCardDelta(ctx, tx, adj); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated", "id", row.ID)
	return nil
}

// UpdateGroup implements store.TransactionStore
func (r *SQLiteRepository) UpdateGroup(ctx context.Context, groupKey string, rows []core.Transaction, adj *store.CardAdjustment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		res, err := tx.ExecContext(ctx, updateTransactionSQL, updateArgs(row)...)
		if err != nil {
			return fmt.Errorf("update group member %s: %w", row.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("transaction %s: %w", row.ID, core.ErrNotFound)
		}
	}
	if err := applyCardDelta(ctx, tx, adj); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction group updated",
		"group_key", groupKey,
		"rows", len(rows))
	return nil
}

// DeleteTransaction implements store.TransactionStore
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string, adj *store.CardAdjustment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err := applyCardDelta(ctx, tx, adj); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// DeleteGroup implements store.TransactionStore
func (r *SQLiteRepository) DeleteGroup(ctx context.Context, groupKey string, adj *store.CardAdjustment) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? OR parent_id = ?`, groupKey, groupKey)
	if err != nil {
		return 0, fmt.Errorf("delete transaction group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted rows: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("transaction group %s: %w", groupKey, core.ErrNotFound)
	}
	if err := applyCardDelta(ctx, tx, adj); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction group deleted",
		"group_key", groupKey,
		"rows", n)
	return int(n), nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
