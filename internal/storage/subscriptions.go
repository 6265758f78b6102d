package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/core"
)

const subscriptionColumns = `id, name, service, amount_cents, billing_day, active, category_id, credit_card_id`

func scanSubscription(rs rowScanner) (core.Subscription, error) {
	var (
		s        core.Subscription
		category sql.NullString
		card     sql.NullString
	)
	err := rs.Scan(&s.ID, &s.Name, &s.Service, &s.Amount.Cents,
		&s.BillingDay, &s.Active, &category, &card)
	if err != nil {
		return core.Subscription{}, err
	}
	s.CategoryID = category.String
	s.CreditCardID = card.String
	return s, nil
}

// CreateSubscription implements store.SubscriptionStore
func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Service, s.Amount.Cents, s.BillingDay, s.Active,
		nullable(s.CategoryID), nullable(s.CreditCardID))
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	slog.InfoContext(ctx, "Subscription created", "id", s.ID, "name", s.Name)
	return nil
}

// GetSubscription implements store.SubscriptionStore
func (r *SQLiteRepository) GetSubscription(ctx context.Context, id string) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return s, nil
}

// ListSubscriptions implements store.SubscriptionStore
func (r *SQLiteRepository) ListSubscriptions(ctx context.Context, onlyActive bool) ([]core.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	if onlyActive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

// UpdateSubscription implements store.SubscriptionStore
func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, s core.Subscription) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET name = ?, service = ?, amount_cents = ?, billing_day = ?, active = ?,
		     category_id = ?, credit_card_id = ?
		 WHERE id = ?`,
		s.Name, s.Service, s.Amount.Cents, s.BillingDay, s.Active,
		nullable(s.CategoryID), nullable(s.CreditCardID), s.ID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("subscription %s: %w", s.ID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Subscription updated", "id", s.ID, "name", s.Name)
	return nil
}

// DeleteSubscription implements store.SubscriptionStore
func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Subscription deleted", "id", id)
	return nil
}
