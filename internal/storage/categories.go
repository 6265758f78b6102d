package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/core"
)

// CreateCategory implements store.CategoryStore
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, icon, color, kind) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Icon, c.Color, string(c.Kind))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name, "kind", c.Kind)
	return nil
}

// GetCategory implements store.CategoryStore
func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, icon, color, kind FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &c.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories implements store.CategoryStore
func (r *SQLiteRepository) ListCategories(ctx context.Context, kind core.CategoryKind) ([]core.Category, error) {
	query := `SELECT id, name, icon, color, kind FROM categories`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// UpdateCategory implements store.CategoryStore
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ?, color = ?, kind = ? WHERE id = ?`,
		c.Name, c.Icon, c.Color, string(c.Kind), c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("category %s: %w", c.ID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Category updated", "id", c.ID, "name", c.Name)
	return nil
}

// DeleteCategory implements store.CategoryStore. Transactions referencing
// the category keep their rows and fall back to uncategorized through the
// ON DELETE SET NULL constraint.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}
