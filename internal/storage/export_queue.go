package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"conti/internal/store"
)

// EnqueueExport implements store.ExportQueue. The partial unique index on
// (year, month) for active rows makes re-enqueues of an in-flight month
// no-ops, so every write in a month costs at most one queue row.
func (r *SQLiteRepository) EnqueueExport(ctx context.Context, year, month int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO export_queue (year, month, status) VALUES (?, ?, 'pending')`,
		year, month)
	if err != nil {
		return fmt.Errorf("enqueue export: %w", err)
	}

	slog.DebugContext(ctx, "Export enqueued", "year", year, "month", month)
	return nil
}

// DequeueExportBatch implements store.ExportQueue
func (r *SQLiteRepository) DequeueExportBatch(ctx context.Context, limit int) ([]store.ExportItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, year, month, attempts, enqueued_at FROM export_queue
		 WHERE status = 'pending'
		 ORDER BY enqueued_at
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending exports: %w", err)
	}

	var items []store.ExportItem
	for rows.Next() {
		var (
			item     store.ExportItem
			enqueued sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.Year, &item.Month, &item.Attempts, &enqueued); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan export item: %w", err)
		}
		item.EnqueuedAt = enqueued.Time
		item.Attempts++
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate export items: %w", err)
	}
	rows.Close()

	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			`UPDATE export_queue
			 SET status = 'processing', attempts = attempts + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`, item.ID)
		if err != nil {
			return nil, fmt.Errorf("mark export processing: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return items, nil
}

// MarkExportCompleted implements store.ExportQueue
func (r *SQLiteRepository) MarkExportCompleted(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE export_queue
		 SET status = 'completed', last_error = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}

	slog.InfoContext(ctx, "Export completed", "id", id)
	return nil
}

// MarkExportFailed implements store.ExportQueue
func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id int64, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE export_queue
		 SET status = 'failed', last_error = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, lastError, id)
	if err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}

	slog.WarnContext(ctx, "Export failed permanently", "id", id, "last_error", lastError)
	return nil
}

// RequeueExport implements store.ExportQueue
func (r *SQLiteRepository) RequeueExport(ctx context.Context, id int64, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE export_queue
		 SET status = 'pending', last_error = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, lastError, id)
	if err != nil {
		return fmt.Errorf("requeue export: %w", err)
	}

	slog.WarnContext(ctx, "Export requeued for retry", "id", id, "last_error", lastError)
	return nil
}

// ResetStaleExports implements store.ExportQueue. Recovers items a crashed
// worker left in processing.
func (r *SQLiteRepository) ResetStaleExports(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := fmt.Sprintf("-%d seconds", int(olderThan.Seconds()))
	res, err := r.db.ExecContext(ctx,
		`UPDATE export_queue
		 SET status = 'pending', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'processing' AND updated_at < datetime('now', ?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stale exports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count reset exports: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Stale exports reset", "count", n)
	}
	return int(n), nil
}

// CleanupCompletedExports implements store.ExportQueue
func (r *SQLiteRepository) CleanupCompletedExports(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := fmt.Sprintf("-%d seconds", int(olderThan.Seconds()))
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM export_queue
		 WHERE status IN ('completed', 'failed') AND updated_at < datetime('now', ?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup exports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleaned exports: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Export queue cleaned", "removed", n)
	}
	return int(n), nil
}
