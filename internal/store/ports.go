// Package store defines the persistence ports the rest of the application
// programs against. The SQLite repository and the in-memory store both
// implement them, so services and handlers never depend on a concrete
// backend.
package store

import (
	"context"
	"time"

	"conti/internal/core"
)

// CardAdjustment is a delta to apply to a credit card's used amount.
// Stores must apply it in the same transaction as the row writes it
// accompanies, so the card counter never drifts from the rows.
type CardAdjustment struct {
	CardID     string
	DeltaCents int64
}

// TransactionFilter narrows ListTransactions. Zero values mean no filter.
// Card purchases are excluded unless IncludeCard or CardID is set, so a
// month listing matches what the summary presents as account history.
type TransactionFilter struct {
	Year        int
	Month       int
	Kind        core.TransactionKind
	CategoryID  string
	CardID      string
	IncludeCard bool
	Limit       int
}

// ExportItem is one month waiting to be exported to the spreadsheet.
type ExportItem struct {
	ID         int64
	Year       int
	Month      int
	Attempts   int
	EnqueuedAt time.Time
}

// TransactionStore persists transaction rows. Writes carrying a non-nil
// CardAdjustment apply the delta atomically with the row changes.
type TransactionStore interface {
	CreateTransactions(ctx context.Context, rows []core.Transaction, adj *CardAdjustment) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	ListGroup(ctx context.Context, groupKey string) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, row core.Transaction, adj *CardAdjustment) error
	UpdateGroup(ctx context.Context, groupKey string, rows []core.Transaction, adj *CardAdjustment) error
	DeleteTransaction(ctx context.Context, id string, adj *CardAdjustment) error
	DeleteGroup(ctx context.Context, groupKey string, adj *CardAdjustment) (int, error)
}

// SummaryStore aggregates persisted rows into monthly figures.
type SummaryStore interface {
	ReadMonthSummary(ctx context.Context, year, month int) (core.MonthSummary, error)
	// ListRecurringAnchors returns the first row of every recurring series
	// dated on or before until. Used to project virtual occurrences into
	// future months without persisting them.
	ListRecurringAnchors(ctx context.Context, until core.Date) ([]core.Transaction, error)
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) error
	GetCategory(ctx context.Context, id string) (core.Category, error)
	ListCategories(ctx context.Context, kind core.CategoryKind) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

type CardStore interface {
	CreateCard(ctx context.Context, c core.CreditCard) error
	GetCard(ctx context.Context, id string) (core.CreditCard, error)
	ListCards(ctx context.Context) ([]core.CreditCard, error)
	// UpdateCard persists the card's descriptive fields. The used amount is
	// only ever moved through CardAdjustment deltas.
	UpdateCard(ctx context.Context, c core.CreditCard) error
	// DeleteCard fails with core.ErrCardInUse while transactions still
	// reference the card.
	DeleteCard(ctx context.Context, id string) error
	ListCardTransactions(ctx context.Context, cardID string, year, month int) ([]core.Transaction, error)
}

type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, s core.Subscription) error
	GetSubscription(ctx context.Context, id string) (core.Subscription, error)
	ListSubscriptions(ctx context.Context, onlyActive bool) ([]core.Subscription, error)
	UpdateSubscription(ctx context.Context, s core.Subscription) error
	DeleteSubscription(ctx context.Context, id string) error
}

// ExportQueue is the durable queue of months whose summary must be pushed
// to the spreadsheet. Enqueues are idempotent while an item for the same
// month is still pending or processing.
type ExportQueue interface {
	EnqueueExport(ctx context.Context, year, month int) error
	// DequeueExportBatch marks up to limit pending items as processing,
	// increments their attempt counters and returns them oldest first.
	DequeueExportBatch(ctx context.Context, limit int) ([]ExportItem, error)
	MarkExportCompleted(ctx context.Context, id int64) error
	// MarkExportFailed parks the item permanently. RequeueExport puts it
	// back in line for another attempt instead.
	MarkExportFailed(ctx context.Context, id int64, lastError string) error
	RequeueExport(ctx context.Context, id int64, lastError string) error
	ResetStaleExports(ctx context.Context, olderThan time.Duration) (int, error)
	CleanupCompletedExports(ctx context.Context, olderThan time.Duration) (int, error)
}

// Store is the full persistence surface a backend provides.
type Store interface {
	TransactionStore
	SummaryStore
	CategoryStore
	CardStore
	SubscriptionStore
	ExportQueue
}
