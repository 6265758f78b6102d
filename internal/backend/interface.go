package backend

import (
	"context"

	"conti/internal/core"
	"conti/internal/store"
)

// Backend is the unified surface the HTTP layer programs against.
// Transaction and summary operations go through the service layer so
// scope resolution, installment expansion and recurring projection
// behave the same on every backend.
type Backend interface {
	CreateTransaction(ctx context.Context, t core.Transaction) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	GetGroup(ctx context.Context, id string) ([]core.Transaction, error)
	ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, scope core.Scope, patch core.TransactionPatch) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string, scope core.Scope) (int, error)

	MonthSummary(ctx context.Context, year, month int, projected bool) (core.MonthSummary, error)
	Trend(ctx context.Context, year, month, months int, projected bool) ([]core.MonthSummary, error)

	store.CategoryStore
	store.CardStore
	store.SubscriptionStore
}

// CleanupFunc releases the resources a backend holds open.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP is optional; without it the export queue still drains on the
	// worker's poll timer, just without the wake-up messages.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
