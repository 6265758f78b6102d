// Package adapters composes the service layer and a store into the
// backend surface the HTTP server consumes.
package adapters

import (
	"context"

	"conti/internal/core"
	"conti/internal/services"
	"conti/internal/store"
)

// BackendAdapter joins the transaction and summary services with a store
// so the whole satisfies backend.Backend. Category, card and subscription
// operations pass straight through to the store; transaction and summary
// operations keep their service semantics (expansion, scope resolution,
// card adjustments, recurring projection).
type BackendAdapter struct {
	store.CategoryStore
	store.CardStore
	store.SubscriptionStore

	transactions *services.TransactionService
	summaries    *services.SummaryService
}

func NewBackendAdapter(st store.Store, transactions *services.TransactionService, summaries *services.SummaryService) *BackendAdapter {
	return &BackendAdapter{
		CategoryStore:     st,
		CardStore:         st,
		SubscriptionStore: st,
		transactions:      transactions,
		summaries:         summaries,
	}
}

func (a *BackendAdapter) CreateTransaction(ctx context.Context, t core.Transaction) ([]core.Transaction, error) {
	return a.transactions.CreateTransaction(ctx, t)
}

func (a *BackendAdapter) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return a.transactions.GetTransaction(ctx, id)
}

func (a *BackendAdapter) GetGroup(ctx context.Context, id string) ([]core.Transaction, error) {
	return a.transactions.GetGroup(ctx, id)
}

func (a *BackendAdapter) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	return a.transactions.ListTransactions(ctx, f)
}

func (a *BackendAdapter) UpdateTransaction(ctx context.Context, id string, scope core.Scope, patch core.TransactionPatch) ([]core.Transaction, error) {
	return a.transactions.UpdateTransaction(ctx, id, scope, patch)
}

func (a *BackendAdapter) DeleteTransaction(ctx context.Context, id string, scope core.Scope) (int, error) {
	return a.transactions.DeleteTransaction(ctx, id, scope)
}

func (a *BackendAdapter) MonthSummary(ctx context.Context, year, month int, projected bool) (core.MonthSummary, error) {
	return a.summaries.MonthSummary(ctx, year, month, projected)
}

func (a *BackendAdapter) Trend(ctx context.Context, year, month, months int, projected bool) ([]core.MonthSummary, error) {
	return a.summaries.Trend(ctx, year, month, months, projected)
}
