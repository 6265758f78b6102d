package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/store"
)

// TransactionService orchestrates transaction writes across the store, the
// export queue and AMQP. Rows and card counters move in one store
// transaction; export scheduling is best-effort and never fails a request.
type TransactionService struct {
	store      store.Store
	amqpClient *amqp.Client
}

func NewTransactionService(st store.Store, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		store:      st,
		amqpClient: amqpClient,
	}
}

// CreateTransaction validates and expands a create request, persists the
// resulting rows and schedules the touched months for export.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) ([]core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if t.Installments == 0 {
		t.Installments = 1
	}
	// The expander renumbers rows; requests never carry a number themselves.
	if t.InstallmentNumber == 0 {
		t.InstallmentNumber = 1
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, t); err != nil {
		return nil, err
	}

	rows, err := ExpandTransaction(t)
	if err != nil {
		return nil, err
	}

	// Shares sum exactly to the requested amount, so the card moves by the
	// full total even when the rows are installments.
	adj := cardDelta(t.CreditCardID, t.Amount.Cents)
	if err := s.store.CreateTransactions(ctx, rows, adj); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	s.scheduleExports(ctx, rows)
	return rows, nil
}

// GetTransaction returns a single row by id.
func (s *TransactionService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// GetGroup returns every row sharing the target's group key, target included.
func (s *TransactionService) GetGroup(ctx context.Context, id string) ([]core.Transaction, error) {
	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.ListGroup(ctx, current.GroupKey())
}

// ListTransactions lists rows matching the filter.
func (s *TransactionService) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// UpdateTransaction applies a patch to one row or, in group scope, to every
// row sharing the target's group key. In group scope the patch amount is
// the new total for the whole group, re-split across its rows.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id string, scope core.Scope, patch core.TransactionPatch) ([]core.Transaction, error) {
	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	switch scope {
	case core.ScopeSingle:
		return s.updateSingle(ctx, current, patch)
	case core.ScopeGroup:
		return s.updateGroup(ctx, current, patch)
	}
	return nil, core.ErrInvalidScope
}

func (s *TransactionService) updateSingle(ctx context.Context, current core.Transaction, patch core.TransactionPatch) ([]core.Transaction, error) {
	updated := applyPatch(current, patch)
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, updated); err != nil {
		return nil, err
	}

	adj := cardDelta(current.CreditCardID, updated.Amount.Cents-current.Amount.Cents)
	if err := s.store.UpdateTransaction(ctx, updated, adj); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	// Both the old and the new month need a fresh export when the date moved.
	s.scheduleExports(ctx, []core.Transaction{current, updated})
	return []core.Transaction{updated}, nil
}

func (s *TransactionService) updateGroup(ctx context.Context, current core.Transaction, patch core.TransactionPatch) ([]core.Transaction, error) {
	if patch.Date != nil {
		v := core.NewValidationError()
		v.Add("date", "date cannot be changed for a whole group")
		return nil, v
	}

	groupKey := current.GroupKey()
	rows, err := s.store.ListGroup(ctx, groupKey)
	if err != nil {
		return nil, err
	}

	var oldTotal int64
	for _, row := range rows {
		oldTotal += row.Amount.Cents
	}

	var shares []core.Money
	if patch.Amount != nil {
		if err := patch.Amount.Validate(); err != nil {
			v := core.NewValidationError()
			v.Add("amount", "amount must be positive")
			return nil, v
		}
		shares = patch.Amount.SplitEven(len(rows))
	}

	updated := make([]core.Transaction, len(rows))
	rowPatch := patch
	rowPatch.Amount = nil
	for i, row := range rows {
		next := applyPatch(row, rowPatch)
		if shares != nil {
			next.Amount = shares[i]
		}
		if err := next.Validate(); err != nil {
			return nil, err
		}
		updated[i] = next
	}
	if err := s.checkReferences(ctx, updated[0]); err != nil {
		return nil, err
	}

	var adj *store.CardAdjustment
	if patch.Amount != nil {
		adj = cardDelta(current.CreditCardID, patch.Amount.Cents-oldTotal)
	}
	if err := s.store.UpdateGroup(ctx, groupKey, updated, adj); err != nil {
		return nil, fmt.Errorf("update transaction group: %w", err)
	}

	s.scheduleExports(ctx, updated)
	return updated, nil
}

// DeleteTransaction removes one row or, in group scope, the whole group.
// Card-linked amounts are released back to the card in the same store
// transaction, so deleting an installment set never leaves the card counter
// holding freed amounts.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string, scope core.Scope) (int, error) {
	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return 0, err
	}

	switch scope {
	case core.ScopeSingle:
		adj := cardDelta(current.CreditCardID, -current.Amount.Cents)
		if err := s.store.DeleteTransaction(ctx, id, adj); err != nil {
			return 0, fmt.Errorf("delete transaction: %w", err)
		}
		s.scheduleExports(ctx, []core.Transaction{current})
		return 1, nil

	case core.ScopeGroup:
		groupKey := current.GroupKey()
		rows, err := s.store.ListGroup(ctx, groupKey)
		if err != nil {
			return 0, err
		}
		var total int64
		for _, row := range rows {
			total += row.Amount.Cents
		}
		adj := cardDelta(current.CreditCardID, -total)
		n, err := s.store.DeleteGroup(ctx, groupKey, adj)
		if err != nil {
			return 0, fmt.Errorf("delete transaction group: %w", err)
		}
		s.scheduleExports(ctx, rows)
		return n, nil
	}
	return 0, core.ErrInvalidScope
}

// Close releases the AMQP connection. The store is closed by whoever
// opened it.
func (s *TransactionService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close amqp client: %w", err)
		}
	}
	return nil
}

func applyPatch(t core.Transaction, patch core.TransactionPatch) core.Transaction {
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Amount != nil {
		t.Amount = *patch.Amount
	}
	if patch.Date != nil {
		t.Date = *patch.Date
	}
	if patch.CategoryID != nil {
		t.CategoryID = *patch.CategoryID
	}
	if patch.PaymentMethod != nil {
		t.PaymentMethod = *patch.PaymentMethod
	}
	return t
}

func cardDelta(cardID string, delta int64) *store.CardAdjustment {
	if cardID == "" || delta == 0 {
		return nil
	}
	return &store.CardAdjustment{CardID: cardID, DeltaCents: delta}
}

// checkReferences rejects dangling category and card references as field
// errors rather than opaque constraint failures.
func (s *TransactionService) checkReferences(ctx context.Context, t core.Transaction) error {
	v := core.NewValidationError()
	if t.CategoryID != "" {
		if _, err := s.store.GetCategory(ctx, t.CategoryID); errors.Is(err, core.ErrNotFound) {
			v.Add("categoryId", "category not found")
		} else if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
	}
	if t.CreditCardID != "" {
		if _, err := s.store.GetCard(ctx, t.CreditCardID); errors.Is(err, core.ErrNotFound) {
			v.Add("creditCardId", "credit card not found")
		} else if err != nil {
			return fmt.Errorf("check credit card: %w", err)
		}
	}
	return v.OrNil()
}

// scheduleExports enqueues every distinct month the rows touch and nudges
// the worker over AMQP. Failures are logged and swallowed: the durable
// queue is the source of truth, the message only wakes the worker early.
func (s *TransactionService) scheduleExports(ctx context.Context, rows []core.Transaction) {
	seen := make(map[[2]int]struct{}, len(rows))
	for _, row := range rows {
		key := [2]int{row.Date.Year(), row.Date.Month()}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if err := s.store.EnqueueExport(ctx, key[0], key[1]); err != nil {
			slog.ErrorContext(ctx, "Failed to enqueue export",
				"year", key[0], "month", key[1], "error", err)
			continue
		}
		s.publishExportRequest(ctx, key[0], key[1])
	}
}

func (s *TransactionService) publishExportRequest(ctx context.Context, year, month int) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishExportRequest(ctx, year, month); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export request",
			"year", year, "month", month, "error", err)
	}
}
