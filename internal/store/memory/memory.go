// Package memory holds an in-memory store.Store used by the memory backend
// and as a test double. Behavior mirrors the SQLite repository, including
// the clear-on-delete semantics of category and card references.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"conti/internal/core"
	"conti/internal/store"
)

type txRecord struct {
	row core.Transaction
	seq int64
}

type exportRecord struct {
	item      store.ExportItem
	status    string
	lastError string
	updatedAt time.Time
}

type Store struct {
	mu            sync.Mutex
	transactions  map[string]txRecord
	categories    map[string]core.Category
	cards         map[string]core.CreditCard
	subscriptions map[string]core.Subscription
	exports       []*exportRecord
	nextExportID  int64
	seq           int64
}

func New() *Store {
	return &Store{
		transactions:  make(map[string]txRecord),
		categories:    make(map[string]core.Category),
		cards:         make(map[string]core.CreditCard),
		subscriptions: make(map[string]core.Subscription),
	}
}

func (s *Store) applyCardDelta(adj *store.CardAdjustment) error {
	if adj == nil || adj.DeltaCents == 0 {
		return nil
	}
	card, ok := s.cards[adj.CardID]
	if !ok {
		return fmt.Errorf("credit card %s: %w", adj.CardID, core.ErrNotFound)
	}
	card.UsedCents += adj.DeltaCents
	s.cards[adj.CardID] = card
	return nil
}

// CreateTransactions implements store.TransactionStore
func (s *Store) CreateTransactions(_ context.Context, rows []core.Transaction, adj *store.CardAdjustment) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyCardDelta(adj); err != nil {
		return err
	}
	for _, row := range rows {
		s.seq++
		s.transactions[row.ID] = txRecord{row: row, seq: s.seq}
	}
	return nil
}

// GetTransaction implements store.TransactionStore
func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return rec.row, nil
}

func matchesFilter(t core.Transaction, f store.TransactionFilter) bool {
	if f.Year > 0 && f.Month > 0 {
		if t.Date.Year() != f.Year || t.Date.Month() != f.Month {
			return false
		}
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.CardID != "" {
		return t.CreditCardID == f.CardID
	}
	if !f.IncludeCard && t.CreditCardID != "" {
		return false
	}
	return true
}

// ListTransactions implements store.TransactionStore
func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]txRecord, 0, len(s.transactions))
	for _, rec := range s.transactions {
		if matchesFilter(rec.row, f) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].row.Date.Equal(recs[j].row.Date.Time) {
			return recs[i].row.Date.After(recs[j].row.Date.Time)
		}
		return recs[i].seq > recs[j].seq
	})
	if f.Limit > 0 && len(recs) > f.Limit {
		recs = recs[:f.Limit]
	}

	out := make([]core.Transaction, len(recs))
	for i, rec := range recs {
		out[i] = rec.row
	}
	return out, nil
}

// ListGroup implements store.TransactionStore
func (s *Store) ListGroup(_ context.Context, groupKey string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := s.groupLocked(groupKey)
	if len(group) == 0 {
		return nil, fmt.Errorf("transaction group %s: %w", groupKey, core.ErrNotFound)
	}
	return group, nil
}

func (s *Store) groupLocked(groupKey string) []core.Transaction {
	var group []core.Transaction
	for _, rec := range s.transactions {
		if rec.row.ID == groupKey || rec.row.ParentID == groupKey {
			group = append(group, rec.row)
		}
	}
	sort.Slice(group, func(i, j int) bool {
		if group[i].InstallmentNumber != group[j].InstallmentNumber {
			return group[i].InstallmentNumber < group[j].InstallmentNumber
		}
		return group[i].Date.Before(group[j].Date.Time)
	})
	return group
}

// UpdateTransaction implements store.TransactionStore
func (s *Store) UpdateTransaction(_ context.Context, row core.Transaction, adj *store.CardAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.transactions[row.ID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", row.ID, core.ErrNotFound)
	}
	if err := s.applyCardDelta(adj); err != nil {
		return err
	}
	rec.row = row
	s.transactions[row.ID] = rec
	return nil
}

// UpdateGroup implements store.TransactionStore
func (s *Store) UpdateGroup(_ context.Context, groupKey string, rows []core.Transaction, adj *store.CardAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		if _, ok := s.transactions[row.ID]; !ok {
			return fmt.Errorf("transaction %s: %w", row.ID, core.ErrNotFound)
		}
	}
	if err := s.applyCardDelta(adj); err != nil {
		return err
	}
	for _, row := range rows {
		rec := s.transactions[row.ID]
		rec.row = row
		s.transactions[row.ID] = rec
	}
	return nil
}

// DeleteTransaction implements store.TransactionStore
func (s *Store) DeleteTransaction(_ context.Context, id string, adj *store.CardAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err := s.applyCardDelta(adj); err != nil {
		return err
	}
	delete(s.transactions, id)
	return nil
}

// DeleteGroup implements store.TransactionStore
func (s *Store) DeleteGroup(_ context.Context, groupKey string, adj *store.CardAdjustment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := s.groupLocked(groupKey)
	if len(group) == 0 {
		return 0, fmt.Errorf("transaction group %s: %w", groupKey, core.ErrNotFound)
	}
	if err := s.applyCardDelta(adj); err != nil {
		return 0, err
	}
	for _, row := range group {
		delete(s.transactions, row.ID)
	}
	return len(group), nil
}

// ReadMonthSummary implements store.SummaryStore
func (s *Store) ReadMonthSummary(_ context.Context, year, month int) (core.MonthSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := core.MonthSummary{Year: year, Month: month}
	byCategory := make(map[string]int64)

	for _, rec := range s.transactions {
		t := rec.row
		if t.Date.Year() != year || t.Date.Month() != month {
			continue
		}
		switch t.Kind {
		case core.Income:
			summary.TotalIncome.Cents += t.Amount.Cents
		case core.Expense:
			summary.TotalExpenses.Cents += t.Amount.Cents
			byCategory[t.CategoryID] += t.Amount.Cents
		}
	}
	summary.Balance.Cents = summary.TotalIncome.Cents - summary.TotalExpenses.Cents

	for categoryID, cents := range byCategory {
		if cents <= 0 {
			continue
		}
		name := "Uncategorized"
		if c, ok := s.categories[categoryID]; ok {
			name = c.Name
		}
		summary.ExpensesByCategory = append(summary.ExpensesByCategory, core.CategoryAmount{
			CategoryID: categoryID,
			Name:       name,
			Amount:     core.Money{Cents: cents},
		})
	}
	sort.Slice(summary.ExpensesByCategory, func(i, j int) bool {
		a, b := summary.ExpensesByCategory[i], summary.ExpensesByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})

	return summary, nil
}

// ListRecurringAnchors implements store.SummaryStore
func (s *Store) ListRecurringAnchors(_ context.Context, until core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var anchors []core.Transaction
	for _, rec := range s.transactions {
		t := rec.row
		if t.IsRecurring && t.ParentID == "" && !t.Date.After(until.Time) {
			anchors = append(anchors, t)
		}
	}
	sort.Slice(anchors, func(i, j int) bool {
		return anchors[i].Date.Before(anchors[j].Date.Time)
	})
	return anchors, nil
}

// CreateCategory implements store.CategoryStore
func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

// GetCategory implements store.CategoryStore
func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	return c, nil
}

// ListCategories implements store.CategoryStore
func (s *Store) ListCategories(_ context.Context, kind core.CategoryKind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Category
	for _, c := range s.categories {
		if kind != "" && c.Kind != kind {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateCategory implements store.CategoryStore
func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[c.ID]; !ok {
		return fmt.Errorf("category %s: %w", c.ID, core.ErrNotFound)
	}
	s.categories[c.ID] = c
	return nil
}

// DeleteCategory implements store.CategoryStore. References fall back to
// uncategorized, matching the SQLite ON DELETE SET NULL rule.
func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	delete(s.categories, id)
	for key, rec := range s.transactions {
		if rec.row.CategoryID == id {
			rec.row.CategoryID = ""
			s.transactions[key] = rec
		}
	}
	for key, sub := range s.subscriptions {
		if sub.CategoryID == id {
			sub.CategoryID = ""
			s.subscriptions[key] = sub
		}
	}
	return nil
}

// CreateCard implements store.CardStore
func (s *Store) CreateCard(_ context.Context, c core.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[c.ID] = c
	return nil
}

// GetCard implements store.CardStore
func (s *Store) GetCard(_ context.Context, id string) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return core.CreditCard{}, fmt.Errorf("credit card %s: %w", id, core.ErrNotFound)
	}
	return c, nil
}

// ListCards implements store.CardStore
func (s *Store) ListCards(_ context.Context) ([]core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.CreditCard, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateCard implements store.CardStore. The used amount only moves
// through CardAdjustment deltas, so the stored value is kept.
func (s *Store) UpdateCard(_ context.Context, c core.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.cards[c.ID]
	if !ok {
		return fmt.Errorf("credit card %s: %w", c.ID, core.ErrNotFound)
	}
	c.UsedCents = existing.UsedCents
	s.cards[c.ID] = c
	return nil
}

// DeleteCard implements store.CardStore
func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[id]; !ok {
		return fmt.Errorf("credit card %s: %w", id, core.ErrNotFound)
	}
	refs := 0
	for _, rec := range s.transactions {
		if rec.row.CreditCardID == id {
			refs++
		}
	}
	if refs > 0 {
		return fmt.Errorf("credit card %s has %d transactions: %w", id, refs, core.ErrCardInUse)
	}
	delete(s.cards, id)
	for key, sub := range s.subscriptions {
		if sub.CreditCardID == id {
			sub.CreditCardID = ""
			s.subscriptions[key] = sub
		}
	}
	return nil
}

// ListCardTransactions implements store.CardStore
func (s *Store) ListCardTransactions(ctx context.Context, cardID string, year, month int) ([]core.Transaction, error) {
	return s.ListTransactions(ctx, store.TransactionFilter{
		Year:   year,
		Month:  month,
		CardID: cardID,
	})
}

// CreateSubscription implements store.SubscriptionStore
func (s *Store) CreateSubscription(_ context.Context, sub core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = sub
	return nil
}

// GetSubscription implements store.SubscriptionStore
func (s *Store) GetSubscription(_ context.Context, id string) (core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return core.Subscription{}, fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
	}
	return sub, nil
}

// ListSubscriptions implements store.SubscriptionStore
func (s *Store) ListSubscriptions(_ context.Context, onlyActive bool) ([]core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Subscription
	for _, sub := range s.subscriptions {
		if onlyActive && !sub.Active {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateSubscription implements store.SubscriptionStore
func (s *Store) UpdateSubscription(_ context.Context, sub core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID]; !ok {
		return fmt.Errorf("subscription %s: %w", sub.ID, core.ErrNotFound)
	}
	s.subscriptions[sub.ID] = sub
	return nil
}

// DeleteSubscription implements store.SubscriptionStore
func (s *Store) DeleteSubscription(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[id]; !ok {
		return fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
	}
	delete(s.subscriptions, id)
	return nil
}

// EnqueueExport implements store.ExportQueue
func (s *Store) EnqueueExport(_ context.Context, year, month int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.exports {
		if rec.item.Year == year && rec.item.Month == month &&
			(rec.status == "pending" || rec.status == "processing") {
			return nil
		}
	}
	s.nextExportID++
	s.exports = append(s.exports, &exportRecord{
		item: store.ExportItem{
			ID:         s.nextExportID,
			Year:       year,
			Month:      month,
			EnqueuedAt: time.Now(),
		},
		status:    "pending",
		updatedAt: time.Now(),
	})
	return nil
}

// DequeueExportBatch implements store.ExportQueue
func (s *Store) DequeueExportBatch(_ context.Context, limit int) ([]store.ExportItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []store.ExportItem
	for _, rec := range s.exports {
		if len(items) >= limit {
			break
		}
		if rec.status != "pending" {
			continue
		}
		rec.status = "processing"
		rec.item.Attempts++
		rec.updatedAt = time.Now()
		items = append(items, rec.item)
	}
	return items, nil
}

func (s *Store) findExport(id int64) *exportRecord {
	for _, rec := range s.exports {
		if rec.item.ID == id {
			return rec
		}
	}
	return nil
}

// MarkExportCompleted implements store.ExportQueue
func (s *Store) MarkExportCompleted(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.findExport(id); rec != nil {
		rec.status = "completed"
		rec.lastError = ""
		rec.updatedAt = time.Now()
	}
	return nil
}

// MarkExportFailed implements store.ExportQueue
func (s *Store) MarkExportFailed(_ context.Context, id int64, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.findExport(id); rec != nil {
		rec.status = "failed"
		rec.lastError = lastError
		rec.updatedAt = time.Now()
	}
	return nil
}

// RequeueExport implements store.ExportQueue
func (s *Store) RequeueExport(_ context.Context, id int64, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.findExport(id); rec != nil {
		rec.status = "pending"
		rec.lastError = lastError
		rec.updatedAt = time.Now()
	}
	return nil
}

// ResetStaleExports implements store.ExportQueue
func (s *Store) ResetStaleExports(_ context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	reset := 0
	for _, rec := range s.exports {
		if rec.status == "processing" && rec.updatedAt.Before(cutoff) {
			rec.status = "pending"
			rec.updatedAt = time.Now()
			reset++
		}
	}
	return reset, nil
}

// CleanupCompletedExports implements store.ExportQueue
func (s *Store) CleanupCompletedExports(_ context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	kept := s.exports[:0]
	removed := 0
	for _, rec := range s.exports {
		done := rec.status == "completed" || rec.status == "failed"
		if done && rec.updatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.exports = kept
	return removed, nil
}
