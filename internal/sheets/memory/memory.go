// Package memory holds an in-memory summary sink used by tests and by
// deployments that run without a spreadsheet configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"conti/internal/core"
	ports "conti/internal/sheets"
)

type Store struct {
	mu        sync.Mutex
	summaries map[string]core.MonthSummary
}

// Ensure interface conformance
var _ ports.SummaryWriter = (*Store)(nil)

func New() *Store {
	return &Store{summaries: make(map[string]core.MonthSummary)}
}

// WriteMonthSummary keeps the latest snapshot per month, mirroring the
// replace-on-re-export behavior of the spreadsheet writer.
func (s *Store) WriteMonthSummary(_ context.Context, sum core.MonthSummary) error {
	if sum.Month < 1 || sum.Month > 12 {
		return fmt.Errorf("invalid month: %d", sum.Month)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sum.ExpensesByCategory = append([]core.CategoryAmount(nil), sum.ExpensesByCategory...)
	s.summaries[monthKey(sum.Year, sum.Month)] = sum
	return nil
}

// Summary returns the stored snapshot for a month, if any.
func (s *Store) Summary(year, month int) (core.MonthSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[monthKey(year, month)]
	return sum, ok
}

// Count returns how many distinct months have been exported.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.summaries)
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
