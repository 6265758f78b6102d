package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"conti/internal/core"
	"conti/internal/store"
)

// SummaryService computes monthly aggregates and trends on top of the
// store's persisted rows.
type SummaryService struct {
	store store.Store
}

func NewSummaryService(st store.Store) *SummaryService {
	return &SummaryService{store: st}
}

// MonthSummary returns the month's aggregate. With projected set, virtual
// occurrences of recurring series are overlaid on top of the persisted
// rows; nothing is written back.
func (s *SummaryService) MonthSummary(ctx context.Context, year, month int, projected bool) (core.MonthSummary, error) {
	summary, err := s.store.ReadMonthSummary(ctx, year, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("read month summary: %w", err)
	}
	if !projected {
		return summary, nil
	}
	return s.overlayRecurring(ctx, summary)
}

// Trend returns the n month summaries ending at the given month, oldest
// first. Months are aggregated concurrently; one failed month fails the
// whole trend.
func (s *SummaryService) Trend(ctx context.Context, year, month, months int, projected bool) ([]core.MonthSummary, error) {
	if months <= 0 {
		months = 6
	}

	out := make([]core.MonthSummary, months)
	g, gctx := errgroup.WithContext(ctx)
	anchor := core.NewDate(year, month, 1)
	for i := 0; i < months; i++ {
		g.Go(func() error {
			d := anchor.AddMonths(i - months + 1)
			summary, err := s.MonthSummary(gctx, d.Year(), d.Month(), projected)
			if err != nil {
				return fmt.Errorf("summary %04d-%02d: %w", d.Year(), d.Month(), err)
			}
			out[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SummaryService) overlayRecurring(ctx context.Context, summary core.MonthSummary) (core.MonthSummary, error) {
	endOfMonth := core.NewDate(summary.Year, summary.Month, core.DaysInMonth(summary.Year, summary.Month))
	anchors, err := s.store.ListRecurringAnchors(ctx, endOfMonth)
	if err != nil {
		return summary, fmt.Errorf("list recurring anchors: %w", err)
	}

	for _, anchor := range anchors {
		occ, ok := ProjectRecurring(anchor, summary.Year, summary.Month)
		if !ok {
			continue
		}
		switch occ.Kind {
		case core.Income:
			summary.TotalIncome.Cents += occ.Amount.Cents
		case core.Expense:
			summary.TotalExpenses.Cents += occ.Amount.Cents
			s.mergeExpenseCategory(ctx, &summary, occ)
		}
	}
	summary.Balance.Cents = summary.TotalIncome.Cents - summary.TotalExpenses.Cents

	sort.Slice(summary.ExpensesByCategory, func(i, j int) bool {
		a, b := summary.ExpensesByCategory[i], summary.ExpensesByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return summary, nil
}

func (s *SummaryService) mergeExpenseCategory(ctx context.Context, summary *core.MonthSummary, occ core.Transaction) {
	for i := range summary.ExpensesByCategory {
		if summary.ExpensesByCategory[i].CategoryID == occ.CategoryID {
			summary.ExpensesByCategory[i].Amount.Cents += occ.Amount.Cents
			return
		}
	}

	name := "Uncategorized"
	if occ.CategoryID != "" {
		if c, err := s.store.GetCategory(ctx, occ.CategoryID); err == nil {
			name = c.Name
		}
	}
	summary.ExpensesByCategory = append(summary.ExpensesByCategory, core.CategoryAmount{
		CategoryID: occ.CategoryID,
		Name:       name,
		Amount:     occ.Amount,
	})
}
