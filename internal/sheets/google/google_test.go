package google

import (
	"testing"

	"conti/internal/core"
)

func TestSheetTitle(t *testing.T) {
	tests := []struct {
		year, month int
		want        string
	}{
		{2025, 3, "2025-03"},
		{2025, 12, "2025-12"},
		{999, 1, "0999-01"},
	}
	for _, tt := range tests {
		if got := sheetTitle(tt.year, tt.month); got != tt.want {
			t.Errorf("sheetTitle(%d, %d) = %q, want %q", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestSummaryRows(t *testing.T) {
	s := core.MonthSummary{
		Year:          2025,
		Month:         3,
		TotalIncome:   core.Money{Cents: 250000},
		TotalExpenses: core.Money{Cents: 180050},
		Balance:       core.Money{Cents: 69950},
		ExpensesByCategory: []core.CategoryAmount{
			{CategoryID: "cat-1", Name: "Groceries", Amount: core.Money{Cents: 120000}},
			{CategoryID: "", Name: "", Amount: core.Money{Cents: 60050}},
		},
	}

	rows := summaryRows(s)

	if len(rows) != 8 {
		t.Fatalf("summaryRows() returned %d rows, want 8", len(rows))
	}
	if rows[0][1] != "2025-03" {
		t.Errorf("month cell = %v, want 2025-03", rows[0][1])
	}
	if rows[1][1] != 2500.0 {
		t.Errorf("income cell = %v, want 2500.0", rows[1][1])
	}
	if rows[2][1] != 1800.5 {
		t.Errorf("expenses cell = %v, want 1800.5", rows[2][1])
	}
	if rows[3][1] != 699.5 {
		t.Errorf("balance cell = %v, want 699.5", rows[3][1])
	}
	if rows[6][0] != "Groceries" {
		t.Errorf("first category = %v, want Groceries", rows[6][0])
	}
	if rows[7][0] != "Uncategorized" {
		t.Errorf("unnamed category = %v, want Uncategorized", rows[7][0])
	}
}

func TestEuros(t *testing.T) {
	tests := []struct {
		cents int64
		want  float64
	}{
		{0, 0},
		{100, 1},
		{12345, 123.45},
		{-550, -5.5},
	}
	for _, tt := range tests {
		if got := euros(core.Money{Cents: tt.cents}); got != tt.want {
			t.Errorf("euros(%d) = %v, want %v", tt.cents, got, tt.want)
		}
	}
}
