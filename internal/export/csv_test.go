package export

import (
	"bytes"
	"strings"
	"testing"

	"conti/internal/core"
)

func TestWriteTransactionsCSV(t *testing.T) {
	rows := []core.Transaction{
		{
			ID:                "t1",
			Description:       "Groceries",
			Amount:            core.Money{Cents: 4550},
			Date:              core.NewDate(2025, 1, 10),
			Kind:              core.Expense,
			CategoryID:        "cat-1",
			PaymentMethod:     core.Debit,
			Installments:      1,
			InstallmentNumber: 1,
		},
		{
			ID:                "t2",
			Description:       "New laptop",
			Amount:            core.Money{Cents: 30000},
			Date:              core.NewDate(2025, 1, 15),
			Kind:              core.Expense,
			Installments:      3,
			InstallmentNumber: 2,
		},
		{
			ID:                "t3",
			Description:       "Rent",
			Amount:            core.Money{Cents: 90000},
			Date:              core.NewDate(2025, 1, 1),
			Kind:              core.Expense,
			Installments:      1,
			InstallmentNumber: 1,
			IsRecurring:       true,
		},
	}
	names := map[string]string{"cat-1": "Groceries"}

	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, rows, names); err != nil {
		t.Fatalf("WriteTransactionsCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header plus 3 rows:\n%s", len(lines), buf.String())
	}

	if lines[0] != "date,description,amount,kind,category,payment_method,installment,recurring" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "2025-01-10,Groceries,45.50,expense,Groceries,debit,," {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "2/3") {
		t.Errorf("row 2 should mark the installment position, got %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], ",yes") {
		t.Errorf("row 3 should mark the recurring flag, got %q", lines[3])
	}
}

func TestWriteTransactionsCSV_UnknownCategoryKeepsID(t *testing.T) {
	rows := []core.Transaction{{
		ID:                "t1",
		Description:       "Dinner",
		Amount:            core.Money{Cents: 3000},
		Date:              core.NewDate(2025, 1, 10),
		Kind:              core.Expense,
		CategoryID:        "cat-gone",
		Installments:      1,
		InstallmentNumber: 1,
	}}

	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, rows, nil); err != nil {
		t.Fatalf("WriteTransactionsCSV() error = %v", err)
	}
	if !strings.Contains(buf.String(), "cat-gone") {
		t.Errorf("raw category id should survive, got:\n%s", buf.String())
	}
}

func TestWriteTransactionsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, nil, nil); err != nil {
		t.Fatalf("WriteTransactionsCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("empty export should still carry the header, got:\n%s", buf.String())
	}
}
