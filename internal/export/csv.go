// Package export renders transaction history as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"conti/internal/core"
)

// csvRow is the flat shape a transaction takes in a download.
type csvRow struct {
	Date          string `csv:"date"`
	Description   string `csv:"description"`
	Amount        string `csv:"amount"`
	Kind          string `csv:"kind"`
	Category      string `csv:"category"`
	PaymentMethod string `csv:"payment_method"`
	Installment   string `csv:"installment"`
	Recurring     string `csv:"recurring"`
}

// WriteTransactionsCSV renders the rows to w, header first. categoryNames
// maps category ids to display names; rows without a match keep the raw id
// so no information is lost in the download.
func WriteTransactionsCSV(w io.Writer, rows []core.Transaction, categoryNames map[string]string) error {
	out := make([]csvRow, 0, len(rows))
	for _, t := range rows {
		out = append(out, toCSVRow(t, categoryNames))
	}

	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	if err := gocsv.MarshalCSV(&out, writer); err != nil {
		return fmt.Errorf("marshal transactions csv: %w", err)
	}
	return nil
}

func toCSVRow(t core.Transaction, categoryNames map[string]string) csvRow {
	category := t.CategoryID
	if name, ok := categoryNames[t.CategoryID]; ok {
		category = name
	}

	row := csvRow{
		Date:          t.Date.String(),
		Description:   t.Description,
		Amount:        t.Amount.Decimal(),
		Kind:          string(t.Kind),
		Category:      category,
		PaymentMethod: string(t.PaymentMethod),
	}
	if t.Installments > 1 {
		row.Installment = fmt.Sprintf("%d/%d", t.InstallmentNumber, t.Installments)
	}
	if t.IsRecurring {
		row.Recurring = "yes"
	}
	return row
}
