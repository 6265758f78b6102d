package services

import (
	"github.com/google/uuid"

	"conti/internal/core"
)

// ExpandTransaction turns one create request into the rows to persist.
//
// A plain request yields its single row. A request with N installments
// yields N rows one calendar month apart: the first row anchors the group,
// rows two through N point back at it through ParentID. The total amount
// is split so the shares sum exactly to it, with any remainder cents going
// to the earliest rows. A recurring request yields its single anchor row;
// occurrences are never materialized, only projected at read time.
func ExpandTransaction(t core.Transaction) ([]core.Transaction, error) {
	if t.Installments > 1 && t.IsRecurring {
		return nil, core.ErrConflictingMode
	}
	if t.Installments < core.MinInstallments || t.Installments > core.MaxInstallments {
		return nil, core.ErrInstallmentsRange
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.ParentID = ""
	t.InstallmentNumber = 1

	if t.Installments == 1 {
		return []core.Transaction{t}, nil
	}

	shares := t.Amount.SplitEven(t.Installments)
	rows := make([]core.Transaction, t.Installments)
	for i := range rows {
		row := t
		row.Amount = shares[i]
		row.Date = t.Date.AddMonths(i)
		row.InstallmentNumber = i + 1
		if i > 0 {
			row.ID = uuid.NewString()
			row.ParentID = t.ID
		}
		rows[i] = row
	}
	return rows, nil
}

// ProjectRecurring lays the virtual occurrences of a recurring anchor into
// a target month. The anchor itself is a persisted row; the projection
// only exists in summary responses and is recomputed on every read.
func ProjectRecurring(anchor core.Transaction, year, month int) (core.Transaction, bool) {
	if !anchor.IsRecurring {
		return core.Transaction{}, false
	}
	months := (year-anchor.Date.Year())*12 + month - anchor.Date.Month()
	if months <= 0 {
		return core.Transaction{}, false
	}
	occ := anchor
	occ.ID = ""
	occ.ParentID = anchor.ID
	occ.Date = anchor.Date.AddMonths(months)
	return occ, true
}
