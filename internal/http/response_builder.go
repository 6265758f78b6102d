// Package http provides the JSON API server and handler implementations.
//
// This file holds the wire representations of the domain types. Amounts
// travel as integer cents, dates as YYYY-MM-DD strings.
package http

import (
	"strings"

	"conti/internal/core"
	"conti/internal/services"
)

type transactionJSON struct {
	ID                string `json:"id"`
	Description       string `json:"description"`
	AmountCents       int64  `json:"amountCents"`
	Date              string `json:"date"`
	Kind              string `json:"kind"`
	CategoryID        string `json:"categoryId,omitempty"`
	PaymentMethod     string `json:"paymentMethod,omitempty"`
	CreditCardID      string `json:"creditCardId,omitempty"`
	Installments      int    `json:"installments"`
	InstallmentNumber int    `json:"installmentNumber"`
	ParentID          string `json:"parentId,omitempty"`
	GroupKey          string `json:"groupKey"`
	Recurring         bool   `json:"recurring"`
}

func transactionToJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:                t.ID,
		Description:       t.Description,
		AmountCents:       t.Amount.Cents,
		Date:              t.Date.String(),
		Kind:              string(t.Kind),
		CategoryID:        t.CategoryID,
		PaymentMethod:     string(t.PaymentMethod),
		CreditCardID:      t.CreditCardID,
		Installments:      t.Installments,
		InstallmentNumber: t.InstallmentNumber,
		ParentID:          t.ParentID,
		GroupKey:          t.GroupKey(),
		Recurring:         t.IsRecurring,
	}
}

func transactionsToJSON(rows []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(rows))
	for i, row := range rows {
		out[i] = transactionToJSON(row)
	}
	return out
}

type categoryAmountJSON struct {
	CategoryID  string `json:"categoryId,omitempty"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amountCents"`
}

type summaryJSON struct {
	Year               int                  `json:"year"`
	Month              int                  `json:"month"`
	TotalIncomeCents   int64                `json:"totalIncomeCents"`
	TotalExpensesCents int64                `json:"totalExpensesCents"`
	BalanceCents       int64                `json:"balanceCents"`
	Projected          bool                 `json:"projected"`
	ExpensesByCategory []categoryAmountJSON `json:"expensesByCategory"`
}

func summaryToJSON(s core.MonthSummary, projected bool) summaryJSON {
	byCategory := make([]categoryAmountJSON, len(s.ExpensesByCategory))
	for i, c := range s.ExpensesByCategory {
		byCategory[i] = categoryAmountJSON{
			CategoryID:  c.CategoryID,
			Name:        c.Name,
			AmountCents: c.Amount.Cents,
		}
	}
	return summaryJSON{
		Year:               s.Year,
		Month:              s.Month,
		TotalIncomeCents:   s.TotalIncome.Cents,
		TotalExpensesCents: s.TotalExpenses.Cents,
		BalanceCents:       s.Balance.Cents,
		Projected:          projected,
		ExpensesByCategory: byCategory,
	}
}

type categoryJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
	Kind  string `json:"kind"`
}

func categoryToJSON(c core.Category) categoryJSON {
	return categoryJSON{
		ID:    c.ID,
		Name:  c.Name,
		Icon:  c.Icon,
		Color: c.Color,
		Kind:  string(c.Kind),
	}
}

type creditCardJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Brand          string `json:"brand,omitempty"`
	Bank           string `json:"bank,omitempty"`
	LimitCents     int64  `json:"limitCents"`
	UsedCents      int64  `json:"usedCents"`
	AvailableCents int64  `json:"availableCents"`
	ClosingDay     int    `json:"closingDay"`
	DueDay         int    `json:"dueDay"`
	NextClosing    string `json:"nextClosingDate"`
	NextDue        string `json:"nextDueDate"`
}

// creditCardToJSON derives available credit and the upcoming statement
// cycle so clients never recompute billing rules.
func creditCardToJSON(c core.CreditCard, today core.Date) creditCardJSON {
	cycle := services.CycleFor(c, today)
	return creditCardJSON{
		ID:             c.ID,
		Name:           c.Name,
		Brand:          c.Brand,
		Bank:           c.Bank,
		LimitCents:     c.LimitCents,
		UsedCents:      c.UsedCents,
		AvailableCents: c.LimitCents - c.UsedCents,
		ClosingDay:     c.ClosingDay,
		DueDay:         c.DueDay,
		NextClosing:    cycle.Closing.String(),
		NextDue:        cycle.Due.String(),
	}
}

type subscriptionJSON struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Service      string `json:"service,omitempty"`
	AmountCents  int64  `json:"amountCents"`
	BillingDay   int    `json:"billingDay"`
	Active       bool   `json:"active"`
	CategoryID   string `json:"categoryId,omitempty"`
	CreditCardID string `json:"creditCardId,omitempty"`
	NextBilling  string `json:"nextBillingDate"`
}

func subscriptionToJSON(s core.Subscription, today core.Date) subscriptionJSON {
	return subscriptionJSON{
		ID:           s.ID,
		Name:         s.Name,
		Service:      s.Service,
		AmountCents:  s.Amount.Cents,
		BillingDay:   s.BillingDay,
		Active:       s.Active,
		CategoryID:   s.CategoryID,
		CreditCardID: s.CreditCardID,
		NextBilling:  NextBillingString(s, today),
	}
}

// NextBillingString renders the next billing date, or "" for inactive
// subscriptions that will never bill again.
func NextBillingString(s core.Subscription, today core.Date) string {
	if !s.Active {
		return ""
	}
	return services.NextSubscriptionBilling(s, today).String()
}

type transactionRequest struct {
	Description   string `json:"description"`
	AmountCents   int64  `json:"amountCents"`
	Date          string `json:"date"`
	Kind          string `json:"kind"`
	CategoryID    string `json:"categoryId"`
	PaymentMethod string `json:"paymentMethod"`
	CreditCardID  string `json:"creditCardId"`
	Installments  int    `json:"installments"`
	Recurring     bool   `json:"recurring"`
}

func (p transactionRequest) toCore() (core.Transaction, error) {
	t := core.Transaction{
		Description:   sanitizeInput(p.Description),
		Amount:        core.Money{Cents: p.AmountCents},
		Kind:          core.TransactionKind(strings.TrimSpace(p.Kind)),
		CategoryID:    strings.TrimSpace(p.CategoryID),
		PaymentMethod: core.PaymentMethod(strings.TrimSpace(p.PaymentMethod)),
		CreditCardID:  strings.TrimSpace(p.CreditCardID),
		Installments:  p.Installments,
		IsRecurring:   p.Recurring,
	}
	if p.Date != "" {
		d, err := core.ParseDate(p.Date)
		if err != nil {
			v := core.NewValidationError()
			v.Add("date", "date must be YYYY-MM-DD")
			return core.Transaction{}, v
		}
		t.Date = d
	}
	return t, nil
}

type transactionPatchRequest struct {
	Description   *string `json:"description"`
	AmountCents   *int64  `json:"amountCents"`
	Date          *string `json:"date"`
	CategoryID    *string `json:"categoryId"`
	PaymentMethod *string `json:"paymentMethod"`
}

func (p transactionPatchRequest) toCore() (core.TransactionPatch, error) {
	patch := core.TransactionPatch{}
	if p.Description != nil {
		desc := sanitizeInput(*p.Description)
		patch.Description = &desc
	}
	if p.AmountCents != nil {
		patch.Amount = &core.Money{Cents: *p.AmountCents}
	}
	if p.Date != nil {
		d, err := core.ParseDate(*p.Date)
		if err != nil {
			v := core.NewValidationError()
			v.Add("date", "date must be YYYY-MM-DD")
			return core.TransactionPatch{}, v
		}
		patch.Date = &d
	}
	if p.CategoryID != nil {
		id := strings.TrimSpace(*p.CategoryID)
		patch.CategoryID = &id
	}
	if p.PaymentMethod != nil {
		pm := core.PaymentMethod(strings.TrimSpace(*p.PaymentMethod))
		patch.PaymentMethod = &pm
	}
	return patch, nil
}

type categoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Kind  string `json:"kind"`
}

func (p categoryRequest) toCore() core.Category {
	return core.Category{
		Name:  sanitizeInput(p.Name),
		Icon:  sanitizeInput(p.Icon),
		Color: sanitizeInput(p.Color),
		Kind:  core.CategoryKind(strings.TrimSpace(p.Kind)),
	}
}

type creditCardRequest struct {
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	Bank       string `json:"bank"`
	LimitCents int64  `json:"limitCents"`
	ClosingDay int    `json:"closingDay"`
	DueDay     int    `json:"dueDay"`
}

func (p creditCardRequest) toCore() core.CreditCard {
	return core.CreditCard{
		Name:       sanitizeInput(p.Name),
		Brand:      sanitizeInput(p.Brand),
		Bank:       sanitizeInput(p.Bank),
		LimitCents: p.LimitCents,
		ClosingDay: p.ClosingDay,
		DueDay:     p.DueDay,
	}
}

type subscriptionRequest struct {
	Name         string `json:"name"`
	Service      string `json:"service"`
	AmountCents  int64  `json:"amountCents"`
	BillingDay   int    `json:"billingDay"`
	Active       *bool  `json:"active"`
	CategoryID   string `json:"categoryId"`
	CreditCardID string `json:"creditCardId"`
}

func (p subscriptionRequest) toCore() core.Subscription {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return core.Subscription{
		Name:         sanitizeInput(p.Name),
		Service:      sanitizeInput(p.Service),
		Amount:       core.Money{Cents: p.AmountCents},
		BillingDay:   p.BillingDay,
		Active:       active,
		CategoryID:   strings.TrimSpace(p.CategoryID),
		CreditCardID: strings.TrimSpace(p.CreditCardID),
	}
}
