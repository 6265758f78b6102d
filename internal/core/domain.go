package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	Cash            PaymentMethod = "cash"
	Debit           PaymentMethod = "debit"
	Credit          PaymentMethod = "credit"
	InstantTransfer PaymentMethod = "instant-transfer"
	BankTransfer    PaymentMethod = "bank-transfer"
)

const (
	CategoryIncome       CategoryKind = "income"
	CategoryExpense      CategoryKind = "expense"
	CategorySubscription CategoryKind = "subscription"
)

// Installment counts accepted on a create request.
const (
	MinInstallments = 1
	MaxInstallments = 24
)

const maxDescriptionLen = 200

// Edit and delete scopes. Single touches one row, group touches every row
// sharing the target's group key.
const (
	ScopeSingle Scope = "single"
	ScopeGroup  Scope = "group"
)

type (
	TransactionKind string

	PaymentMethod string

	CategoryKind string

	Scope string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single persisted row. One create request may expand
	// into several rows (an installment set); rows belonging to the same set
	// or recurring series share a group key (see GroupKey).
	Transaction struct {
		ID                string
		Description       string
		Amount            Money
		Date              Date
		Kind              TransactionKind
		CategoryID        string
		PaymentMethod     PaymentMethod
		CreditCardID      string
		Installments      int
		InstallmentNumber int
		ParentID          string
		IsRecurring       bool
	}

	Category struct {
		ID    string
		Name  string
		Icon  string
		Color string
		Kind  CategoryKind
	}

	// CreditCard tracks a card and its maintained used amount. UsedCents is
	// adjusted alongside transaction writes, never recomputed from rows;
	// UsedCents <= LimitCents is a display constraint, not enforced here.
	CreditCard struct {
		ID         string
		Name       string
		Brand      string
		Bank       string
		LimitCents int64
		UsedCents  int64
		ClosingDay int
		DueDay     int
	}

	Subscription struct {
		ID           string
		Name         string
		Service      string
		Amount       Money
		BillingDay   int
		Active       bool
		CategoryID   string
		CreditCardID string
	}

	// TransactionPatch carries the editable fields of an update request.
	// Nil means "leave unchanged". In group scope Amount is the new total
	// for the whole group, re-split across its rows.
	TransactionPatch struct {
		Description   *string
		Amount        *Money
		Date          *Date
		CategoryID    *string
		PaymentMethod *PaymentMethod
	}
)

// GroupKey resolves the identity shared by every row of an installment set
// or recurring series: the parent transaction's id when one is set, the
// transaction's own id otherwise. All "apply to the whole group" operations
// key on this value.
func (t Transaction) GroupKey() string {
	if t.ParentID != "" {
		return t.ParentID
	}
	return t.ID
}

// IsInstallmentMember reports whether the row belongs to a multi-installment
// set. Checked before IsRecurring when classifying a row for group scope.
func (t Transaction) IsInstallmentMember() bool {
	return t.Installments > 1
}

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

func (p PaymentMethod) Valid() bool {
	switch p {
	case Cash, Debit, Credit, InstantTransfer, BankTransfer:
		return true
	}
	return false
}

func (k CategoryKind) Valid() bool {
	switch k {
	case CategoryIncome, CategoryExpense, CategorySubscription:
		return true
	}
	return false
}

// ParseScope parses the scope query parameter. An absent value means single.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeSingle, nil
	case ScopeSingle:
		return ScopeSingle, nil
	case ScopeGroup:
		return ScopeGroup, nil
	}
	return "", ErrInvalidScope
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// ParseDate parses an ISO date (2006-01-02), the format dates are stored
// and exchanged in.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// AddMonths advances the date by n calendar months, clamping the day to the
// target month's length: Jan 31 advanced one month lands on Feb 28 (29 in
// leap years), not Mar 2.
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Time.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysInMonth(first.Year(), int(first.Month())); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	v := NewValidationError()
	if len(strings.TrimSpace(t.Description)) == 0 {
		v.Add("description", "description is required")
	} else if len(t.Description) > maxDescriptionLen {
		v.Add("description", "description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		v.Add("amount", "amount must be positive")
	}
	if err := t.Date.Validate(); err != nil {
		v.Add("date", "date is required")
	}
	if !t.Kind.Valid() {
		v.Add("kind", "kind must be income or expense")
	}
	if t.PaymentMethod != "" && !t.PaymentMethod.Valid() {
		v.Add("paymentMethod", "unknown payment method")
	}
	if t.CreditCardID != "" && t.Kind != Expense {
		v.Add("creditCardId", "only expenses may reference a credit card")
	}
	if t.Installments < MinInstallments {
		v.Add("installments", "installments must be at least 1")
	}
	if t.InstallmentNumber < 1 {
		v.Add("installmentNumber", "installment number must be at least 1")
	}
	return v.OrNil()
}

func (c Category) Validate() error {
	v := NewValidationError()
	if len(strings.TrimSpace(c.Name)) == 0 {
		v.Add("name", "name is required")
	} else if len(c.Name) > 100 {
		v.Add("name", "name too long (max 100 characters)")
	}
	if !c.Kind.Valid() {
		v.Add("kind", "kind must be income, expense or subscription")
	}
	return v.OrNil()
}

func (c CreditCard) Validate() error {
	v := NewValidationError()
	if len(strings.TrimSpace(c.Name)) == 0 {
		v.Add("name", "name is required")
	}
	if c.LimitCents < 0 {
		v.Add("limit", "limit cannot be negative")
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		v.Add("closingDay", "closing day must be between 1 and 31")
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		v.Add("dueDay", "due day must be between 1 and 31")
	}
	return v.OrNil()
}

func (s Subscription) Validate() error {
	v := NewValidationError()
	if len(strings.TrimSpace(s.Name)) == 0 {
		v.Add("name", "name is required")
	} else if len(s.Name) > 100 {
		v.Add("name", "name too long (max 100 characters)")
	}
	if err := s.Amount.Validate(); err != nil {
		v.Add("amount", "amount must be positive")
	}
	if s.BillingDay < 1 || s.BillingDay > 31 {
		v.Add("billingDay", "billing day must be between 1 and 31")
	}
	return v.OrNil()
}
