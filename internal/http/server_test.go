package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"conti/internal/adapters"
	"conti/internal/services"
	"conti/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := memory.New()
	transactions := services.NewTransactionService(st, nil)
	summaries := services.NewSummaryService(st)
	srv := NewServer(":0", adapters.NewBackendAdapter(st, transactions, summaries), nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var env errorEnvelope
	decodeBody(t, rr, &env)
	return env.Error
}

type transactionsResponse struct {
	Transactions []transactionJSON `json:"transactions"`
}

func createTransaction(t *testing.T, srv *Server, body string) []transactionJSON {
	t.Helper()
	rr := do(srv, http.MethodPost, "/api/v1/transactions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var resp transactionsResponse
	decodeBody(t, rr, &resp)
	if len(resp.Transactions) == 0 {
		t.Fatal("create returned no rows")
	}
	return resp.Transactions
}

func createCard(t *testing.T, srv *Server) string {
	t.Helper()
	rr := do(srv, http.MethodPost, "/api/v1/credit-cards",
		`{"name":"Visa","limitCents":500000,"closingDay":15,"dueDay":5}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create card status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var card creditCardJSON
	decodeBody(t, rr, &card)
	return card.ID
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/healthz", "")
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	do(srv, http.MethodGet, "/healthz", "")

	rr := do(srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{"uptime_seconds", "http_requests_total", "transactions_created_total", "cache_hits_total"} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}

	if rr := do(srv, http.MethodPost, "/metrics", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /metrics status = %d, want 405", rr.Code)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{
			name:       "malformed body",
			body:       "{broken",
			wantStatus: http.StatusBadRequest,
			wantCode:   codeValidation,
		},
		{
			name:       "missing description",
			body:       `{"amountCents":1000,"date":"2024-03-10","kind":"expense"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeValidation,
			wantField:  "description",
		},
		{
			name:       "zero amount",
			body:       `{"description":"x","amountCents":0,"date":"2024-03-10","kind":"expense"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeValidation,
			wantField:  "amount",
		},
		{
			name:       "bad kind",
			body:       `{"description":"x","amountCents":1000,"date":"2024-03-10","kind":"transfer"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeValidation,
			wantField:  "kind",
		},
		{
			name:       "bad date format",
			body:       `{"description":"x","amountCents":1000,"date":"10/03/2024","kind":"expense"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeValidation,
			wantField:  "date",
		},
		{
			name:       "card on income",
			body:       `{"description":"x","amountCents":1000,"date":"2024-03-10","kind":"income","creditCardId":"card-1"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeValidation,
			wantField:  "creditCardId",
		},
		{
			name:       "unknown category",
			body:       `{"description":"x","amountCents":1000,"date":"2024-03-10","kind":"expense","categoryId":"nope"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeValidation,
			wantField:  "categoryId",
		},
		{
			name:       "recurring installments conflict",
			body:       `{"description":"x","amountCents":1000,"date":"2024-03-10","kind":"expense","installments":3,"recurring":true}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeConflictingMode,
		},
		{
			name:       "installments out of range",
			body:       `{"description":"x","amountCents":1000,"date":"2024-03-10","kind":"expense","installments":25}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeValidation,
			wantField:  "installments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/api/v1/transactions", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			apiErr := decodeErr(t, rr)
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if tt.wantField != "" {
				if _, ok := apiErr.Fields[tt.wantField]; !ok {
					t.Errorf("fields = %v, want %s entry", apiErr.Fields, tt.wantField)
				}
			}
		})
	}

	if rr := do(srv, http.MethodDelete, "/api/v1/transactions", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE collection status = %d, want 405", rr.Code)
	}
}

func TestCreateExpandsInstallments(t *testing.T) {
	srv := newTestServer(t)

	rows := createTransaction(t, srv,
		`{"description":"Laptop","amountCents":10000,"date":"2024-01-15","kind":"expense","installments":3}`)

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	var total int64
	for _, row := range rows {
		total += row.AmountCents
	}
	if total != 10000 {
		t.Errorf("amounts sum to %d, want 10000", total)
	}
	// Remainder cents land on the earliest rows.
	if rows[0].AmountCents != 3334 || rows[1].AmountCents != 3333 || rows[2].AmountCents != 3333 {
		t.Errorf("shares = %d/%d/%d, want 3334/3333/3333",
			rows[0].AmountCents, rows[1].AmountCents, rows[2].AmountCents)
	}

	wantDates := []string{"2024-01-15", "2024-02-15", "2024-03-15"}
	for i, row := range rows {
		if row.Date != wantDates[i] {
			t.Errorf("row %d date = %s, want %s", i, row.Date, wantDates[i])
		}
		if row.InstallmentNumber != i+1 {
			t.Errorf("row %d installment number = %d, want %d", i, row.InstallmentNumber, i+1)
		}
		if row.GroupKey != rows[0].ID {
			t.Errorf("row %d group key = %s, want %s", i, row.GroupKey, rows[0].ID)
		}
	}
	if rows[0].ParentID != "" {
		t.Errorf("first row parent = %q, want empty", rows[0].ParentID)
	}
	if rows[1].ParentID != rows[0].ID || rows[2].ParentID != rows[0].ID {
		t.Error("later rows should point at the first row")
	}
}

func TestMonthListingHidesCardRows(t *testing.T) {
	srv := newTestServer(t)
	cardID := createCard(t, srv)

	createTransaction(t, srv,
		`{"description":"Rent","amountCents":10000,"date":"2024-03-05","kind":"expense"}`)
	createTransaction(t, srv, fmt.Sprintf(
		`{"description":"Online order","amountCents":5000,"date":"2024-03-10","kind":"expense","paymentMethod":"credit","creditCardId":%q}`, cardID))

	rr := do(srv, http.MethodGet, "/api/v1/transactions?year=2024&month=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var resp transactionsResponse
	decodeBody(t, rr, &resp)
	if len(resp.Transactions) != 1 {
		t.Fatalf("history rows = %d, want card purchase hidden", len(resp.Transactions))
	}
	if resp.Transactions[0].Description != "Rent" {
		t.Errorf("visible row = %q, want Rent", resp.Transactions[0].Description)
	}

	rr = do(srv, http.MethodGet, "/api/v1/transactions?year=2024&month=3&includeCard=true", "")
	decodeBody(t, rr, &resp)
	if len(resp.Transactions) != 2 {
		t.Fatalf("includeCard rows = %d, want 2", len(resp.Transactions))
	}

	// The summary still counts the card purchase.
	rr = do(srv, http.MethodGet, "/api/v1/summary?year=2024&month=3", "")
	var summary summaryJSON
	decodeBody(t, rr, &summary)
	if summary.TotalExpensesCents != 15000 {
		t.Errorf("TotalExpensesCents = %d, want 15000", summary.TotalExpensesCents)
	}

	// And the card counter moved by the purchase amount.
	rr = do(srv, http.MethodGet, "/api/v1/credit-cards/"+cardID, "")
	var card creditCardJSON
	decodeBody(t, rr, &card)
	if card.UsedCents != 5000 {
		t.Errorf("UsedCents = %d, want 5000", card.UsedCents)
	}
}

func TestSummaryEmptyMonth(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/api/v1/summary?year=2031&month=7", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rr.Code)
	}
	var summary summaryJSON
	decodeBody(t, rr, &summary)
	if summary.TotalIncomeCents != 0 || summary.TotalExpensesCents != 0 || summary.BalanceCents != 0 {
		t.Errorf("empty month totals = %d/%d/%d, want zeros",
			summary.TotalIncomeCents, summary.TotalExpensesCents, summary.BalanceCents)
	}
	if len(summary.ExpensesByCategory) != 0 {
		t.Errorf("breakdown entries = %d, want 0", len(summary.ExpensesByCategory))
	}
}

func TestSummaryRejectsInvalidMonth(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/api/v1/summary?year=2024&month=13", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestSummaryProjectsRecurring(t *testing.T) {
	srv := newTestServer(t)

	createTransaction(t, srv,
		`{"description":"Rent","amountCents":90000,"date":"2024-01-01","kind":"expense","recurring":true}`)

	// Without projection a later month shows nothing.
	rr := do(srv, http.MethodGet, "/api/v1/summary?year=2024&month=3", "")
	var summary summaryJSON
	decodeBody(t, rr, &summary)
	if summary.TotalExpensesCents != 0 {
		t.Fatalf("unprojected TotalExpensesCents = %d, want 0", summary.TotalExpensesCents)
	}
	if summary.Projected {
		t.Error("Projected should be false by default")
	}

	rr = do(srv, http.MethodGet, "/api/v1/summary?year=2024&month=3&projected=true", "")
	decodeBody(t, rr, &summary)
	if summary.TotalExpensesCents != 90000 {
		t.Errorf("projected TotalExpensesCents = %d, want 90000", summary.TotalExpensesCents)
	}
	if !summary.Projected {
		t.Error("Projected flag should be set")
	}
}

func TestSummaryCacheInvalidatedByWrites(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/api/v1/summary?year=2024&month=3", "")
	var summary summaryJSON
	decodeBody(t, rr, &summary)
	if summary.TotalExpensesCents != 0 {
		t.Fatalf("initial TotalExpensesCents = %d, want 0", summary.TotalExpensesCents)
	}

	createTransaction(t, srv,
		`{"description":"Groceries","amountCents":4500,"date":"2024-03-10","kind":"expense"}`)

	rr = do(srv, http.MethodGet, "/api/v1/summary?year=2024&month=3", "")
	decodeBody(t, rr, &summary)
	if summary.TotalExpensesCents != 4500 {
		t.Errorf("TotalExpensesCents after write = %d, want 4500", summary.TotalExpensesCents)
	}
}

func TestTrend(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/api/v1/summary/trend?year=2024&month=6&months=7", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("months=7 status = %d, want 400", rr.Code)
	}

	createTransaction(t, srv,
		`{"description":"Groceries","amountCents":4500,"date":"2024-05-10","kind":"expense"}`)

	rr = do(srv, http.MethodGet, "/api/v1/summary/trend?year=2024&month=6&months=6", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("trend status = %d", rr.Code)
	}
	var resp struct {
		Months []summaryJSON `json:"months"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Months) != 6 {
		t.Fatalf("trend entries = %d, want 6", len(resp.Months))
	}
	if first := resp.Months[0]; first.Year != 2024 || first.Month != 1 {
		t.Errorf("first entry = %d-%d, want 2024-1", first.Year, first.Month)
	}
	if last := resp.Months[5]; last.Year != 2024 || last.Month != 6 {
		t.Errorf("last entry = %d-%d, want 2024-6", last.Year, last.Month)
	}
	if resp.Months[4].TotalExpensesCents != 4500 {
		t.Errorf("May expenses = %d, want 4500", resp.Months[4].TotalExpensesCents)
	}
}

func TestGroupUpdateResplitsAmount(t *testing.T) {
	srv := newTestServer(t)

	rows := createTransaction(t, srv,
		`{"description":"Sofa","amountCents":10000,"date":"2024-01-15","kind":"expense","installments":3}`)

	rr := do(srv, http.MethodPut, "/api/v1/transactions/"+rows[1].ID+"?scope=group",
		`{"amountCents":9000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("group update status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var resp transactionsResponse
	decodeBody(t, rr, &resp)
	if len(resp.Transactions) != 3 {
		t.Fatalf("updated rows = %d, want 3", len(resp.Transactions))
	}
	for i, row := range resp.Transactions {
		if row.AmountCents != 3000 {
			t.Errorf("row %d amount = %d, want 3000", i, row.AmountCents)
		}
	}
}

func TestGroupUpdateRejectsDateChange(t *testing.T) {
	srv := newTestServer(t)

	rows := createTransaction(t, srv,
		`{"description":"Sofa","amountCents":9000,"date":"2024-01-15","kind":"expense","installments":3}`)

	rr := do(srv, http.MethodPut, "/api/v1/transactions/"+rows[0].ID+"?scope=group",
		`{"date":"2024-02-01"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	apiErr := decodeErr(t, rr)
	if _, ok := apiErr.Fields["date"]; !ok {
		t.Errorf("fields = %v, want date entry", apiErr.Fields)
	}
}

func TestUpdateRejectsUnknownScope(t *testing.T) {
	srv := newTestServer(t)

	rows := createTransaction(t, srv,
		`{"description":"Coffee","amountCents":350,"date":"2024-03-01","kind":"expense"}`)

	rr := do(srv, http.MethodPut, "/api/v1/transactions/"+rows[0].ID+"?scope=everything",
		`{"amountCents":400}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestDeleteScopes(t *testing.T) {
	srv := newTestServer(t)

	rows := createTransaction(t, srv,
		`{"description":"Phone","amountCents":6000,"date":"2024-01-15","kind":"expense","installments":3}`)

	rr := do(srv, http.MethodDelete, "/api/v1/transactions/"+rows[2].ID+"?scope=single", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("single delete status = %d", rr.Code)
	}
	var deleted struct {
		Deleted int `json:"deleted"`
	}
	decodeBody(t, rr, &deleted)
	if deleted.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted.Deleted)
	}

	rr = do(srv, http.MethodDelete, "/api/v1/transactions/"+rows[1].ID+"?scope=group", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("group delete status = %d", rr.Code)
	}
	decodeBody(t, rr, &deleted)
	if deleted.Deleted != 2 {
		t.Errorf("group deleted = %d, want the 2 remaining rows", deleted.Deleted)
	}

	rr = do(srv, http.MethodGet, "/api/v1/transactions/"+rows[0].ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status after group delete = %d, want 404", rr.Code)
	}
}

func TestTransactionNotFound(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/api/v1/transactions/does-not-exist", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if apiErr := decodeErr(t, rr); apiErr.Code != codeNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, codeNotFound)
	}
}

func TestCategoriesCRUD(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodPost, "/api/v1/categories", `{"name":"","kind":"expense"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty name status = %d, want 422", rr.Code)
	}

	rr = do(srv, http.MethodPost, "/api/v1/categories", `{"name":"Food","icon":"🍕","kind":"expense"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var cat categoryJSON
	decodeBody(t, rr, &cat)
	if cat.ID == "" {
		t.Fatal("created category has no id")
	}

	rr = do(srv, http.MethodGet, "/api/v1/categories?kind=bogus", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad kind filter status = %d, want 400", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/api/v1/categories?kind=expense", "")
	var list struct {
		Categories []categoryJSON `json:"categories"`
	}
	decodeBody(t, rr, &list)
	if len(list.Categories) != 1 || list.Categories[0].Name != "Food" {
		t.Fatalf("list = %+v, want the one created category", list.Categories)
	}

	rr = do(srv, http.MethodPut, "/api/v1/categories/"+cat.ID, `{"name":"Dining","kind":"expense"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d", rr.Code)
	}
	decodeBody(t, rr, &cat)
	if cat.Name != "Dining" {
		t.Errorf("updated name = %q, want Dining", cat.Name)
	}

	rr = do(srv, http.MethodDelete, "/api/v1/categories/"+cat.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = do(srv, http.MethodGet, "/api/v1/categories/"+cat.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rr.Code)
	}
}

func TestCardsValidationAndInUse(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodPost, "/api/v1/credit-cards",
		`{"name":"Visa","limitCents":1000,"closingDay":0,"dueDay":5}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad closing day status = %d, want 422", rr.Code)
	}

	cardID := createCard(t, srv)
	rows := createTransaction(t, srv, fmt.Sprintf(
		`{"description":"Order","amountCents":5000,"date":"2024-03-10","kind":"expense","paymentMethod":"credit","creditCardId":%q}`, cardID))

	rr = do(srv, http.MethodDelete, "/api/v1/credit-cards/"+cardID, "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("in-use delete status = %d, want 422", rr.Code)
	}
	if apiErr := decodeErr(t, rr); apiErr.Code != codeConstraint {
		t.Errorf("code = %q, want %q", apiErr.Code, codeConstraint)
	}

	rr = do(srv, http.MethodDelete, "/api/v1/transactions/"+rows[0].ID+"?scope=single", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete transaction status = %d", rr.Code)
	}

	rr = do(srv, http.MethodDelete, "/api/v1/credit-cards/"+cardID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete after release status = %d, body: %s", rr.Code, rr.Body.String())
	}
}

func TestCardTransactionsListing(t *testing.T) {
	srv := newTestServer(t)
	cardID := createCard(t, srv)

	createTransaction(t, srv, fmt.Sprintf(
		`{"description":"Order","amountCents":5000,"date":"2024-03-10","kind":"expense","paymentMethod":"credit","creditCardId":%q}`, cardID))
	createTransaction(t, srv,
		`{"description":"Cash buy","amountCents":2000,"date":"2024-03-11","kind":"expense"}`)

	rr := do(srv, http.MethodGet, "/api/v1/credit-cards/"+cardID+"/transactions?year=2024&month=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var resp transactionsResponse
	decodeBody(t, rr, &resp)
	if len(resp.Transactions) != 1 || resp.Transactions[0].Description != "Order" {
		t.Fatalf("card rows = %+v, want just the card purchase", resp.Transactions)
	}

	rr = do(srv, http.MethodGet, "/api/v1/credit-cards/unknown/transactions?year=2024&month=3", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown card status = %d, want 404", rr.Code)
	}
}

func TestSubscriptionsCRUD(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodPost, "/api/v1/subscriptions",
		`{"name":"Streaming","amountCents":1299,"billingDay":10}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var sub subscriptionJSON
	decodeBody(t, rr, &sub)
	if !sub.Active {
		t.Error("Active should default to true")
	}
	if sub.NextBilling == "" {
		t.Error("active subscription should report a next billing date")
	}

	rr = do(srv, http.MethodPut, "/api/v1/subscriptions/"+sub.ID,
		`{"name":"Streaming","amountCents":1299,"billingDay":10,"active":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d", rr.Code)
	}
	decodeBody(t, rr, &sub)
	if sub.Active {
		t.Error("Active should be false after update")
	}
	if sub.NextBilling != "" {
		t.Errorf("inactive NextBilling = %q, want empty", sub.NextBilling)
	}

	rr = do(srv, http.MethodGet, "/api/v1/subscriptions?active=true", "")
	var list struct {
		Subscriptions []subscriptionJSON `json:"subscriptions"`
	}
	decodeBody(t, rr, &list)
	if len(list.Subscriptions) != 0 {
		t.Errorf("active list = %d entries, want 0", len(list.Subscriptions))
	}

	rr = do(srv, http.MethodGet, "/api/v1/subscriptions", "")
	decodeBody(t, rr, &list)
	if len(list.Subscriptions) != 1 {
		t.Errorf("full list = %d entries, want 1", len(list.Subscriptions))
	}

	rr = do(srv, http.MethodDelete, "/api/v1/subscriptions/"+sub.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = do(srv, http.MethodGet, "/api/v1/subscriptions/"+sub.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rr.Code)
	}
}

func TestSuggestCategoryUnavailableWithoutSuggester(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodPost, "/api/v1/transactions/suggest-category",
		`{"description":"supermarket"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if apiErr := decodeErr(t, rr); apiErr.Code != codeUnavailable {
		t.Errorf("code = %q, want %q", apiErr.Code, codeUnavailable)
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)

	createTransaction(t, srv,
		`{"description":"Groceries","amountCents":4500,"date":"2024-03-10","kind":"expense"}`)

	rr := do(srv, http.MethodGet, "/api/v1/transactions/export?year=2024&month=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions-2024-03.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	body := rr.Body.String()
	if !strings.HasPrefix(body, "date,description,amount,kind,category,payment_method,installment,recurring") {
		t.Errorf("missing header line: %s", body)
	}
	if !strings.Contains(body, "Groceries") || !strings.Contains(body, "45.00") {
		t.Errorf("missing data row: %s", body)
	}
}

func TestRateLimitAppliesToMutationsOnly(t *testing.T) {
	srv := newTestServer(t)

	var limited *httptest.ResponseRecorder
	for i := 0; i < 65; i++ {
		rr := do(srv, http.MethodPost, "/api/v1/categories",
			fmt.Sprintf(`{"name":"cat-%d","kind":"expense"}`, i))
		if rr.Code == http.StatusTooManyRequests {
			limited = rr
			break
		}
	}
	if limited == nil {
		t.Fatal("no request was rate limited")
	}
	if got := limited.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	if apiErr := decodeErr(t, limited); apiErr.Code != codeRateLimited {
		t.Errorf("code = %q, want %q", apiErr.Code, codeRateLimited)
	}

	// Reads stay unthrottled for the same client.
	rr := do(srv, http.MethodGet, "/api/v1/categories", "")
	if rr.Code != http.StatusOK {
		t.Errorf("read after limit status = %d, want 200", rr.Code)
	}
}
