package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"conti/internal/core"
	"conti/internal/export"
	"conti/internal/store"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleTransactionSubtree routes /api/v1/transactions/{id} plus the
// export and suggest-category endpoints living under the same prefix.
func (s *Server) handleTransactionSubtree(w http.ResponseWriter, r *http.Request) {
	switch pathSuffix(r, "/api/v1/transactions") {
	case "":
		s.handleTransactions(w, r)
	case "export":
		s.exportTransactionsCSV(w, r)
	case "suggest-category":
		s.suggestCategory(w, r)
	default:
		s.handleTransactionByID(w, r)
	}
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := pathSuffix(r, "/api/v1/transactions")

	switch r.Method {
	case http.MethodGet:
		row, err := s.backend.GetTransaction(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, transactionToJSON(row))

	case http.MethodPut:
		s.updateTransaction(w, r, id)

	case http.MethodDelete:
		s.deleteTransaction(w, r, id)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if !validMonth(year, month) {
		writeBadRequest(w, "year and month must form a valid month")
		return
	}

	filter := store.TransactionFilter{
		Year:        year,
		Month:       month,
		Kind:        core.TransactionKind(r.URL.Query().Get("kind")),
		CategoryID:  r.URL.Query().Get("categoryId"),
		CardID:      r.URL.Query().Get("cardId"),
		IncludeCard: parseBoolParam(r, "includeCard"),
		Limit:       parseIntParam(r, "limit", 0),
	}

	// Only the plain month listing is cached; filtered variants go to
	// the backend so the cache keys stay month-prefixed.
	cacheable := filter.Kind == "" && filter.CategoryID == "" && filter.CardID == "" &&
		!filter.IncludeCard && filter.Limit == 0

	if cacheable {
		if rows, ok := s.listCache.Get(monthKey(year, month)); ok {
			s.cacheHit()
			writeJSON(w, http.StatusOK, map[string]any{"transactions": transactionsToJSON(rows)})
			return
		}
		s.cacheMiss()
	}

	ctx, cancel := upstreamContext(r)
	defer cancel()

	rows, err := s.backend.ListTransactions(ctx, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cacheable {
		s.listCache.Set(monthKey(year, month), rows)
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactionsToJSON(rows)})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	req, err := payload.toCore()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := s.backend.CreateTransaction(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	s.invalidateMonths(rows)

	slog.InfoContext(r.Context(), "Transaction created",
		"transaction_id", rows[0].ID,
		"description", rows[0].Description,
		"rows", len(rows),
		"amount_cents", req.Amount.Cents)

	writeJSON(w, http.StatusCreated, map[string]any{"transactions": transactionsToJSON(rows)})
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	scope, err := core.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload transactionPatchRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	patch, err := payload.toCore()
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The group snapshot pins the months touched before any date moves.
	before, _ := s.backend.GetGroup(r.Context(), id)

	rows, err := s.backend.UpdateTransaction(r.Context(), id, scope, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateMonths(before, rows)

	slog.InfoContext(r.Context(), "Transaction updated",
		"transaction_id", id,
		"scope", string(scope),
		"rows", len(rows))

	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactionsToJSON(rows)})
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	scope, err := core.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	before, _ := s.backend.GetGroup(r.Context(), id)

	n, err := s.backend.DeleteTransaction(r.Context(), id, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateMonths(before)

	slog.InfoContext(r.Context(), "Transaction deleted",
		"transaction_id", id,
		"scope", string(scope),
		"rows", n)

	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (s *Server) exportTransactionsCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	year, month := parseYearMonth(r)
	if !validMonth(year, month) {
		writeBadRequest(w, "year and month must form a valid month")
		return
	}

	ctx, cancel := upstreamContext(r)
	defer cancel()

	rows, err := s.backend.ListTransactions(ctx, store.TransactionFilter{
		Year:        year,
		Month:       month,
		IncludeCard: parseBoolParam(r, "includeCard"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	names := make(map[string]string)
	if categories, err := s.backend.ListCategories(ctx, ""); err == nil {
		for _, c := range categories {
			names[c.ID] = c.Name
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="transactions-%s.csv"`, monthKey(year, month)))

	if err := export.WriteTransactionsCSV(w, rows, names); err != nil {
		// Headers are gone already; all that is left is logging.
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err, "year", year, "month", month)
	}
}

func (s *Server) suggestCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.suggester == nil {
		writeAPIError(w, http.StatusServiceUnavailable, codeUnavailable,
			"category suggestion is not configured", nil)
		return
	}

	var payload struct {
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	description := sanitizeInput(payload.Description)
	if description == "" {
		writeAPIError(w, http.StatusUnprocessableEntity, codeValidation, "validation failed",
			map[string]string{"description": "description is required"})
		return
	}

	categories, err := s.backend.ListCategories(r.Context(), core.CategoryExpense)
	if err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	suggestion, err := s.suggester.SuggestCategory(r.Context(), description, categories)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Category suggested",
		"description", description,
		"category", suggestion.Category,
		"confidence", suggestion.Confidence,
		"duration_ms", time.Since(start).Milliseconds())

	writeJSON(w, http.StatusOK, map[string]any{
		"categoryId": suggestion.CategoryID,
		"category":   suggestion.Category,
		"confidence": suggestion.Confidence,
	})
}
