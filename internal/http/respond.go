package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"conti/internal/core"
)

// Error envelope codes. Clients branch on these, not on messages.
const (
	codeValidation      = "validation"
	codeNotFound        = "not_found"
	codeConflictingMode = "conflicting_mode"
	codeConstraint      = "constraint"
	codeRateLimited     = "rate_limited"
	codeUnavailable     = "unavailable"
	codeInternal        = "internal"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Fields:  fields,
	}})
}

// writeError maps a domain error onto the API envelope. Anything
// unrecognized is a 500 whose detail goes to the log, not the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := core.AsValidation(err); ok {
		writeAPIError(w, http.StatusUnprocessableEntity, codeValidation, "validation failed", v.Fields)
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		writeAPIError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
	case errors.Is(err, core.ErrConflictingMode):
		writeAPIError(w, http.StatusUnprocessableEntity, codeConflictingMode, core.ErrConflictingMode.Error(), nil)
	case errors.Is(err, core.ErrInstallmentsRange):
		writeAPIError(w, http.StatusUnprocessableEntity, codeValidation, "validation failed",
			map[string]string{"installments": core.ErrInstallmentsRange.Error()})
	case errors.Is(err, core.ErrCardInUse):
		writeAPIError(w, http.StatusUnprocessableEntity, codeConstraint, core.ErrCardInUse.Error(), nil)
	case errors.Is(err, core.ErrInvalidScope):
		writeAPIError(w, http.StatusBadRequest, codeValidation, core.ErrInvalidScope.Error(), nil)
	case errors.Is(err, core.ErrInvalidAmount):
		writeAPIError(w, http.StatusUnprocessableEntity, codeValidation, "validation failed",
			map[string]string{"amount": "amount must be positive"})
	case errors.Is(err, core.ErrInvalidDate):
		writeAPIError(w, http.StatusUnprocessableEntity, codeValidation, "validation failed",
			map[string]string{"date": "date must be YYYY-MM-DD"})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		writeAPIError(w, http.StatusInternalServerError, codeInternal, "internal server error", nil)
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeAPIError(w, http.StatusBadRequest, codeValidation, message, nil)
}
