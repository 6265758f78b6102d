package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"conti/internal/core"
)

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listSubscriptions(w, r)
	case http.MethodPost:
		s.createSubscription(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSubscriptionByID(w http.ResponseWriter, r *http.Request) {
	id := pathSuffix(r, "/api/v1/subscriptions")
	if id == "" {
		s.handleSubscriptions(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		sub, err := s.backend.GetSubscription(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, subscriptionToJSON(sub, today()))

	case http.MethodPut:
		s.updateSubscription(w, r, id)

	case http.MethodDelete:
		s.deleteSubscription(w, r, id)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	onlyActive := parseBoolParam(r, "active")

	ctx, cancel := upstreamContext(r)
	defer cancel()

	subs, err := s.backend.ListSubscriptions(ctx, onlyActive)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := today()
	out := make([]subscriptionJSON, len(subs))
	for i, sub := range subs {
		out[i] = subscriptionToJSON(sub, now)
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	var payload subscriptionRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	sub := payload.toCore()
	sub.ID = uuid.NewString()
	if err := sub.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.checkSubscriptionReferences(r, sub); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.backend.CreateSubscription(r.Context(), sub); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Subscription created",
		"subscription_id", sub.ID,
		"name", sub.Name,
		"amount_cents", sub.Amount.Cents,
		"billing_day", sub.BillingDay)

	writeJSON(w, http.StatusCreated, subscriptionToJSON(sub, today()))
}

func (s *Server) updateSubscription(w http.ResponseWriter, r *http.Request, id string) {
	var payload subscriptionRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	sub := payload.toCore()
	sub.ID = id
	if err := sub.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.checkSubscriptionReferences(r, sub); err != nil {
		writeError(w, r, err)
		return
	}

	// Toggling active only changes what bills from now on; past
	// transactions stay as they were recorded.
	if err := s.backend.UpdateSubscription(r.Context(), sub); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionToJSON(sub, today()))
}

func (s *Server) deleteSubscription(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.backend.DeleteSubscription(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Subscription deleted", "subscription_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": 1})
}

// checkSubscriptionReferences rejects dangling category and card
// references as field errors, mirroring the transaction create path.
func (s *Server) checkSubscriptionReferences(r *http.Request, sub core.Subscription) error {
	v := core.NewValidationError()
	if sub.CategoryID != "" {
		if _, err := s.backend.GetCategory(r.Context(), sub.CategoryID); errors.Is(err, core.ErrNotFound) {
			v.Add("categoryId", "category not found")
		} else if err != nil {
			return err
		}
	}
	if sub.CreditCardID != "" {
		if _, err := s.backend.GetCard(r.Context(), sub.CreditCardID); errors.Is(err, core.ErrNotFound) {
			v.Add("creditCardId", "credit card not found")
		} else if err != nil {
			return err
		}
	}
	return v.OrNil()
}
