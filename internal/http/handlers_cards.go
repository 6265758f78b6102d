package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"conti/internal/core"
)

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listCards(w, r)
	case http.MethodPost:
		s.createCard(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCardSubtree routes /api/v1/credit-cards/{id} and the per-card
// transaction listing underneath it. Card-derived rows are hidden from
// the general history, so the card detail is where they surface.
func (s *Server) handleCardSubtree(w http.ResponseWriter, r *http.Request) {
	suffix := pathSuffix(r, "/api/v1/credit-cards")
	if suffix == "" {
		s.handleCards(w, r)
		return
	}

	id, rest, _ := strings.Cut(suffix, "/")
	switch rest {
	case "":
		s.handleCardByID(w, r, id)
	case "transactions":
		s.listCardTransactions(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCardByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		card, err := s.backend.GetCard(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, creditCardToJSON(card, today()))

	case http.MethodPut:
		s.updateCard(w, r, id)

	case http.MethodDelete:
		s.deleteCard(w, r, id)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := upstreamContext(r)
	defer cancel()

	cards, err := s.backend.ListCards(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := today()
	out := make([]creditCardJSON, len(cards))
	for i, card := range cards {
		out[i] = creditCardToJSON(card, now)
	}
	writeJSON(w, http.StatusOK, map[string]any{"creditCards": out})
}

func (s *Server) createCard(w http.ResponseWriter, r *http.Request) {
	var payload creditCardRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	card := payload.toCore()
	card.ID = uuid.NewString()
	if err := card.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.backend.CreateCard(r.Context(), card); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Credit card created",
		"card_id", card.ID,
		"name", card.Name,
		"limit_cents", card.LimitCents)

	writeJSON(w, http.StatusCreated, creditCardToJSON(card, today()))
}

func (s *Server) updateCard(w http.ResponseWriter, r *http.Request, id string) {
	var payload creditCardRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	card := payload.toCore()
	card.ID = id
	if err := card.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	// The store keeps the maintained used amount; only descriptive
	// fields change here.
	if err := s.backend.UpdateCard(r.Context(), card); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.backend.GetCard(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creditCardToJSON(updated, today()))
}

func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.backend.DeleteCard(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Credit card deleted", "card_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": 1})
}

func (s *Server) listCardTransactions(w http.ResponseWriter, r *http.Request, id string) {
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

	// 404s for unknown cards instead of an empty list.
	if _, err := s.backend.GetCard(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := s.backend.ListCardTransactions(ctx, id, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactionsToJSON(rows)})
}

func today() core.Date {
	now := time.Now().UTC()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}
