package http

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"conti/internal/core"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listCategories(w, r)
	case http.MethodPost:
		s.createCategory(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	id := pathSuffix(r, "/api/v1/categories")
	if id == "" {
		s.handleCategories(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.backend.GetCategory(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, categoryToJSON(c))

	case http.MethodPut:
		s.updateCategory(w, r, id)

	case http.MethodDelete:
		s.deleteCategory(w, r, id)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	kind := core.CategoryKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeBadRequest(w, "kind must be income, expense or subscription")
		return
	}

	ctx, cancel := upstreamContext(r)
	defer cancel()

	categories, err := s.backend.ListCategories(ctx, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]categoryJSON, len(categories))
	for i, c := range categories {
		out[i] = categoryToJSON(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	c := payload.toCore()
	c.ID = uuid.NewString()
	if err := c.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.backend.CreateCategory(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Category created",
		"category_id", c.ID,
		"name", c.Name,
		"kind", string(c.Kind))

	writeJSON(w, http.StatusCreated, categoryToJSON(c))
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request, id string) {
	var payload categoryRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	c := payload.toCore()
	c.ID = id
	if err := c.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.backend.UpdateCategory(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}

	// Renames surface in summary breakdowns, so cached reads go stale.
	s.summaryCache.Clear()
	s.trendCache.Clear()

	writeJSON(w, http.StatusOK, categoryToJSON(c))
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.backend.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	// Referencing rows degrade to uncategorized; every cached view that
	// named the category is now wrong.
	s.summaryCache.Clear()
	s.trendCache.Clear()
	s.listCache.Clear()

	slog.InfoContext(r.Context(), "Category deleted", "category_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": 1})
}
