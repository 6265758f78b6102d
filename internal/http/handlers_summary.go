package http

import (
	"fmt"
	"net/http"

	"conti/internal/core"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
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
	projected := parseBoolParam(r, "projected")

	// Projected summaries depend on recurring anchors outside the month,
	// so only plain reads go through the month-keyed cache.
	if !projected {
		if summary, ok := s.summaryCache.Get(monthKey(year, month)); ok {
			s.cacheHit()
			writeJSON(w, http.StatusOK, summaryToJSON(summary, false))
			return
		}
		s.cacheMiss()
	}

	ctx, cancel := upstreamContext(r)
	defer cancel()

	summary, err := s.backend.MonthSummary(ctx, year, month, projected)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !projected {
		s.summaryCache.Set(monthKey(year, month), summary)
	}

	writeJSON(w, http.StatusOK, summaryToJSON(summary, projected))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
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
	months := parseIntParam(r, "months", 6)
	if months != 6 && months != 12 {
		writeBadRequest(w, "months must be 6 or 12")
		return
	}
	projected := parseBoolParam(r, "projected")

	cacheKey := fmt.Sprintf("%s:%d", monthKey(year, month), months)
	if !projected {
		if summaries, ok := s.trendCache.Get(cacheKey); ok {
			s.cacheHit()
			writeJSON(w, http.StatusOK, trendToJSON(summaries, projected))
			return
		}
		s.cacheMiss()
	}

	ctx, cancel := upstreamContext(r)
	defer cancel()

	summaries, err := s.backend.Trend(ctx, year, month, months, projected)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !projected {
		s.trendCache.Set(cacheKey, summaries)
	}

	writeJSON(w, http.StatusOK, trendToJSON(summaries, projected))
}

func trendToJSON(summaries []core.MonthSummary, projected bool) map[string]any {
	out := make([]summaryJSON, len(summaries))
	for i, summary := range summaries {
		out[i] = summaryToJSON(summary, projected)
	}
	return map[string]any{"months": out}
}
