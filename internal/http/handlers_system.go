package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady answers ready only when the backend can serve a read, so
// orchestrators stop routing to an instance whose store has gone away.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := upstreamContext(r)
	defer cancel()

	if _, err := s.backend.ListCategories(ctx, ""); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("backend unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics reports plain-text counters: request totals from the trace
// middleware, cache effectiveness, rate limiting and security detections.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	traceMetrics := s.traceMiddleware.GetMetrics()
	limiterMetrics := s.rateLimiter.GetMetrics()
	detectionMetrics := s.securityDetector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "uptime_seconds %d\n", int64(time.Since(s.appMetrics.startedAt).Seconds()))
	fmt.Fprintf(w, "http_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "http_client_errors_total %d\n", traceMetrics.ClientErrors)
	fmt.Fprintf(w, "http_server_errors_total %d\n", traceMetrics.ServerErrors)
	fmt.Fprintf(w, "http_avg_response_micros %d\n", traceMetrics.AverageResponseTime())
	fmt.Fprintf(w, "transactions_created_total %d\n", atomic.LoadInt64(&s.appMetrics.transactionsCreated))
	fmt.Fprintf(w, "cache_hits_total %d\n", atomic.LoadInt64(&s.appMetrics.cacheHits))
	fmt.Fprintf(w, "cache_misses_total %d\n", atomic.LoadInt64(&s.appMetrics.cacheMisses))
	fmt.Fprintf(w, "cache_summary_entries %d\n", s.summaryCache.Size())
	fmt.Fprintf(w, "cache_trend_entries %d\n", s.trendCache.Size())
	fmt.Fprintf(w, "cache_list_entries %d\n", s.listCache.Size())
	fmt.Fprintf(w, "ratelimit_hits_total %d\n", limiterMetrics.TotalHits)
	fmt.Fprintf(w, "ratelimit_tracked_clients %d\n", limiterMetrics.ClientCount)
	fmt.Fprintf(w, "suspicious_requests_total %d\n", detectionMetrics.SuspiciousRequests)
}
