package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"conti/internal/ai"
	"conti/internal/backend"
	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/middleware/ratelimit"
	"conti/internal/middleware/security"
	"conti/internal/middleware/trace"
)

// upstreamTimeout bounds backend reads behind the caches so a stuck
// store cannot pin handler goroutines.
const upstreamTimeout = 7 * time.Second

type appMetrics struct {
	startedAt           time.Time
	transactionsCreated int64
	cacheHits           int64
	cacheMisses         int64
}

type Server struct {
	http.Server

	backend   backend.Backend
	suggester ai.CategorySuggester

	// Month-keyed read caches. Mutations invalidate by month prefix;
	// trends span months, so they are dropped wholesale.
	summaryCache *cache.LRUCache[core.MonthSummary]
	trendCache   *cache.LRUCache[[]core.MonthSummary]
	listCache    *cache.LRUCache[[]core.Transaction]
	cacheManager *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	headers          *security.HeadersMiddleware
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. suggester may be nil; the suggestion endpoint then answers 503.
func NewServer(addr string, b backend.Backend, suggester ai.CategorySuggester) *Server {
	mux := http.NewServeMux()
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		backend:          b,
		suggester:        suggester,
		summaryCache:     cache.NewLRUCache[core.MonthSummary](100, 5*time.Minute),
		trendCache:       cache.NewLRUCache[[]core.MonthSummary](50, 5*time.Minute),
		listCache:        cache.NewLRUCache[[]core.Transaction](200, 5*time.Minute),
		cacheManager:     cache.NewManager(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		securityDetector: detector,
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		appMetrics:       appMetrics{startedAt: time.Now()},
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.trendCache)
	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/api/v1/transactions", s.handleTransactions)
	mux.HandleFunc("/api/v1/transactions/", s.handleTransactionSubtree)
	mux.HandleFunc("/api/v1/summary", s.handleSummary)
	mux.HandleFunc("/api/v1/summary/trend", s.handleTrend)
	mux.HandleFunc("/api/v1/categories", s.handleCategories)
	mux.HandleFunc("/api/v1/categories/", s.handleCategoryByID)
	mux.HandleFunc("/api/v1/credit-cards", s.handleCards)
	mux.HandleFunc("/api/v1/credit-cards/", s.handleCardSubtree)
	mux.HandleFunc("/api/v1/subscriptions", s.handleSubscriptions)
	mux.HandleFunc("/api/v1/subscriptions/", s.handleSubscriptionByID)

	var handler http.Handler = mux
	handler = mutationsOnly(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, onRateLimited))(handler)
	handler = s.detectProbes(handler)
	handler = s.headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Server.Handler = handler

	return s
}

// mutationsOnly applies mw to POST/PUT/DELETE requests and passes reads
// straight through, so dashboard polling never burns the write budget.
func mutationsOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete:
				limited.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func onRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		"method", r.Method,
		"path", r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeAPIError(w, http.StatusTooManyRequests, codeRateLimited, "too many requests", nil)
}

// detectProbes logs scanner traffic. Requests are never rejected on a
// heuristic; the log line is for the operator.
func (s *Server) detectProbes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", s.securityDetector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// invalidateMonths drops every cached read for the months the given rows
// fall in. Trends span months, so the whole trend cache goes.
func (s *Server) invalidateMonths(rowSets ...[]core.Transaction) {
	seen := make(map[string]struct{})
	for _, rows := range rowSets {
		for _, row := range rows {
			key := monthKey(row.Date.Year(), row.Date.Month())
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			s.summaryCache.DeletePrefix(key)
			s.listCache.DeletePrefix(key)
		}
	}
	if len(seen) > 0 {
		s.trendCache.Clear()
	}
}

// upstreamContext bounds a backend call made on behalf of a request.
func upstreamContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), upstreamTimeout)
}

func (s *Server) cacheHit() {
	atomic.AddInt64(&s.appMetrics.cacheHits, 1)
}

func (s *Server) cacheMiss() {
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)
}
