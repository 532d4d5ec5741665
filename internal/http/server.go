// Package http exposes the expense REST API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"khoroch/internal/cache"
	"khoroch/internal/core"
	"khoroch/internal/log"
)

const (
	listCacheKey    = "expenses:all"
	summaryCacheKey = "expenses:summary"
)

// ExpenseStore is what the handlers need from the service layer.
type ExpenseStore interface {
	Create(ctx context.Context, e core.Expense) (core.Expense, error)
	Get(ctx context.Context, id int64) (core.Expense, error)
	Update(ctx context.Context, id int64, e core.Expense) (core.Expense, error)
	Delete(ctx context.Context, id int64) (core.Expense, error)
	List(ctx context.Context) ([]core.Expense, error)
	Summary(ctx context.Context) (core.Summary, error)
	Ping(ctx context.Context) error
}

// Options tune the server. Zero values fall back to sane defaults.
type Options struct {
	CORSOrigins        []string
	RateLimitPerMinute int
	CacheTTL           time.Duration
	Logger             *log.Logger
}

type Server struct {
	http.Server
	store       ExpenseStore
	logger      *log.Logger
	corsOrigins map[string]bool
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Read caches, cleared on every mutation so clients never see stale
	// aggregates.
	listCache    *cache.LRUCache[[]core.Expense]
	summaryCache *cache.LRUCache[core.Summary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store ExpenseStore, opts Options) *Server {
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = 60
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	origins := make(map[string]bool, len(opts.CORSOrigins))
	for _, o := range opts.CORSOrigins {
		origins[o] = true
	}

	s := &Server{
		store:        store,
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		corsOrigins:  origins,
		rateLimiter:  newRateLimiter(opts.RateLimitPerMinute),
		metrics:      &securityMetrics{},
		listCache:    cache.NewLRUCache[[]core.Expense](8, opts.CacheTTL),
		summaryCache: cache.NewLRUCache[core.Summary](8, opts.CacheTTL),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.listCache)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/expenses/stats/summary", s.handleSummary)

	mux.HandleFunc("/", s.handleNotFound)

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.withMiddleware(mux),
	}

	return s
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateCaches drops every cached read. Called after each mutation.
func (s *Server) invalidateCaches() {
	s.listCache.Clear()
	s.summaryCache.Clear()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusNotFound, "Route not found")
}
