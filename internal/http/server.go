// Package http serves the dashboard client's JSON REST API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"spendtrail/internal/aggregate"
	"spendtrail/internal/cache"
	"spendtrail/internal/core"
	"spendtrail/internal/log"
	"spendtrail/internal/middleware/ratelimit"
	"spendtrail/internal/middleware/security"
	"spendtrail/internal/middleware/trace"
)

// Store is the storage surface the handlers write through.
type Store interface {
	Ping(ctx context.Context) error

	CreateIncome(ctx context.Context, e core.IncomeEntry) (core.IncomeEntry, error)
	CreateExpense(ctx context.Context, e core.ExpenseEntry) (core.ExpenseEntry, error)
	AddToIncomeCategory(ctx context.Context, userID int64, category string, deltaCents int64, today core.Date) (core.Money, error)
	AddToExpenseCategory(ctx context.Context, userID int64, category string, deltaCents int64, today core.Date) (core.Money, error)

	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	AddToBudget(ctx context.Context, userID int64, category string, deltaCents int64) (core.Budget, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)

	CreateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error)
	UpdateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error)
	SubscriptionByID(ctx context.Context, userID, id int64) (core.Subscription, error)
	ListSubscriptions(ctx context.Context, userID int64) ([]core.Subscription, error)

	UpdateGoals(ctx context.Context, userID int64, incomeGoal, savingsGoal core.Money) error
}

// Summarizer is the aggregator surface the dashboard routes read.
type Summarizer interface {
	SummarizePeriod(ctx context.Context, userID int64, p core.Period) (core.PeriodSummary, error)
	DashboardGraphs(ctx context.Context, userID int64, p core.Period) ([]aggregate.Graph, error)
	ExpenseBreakdown(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error)
	IncomeBreakdown(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error)
	BudgetBreakdown(ctx context.Context, userID int64) ([]core.Budget, error)
	RecentActivity(ctx context.Context, userID int64, limit int) ([]core.ExpenseEntry, error)
}

// Verifier resolves bearer tokens to users.
type Verifier interface {
	Verify(ctx context.Context, token string) (core.User, error)
}

// EntryPublisher announces committed ledger entries to the archive
// worker. Nil means archiving is disabled.
type EntryPublisher interface {
	PublishEntry(ctx context.Context, kind string, id int64) error
}

type appMetrics struct {
	uptime       time.Time
	totalEntries int64
	cacheHits    int64
	cacheMisses  int64
}

type Server struct {
	http.Server

	store      Store
	aggregator Summarizer
	verifier   Verifier
	publisher  EntryPublisher

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	securityHeaders  *security.HeadersMiddleware
	traceMiddleware  *trace.Middleware

	appLogger *log.Logger
	logs      *log.StructuredLogger

	summaryCache *cache.LRUCache[financialData]
	graphsCache  *cache.LRUCache[[]aggregate.Graph]
	reportCache  *cache.LRUCache[pastReportResponse]
	cacheManager *cache.Manager

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// Options wires a Server. Publisher may be nil.
type Options struct {
	Addr       string
	Store      Store
	Aggregator Summarizer
	Verifier   Verifier
	Publisher  EntryPublisher

	RateLimitPerMinute int
	CacheTTL           time.Duration
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(opts Options) *Server {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}

	detector := security.NewDetector()
	appLogger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentHTTP})
	s := &Server{
		store:      opts.Store,
		aggregator: opts.Aggregator,
		verifier:   opts.Verifier,
		publisher:  opts.Publisher,

		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		securityDetector: detector,
		securityHeaders:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),

		appLogger: appLogger,
		logs:      log.NewStructuredLogger(appLogger),

		summaryCache: cache.NewLRUCache[financialData](100, opts.CacheTTL),
		graphsCache:  cache.NewLRUCache[[]aggregate.Graph](100, opts.CacheTTL),
		reportCache:  cache.NewLRUCache[pastReportResponse](100, opts.CacheTTL),
		cacheManager: cache.NewManager(),

		appMetrics: appMetrics{uptime: time.Now()},
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.graphsCache)
	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /auth/profile", s.withUser(s.handleProfile))
	mux.HandleFunc("PUT /api/goals", s.withUser(s.handleUpdateGoals))

	mux.HandleFunc("POST /api/create_income", s.withUser(s.handleCreateIncome))
	mux.HandleFunc("POST /api/create_expense", s.withUser(s.handleCreateExpense))
	mux.HandleFunc("POST /api/create_budget", s.withUser(s.handleCreateBudget))
	mux.HandleFunc("PUT /api/incomes/{category}", s.withUser(s.handleAddToIncome))
	mux.HandleFunc("PUT /api/expenses/{category}", s.withUser(s.handleAddToExpense))
	mux.HandleFunc("PUT /api/budgets/{category}", s.withUser(s.handleAddToBudget))
	mux.HandleFunc("GET /api/budgets", s.withUser(s.handleListBudgets))

	mux.HandleFunc("POST /api/create_subscription", s.withUser(s.handleCreateSubscription))
	mux.HandleFunc("PUT /api/update_subscription", s.withUser(s.handleUpdateSubscription))
	mux.HandleFunc("GET /api/subscriptions", s.withUser(s.handleListSubscriptions))

	mux.HandleFunc("GET /api/dashboard/financialData", s.withUser(s.handleFinancialData))
	mux.HandleFunc("GET /api/dashboard/graphs", s.withUser(s.handleGraphs))
	mux.HandleFunc("GET /api/dashboard/past-reports/", s.withUser(s.handlePastReport))
	mux.HandleFunc("GET /api/dashboard/recent", s.withUser(s.handleRecent))
	mux.HandleFunc("GET /api/dashboard/report.xlsx", s.withUser(s.handleReportExport))

	s.Server = http.Server{
		Addr:    opts.Addr,
		Handler: s.middleware(mux),
	}
	return s
}

// middleware is the outer chain: tracing, security headers, request
// logger propagation, and rate limiting around the whole mux.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP,
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeDetail(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		})(next)
	withReqID := log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(limited)
	withLogger := log.Middleware(s.appLogger)(withReqID)
	secured := s.securityHeaders.Middleware(withLogger)
	return s.traceMiddleware.Middleware(secured)
}

// withUser authenticates the bearer token and passes the resolved
// user to the handler.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, core.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := authTokenFrom(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		user, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		next(w, r, user)
	}
}

// invalidateUser drops every cached dashboard view of one user. Called
// after each successful write.
func (s *Server) invalidateUser(userID int64) {
	prefix := cache.UserPrefix(userID)
	s.summaryCache.DeletePrefix(prefix)
	s.graphsCache.DeletePrefix(prefix)
	s.reportCache.DeletePrefix(prefix)
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

func (s *Server) countEntry() {
	atomic.AddInt64(&s.appMetrics.totalEntries, 1)
}

func (s *Server) countCacheHit() {
	atomic.AddInt64(&s.appMetrics.cacheHits, 1)
}

func (s *Server) countCacheMiss() {
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)
}
