package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"spendtrail/internal/cache"
	"spendtrail/internal/core"
	"spendtrail/internal/export"
)

type goalProgress struct {
	Current float64 `json:"current"`
	Goal    float64 `json:"goal"`
}

// financialData is the wire shape of the month overview.
type financialData struct {
	Expenses goalProgress `json:"expenses"`
	Budget   goalProgress `json:"budget"`
	Income   goalProgress `json:"income"`
	Savings  goalProgress `json:"savings"`
}

type pastReportResponse struct {
	FinancialData financialData `json:"financialData"`
	GraphData     any           `json:"graph_data"`
}

type recentEntryResponse struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

type profileResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	JoinDate string `json:"join_date"`
}

type updateGoalsRequest struct {
	IncomeGoal  decimal.Decimal `json:"income_goal"`
	SavingsGoal decimal.Decimal `json:"savings_goal"`
}

func toFinancialData(s core.PeriodSummary) financialData {
	progress := func(g core.GoalProgress) goalProgress {
		return goalProgress{Current: g.Current.Units(), Goal: g.Goal.Units()}
	}
	return financialData{
		Expenses: progress(s.Expenses),
		Budget:   progress(s.Budget),
		Income:   progress(s.Income),
		Savings:  progress(s.Savings),
	}
}

func (s *Server) handleFinancialData(w http.ResponseWriter, r *http.Request, user core.User) {
	period := core.PeriodOf(time.Now())
	data, err := s.financialDataFor(r, user.ID, period)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// financialDataFor serves the summary from cache when it can.
func (s *Server) financialDataFor(r *http.Request, userID int64, period core.Period) (financialData, error) {
	key := cache.SummaryKey(userID, period.Year, period.Month)
	if data, ok := s.summaryCache.Get(key); ok {
		s.countCacheHit()
		return data, nil
	}
	s.countCacheMiss()

	summary, err := s.aggregator.SummarizePeriod(r.Context(), userID, period)
	if err != nil {
		return financialData{}, err
	}
	data := toFinancialData(summary)
	s.summaryCache.Set(key, data)
	return data, nil
}

func (s *Server) handleGraphs(w http.ResponseWriter, r *http.Request, user core.User) {
	period := core.PeriodOf(time.Now())
	key := cache.GraphsKey(user.ID, period.Year, period.Month)
	if graphs, ok := s.graphsCache.Get(key); ok {
		s.countCacheHit()
		writeJSON(w, http.StatusOK, graphs)
		return
	}
	s.countCacheMiss()

	graphs, err := s.aggregator.DashboardGraphs(r.Context(), user.ID, period)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.graphsCache.Set(key, graphs)
	writeJSON(w, http.StatusOK, graphs)
}

func (s *Server) handlePastReport(w http.ResponseWriter, r *http.Request, user core.User) {
	period, err := periodFromQuery(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	key := cache.ReportKey(user.ID, period.Year, period.Month)
	if report, ok := s.reportCache.Get(key); ok {
		s.countCacheHit()
		writeJSON(w, http.StatusOK, report)
		return
	}
	s.countCacheMiss()

	summary, err := s.aggregator.SummarizePeriod(r.Context(), user.ID, period)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	graphs, err := s.aggregator.DashboardGraphs(r.Context(), user.ID, period)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report := pastReportResponse{
		FinancialData: toFinancialData(summary),
		GraphData:     graphs,
	}
	s.reportCache.Set(key, report)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request, user core.User) {
	entries, err := s.aggregator.RecentActivity(r.Context(), user.ID, 10)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]recentEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, recentEntryResponse{
			ID:     e.ID,
			Name:   e.Category,
			Amount: e.Amount.Units(),
			Date:   e.Date.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request, user core.User) {
	period := core.PeriodOf(time.Now())
	if r.URL.Query().Get("month") != "" || r.URL.Query().Get("year") != "" {
		p, err := periodFromQuery(r)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		period = p
	}

	summary, err := s.aggregator.SummarizePeriod(r.Context(), user.ID, period)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	expenses, err := s.aggregator.ExpenseBreakdown(r.Context(), user.ID, period)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	incomes, err := s.aggregator.IncomeBreakdown(r.Context(), user.ID, period)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	budgets, err := s.aggregator.BudgetBreakdown(r.Context(), user.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("report-%04d-%02d.xlsx", period.Year, period.Month)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteMonthlyReport(w, export.MonthlyReport{
		Summary:  summary,
		Expenses: expenses,
		Incomes:  incomes,
		Budgets:  budgets,
	}); err != nil {
		// Headers are already out, so the best we can do is log.
		slog.ErrorContext(r.Context(), "Failed to stream report workbook",
			"user_id", user.ID,
			"error", err)
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, user core.User) {
	writeJSON(w, http.StatusOK, profileResponse{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Avatar:   user.Avatar,
		JoinDate: user.JoinDate.String(),
	})
}

func (s *Server) handleUpdateGoals(w http.ResponseWriter, r *http.Request, user core.User) {
	var req updateGoalsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	incomeGoal, err := core.GoalFromDecimal(req.IncomeGoal)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	savingsGoal, err := core.GoalFromDecimal(req.SavingsGoal)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.store.UpdateGoals(r.Context(), user.ID, incomeGoal, savingsGoal); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	slog.InfoContext(r.Context(), "Goals updated",
		"user_id", user.ID,
		"income_goal_cents", incomeGoal.Cents,
		"savings_goal_cents", savingsGoal.Cents)

	writeJSON(w, http.StatusOK, map[string]float64{
		"income_goal":  incomeGoal.Units(),
		"savings_goal": savingsGoal.Units(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeDetail(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	detectionMetrics := s.securityDetector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP app_uptime_seconds Time since the server started.\n")
	fmt.Fprintf(w, "# TYPE app_uptime_seconds gauge\n")
	fmt.Fprintf(w, "app_uptime_seconds %d\n", int64(time.Since(s.appMetrics.uptime).Seconds()))
	fmt.Fprintf(w, "# HELP http_requests_total Requests served.\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "# HELP http_response_time_avg_us Average response time in microseconds.\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_us gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_us %d\n", traceMetrics.AverageResponseTime)
	fmt.Fprintf(w, "# HELP ledger_entries_created_total Ledger entries created over the API.\n")
	fmt.Fprintf(w, "# TYPE ledger_entries_created_total counter\n")
	fmt.Fprintf(w, "ledger_entries_created_total %d\n", atomic.LoadInt64(&s.appMetrics.totalEntries))
	fmt.Fprintf(w, "# HELP dashboard_cache_hits_total Dashboard views served from cache.\n")
	fmt.Fprintf(w, "# TYPE dashboard_cache_hits_total counter\n")
	fmt.Fprintf(w, "dashboard_cache_hits_total %d\n", atomic.LoadInt64(&s.appMetrics.cacheHits))
	fmt.Fprintf(w, "# HELP dashboard_cache_misses_total Dashboard views computed from storage.\n")
	fmt.Fprintf(w, "# TYPE dashboard_cache_misses_total counter\n")
	fmt.Fprintf(w, "dashboard_cache_misses_total %d\n", atomic.LoadInt64(&s.appMetrics.cacheMisses))
	fmt.Fprintf(w, "# HELP security_suspicious_requests_total Requests flagged by the detector.\n")
	fmt.Fprintf(w, "# TYPE security_suspicious_requests_total counter\n")
	fmt.Fprintf(w, "security_suspicious_requests_total %d\n", detectionMetrics.SuspiciousRequests)
	fmt.Fprintf(w, "# HELP ratelimit_active_clients Clients currently tracked by the limiter.\n")
	fmt.Fprintf(w, "# TYPE ratelimit_active_clients gauge\n")
	fmt.Fprintf(w, "ratelimit_active_clients %d\n", s.rateLimiter.ActiveClients())
}

// periodFromQuery reads the month and year parameters. The dashboard
// sends the month as an English name, older clients as a number, so
// both are accepted.
func periodFromQuery(r *http.Request) (core.Period, error) {
	q := r.URL.Query()
	month, err := parseMonth(q.Get("month"))
	if err != nil {
		return core.Period{}, err
	}
	year, err := strconv.Atoi(strings.TrimSpace(q.Get("year")))
	if err != nil {
		return core.Period{}, fmt.Errorf("invalid year %q", q.Get("year"))
	}

	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return core.Period{}, err
	}
	return p, nil
}

func parseMonth(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(raw, m.String()) {
			return int(m), nil
		}
	}
	return 0, fmt.Errorf("invalid month %q", raw)
}
