package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"spendtrail/internal/core"
	"spendtrail/internal/storage"
)

type createIncomeRequest struct {
	Category string          `json:"income_category"`
	Emoji    string          `json:"income_emoji"`
	Amount   decimal.Decimal `json:"income_amount"`
}

type createExpenseRequest struct {
	Category       string          `json:"expense_category"`
	Emoji          string          `json:"expense_emoji"`
	Amount         decimal.Decimal `json:"expense_amount"`
	SubscriptionID int64           `json:"subscription_id,omitempty"`
}

type createBudgetRequest struct {
	Category string          `json:"budget_category"`
	Emoji    string          `json:"budget_emoji"`
	Amount   decimal.Decimal `json:"budget_amount"`
}

type addToCategoryRequest struct {
	AmountToAdd decimal.Decimal `json:"amount_to_add"`
}

type entryResponse struct {
	ID       int64   `json:"id"`
	Category string  `json:"category"`
	Emoji    string  `json:"emoji"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
}

type categoryTotalResponse struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type budgetResponse struct {
	ID        int64   `json:"id"`
	Category  string  `json:"category"`
	Emoji     string  `json:"emoji"`
	Amount    float64 `json:"amount"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:        b.ID,
		Category:  b.Category,
		Emoji:     b.Emoji,
		Amount:    b.Amount.Units(),
		Spent:     b.Spent.Units(),
		Remaining: b.Remaining().Units(),
	}
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createIncomeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.MoneyFromDecimal(req.Amount)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	now := time.Now()
	entry := core.IncomeEntry{
		UserID:   user.ID,
		Category: req.Category,
		Emoji:    req.Emoji,
		Amount:   amount,
		Date:     core.NewDate(now.Year(), int(now.Month()), now.Day()),
	}
	if err := entry.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.store.CreateIncome(r.Context(), entry)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.countEntry()
	s.invalidateUser(user.ID)
	s.publishEntry(r, storage.KindIncome, created.ID)
	s.logs.LogEntryCreated(r.Context(), user.ID, storage.KindIncome, created.Category, created.Amount.Cents)

	writeJSON(w, http.StatusCreated, entryResponse{
		ID:       created.ID,
		Category: created.Category,
		Emoji:    created.Emoji,
		Amount:   created.Amount.Units(),
		Date:     created.Date.String(),
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.MoneyFromDecimal(req.Amount)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	now := time.Now()
	entry := core.ExpenseEntry{
		UserID:         user.ID,
		Category:       req.Category,
		Emoji:          req.Emoji,
		Amount:         amount,
		SubscriptionID: req.SubscriptionID,
		Date:           core.NewDate(now.Year(), int(now.Month()), now.Day()),
	}
	if err := entry.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.store.CreateExpense(r.Context(), entry)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.countEntry()
	s.invalidateUser(user.ID)
	s.publishEntry(r, storage.KindExpense, created.ID)
	s.logs.LogEntryCreated(r.Context(), user.ID, storage.KindExpense, created.Category, created.Amount.Cents)

	writeJSON(w, http.StatusCreated, entryResponse{
		ID:       created.ID,
		Category: created.Category,
		Emoji:    created.Emoji,
		Amount:   created.Amount.Units(),
		Date:     created.Date.String(),
	})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createBudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.MoneyFromDecimal(req.Amount)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	budget := core.Budget{
		UserID:   user.ID,
		Category: req.Category,
		Emoji:    req.Emoji,
		Amount:   amount,
	}
	if err := budget.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.store.CreateBudget(r.Context(), budget)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	slog.InfoContext(r.Context(), "Budget created",
		"user_id", user.ID,
		"category", created.Category,
		"amount_cents", created.Amount.Cents)

	writeJSON(w, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) handleAddToIncome(w http.ResponseWriter, r *http.Request, user core.User) {
	s.handleAddToEntryCategory(w, r, user, s.store.AddToIncomeCategory)
}

func (s *Server) handleAddToExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	s.handleAddToEntryCategory(w, r, user, s.store.AddToExpenseCategory)
}

func (s *Server) handleAddToEntryCategory(
	w http.ResponseWriter,
	r *http.Request,
	user core.User,
	add func(ctx context.Context, userID int64, category string, deltaCents int64, today core.Date) (core.Money, error),
) {
	category := r.PathValue("category")
	if category == "" {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	var req addToCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	delta, err := core.DeltaFromDecimal(req.AmountToAdd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	now := time.Now()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	total, err := add(r.Context(), user.ID, category, delta, today)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	writeJSON(w, http.StatusOK, categoryTotalResponse{
		Category: category,
		Amount:   total.Units(),
	})
}

func (s *Server) handleAddToBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	category := r.PathValue("category")
	if category == "" {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	var req addToCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	delta, err := core.DeltaFromDecimal(req.AmountToAdd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	budget, err := s.store.AddToBudget(r.Context(), user.ID, category, delta)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	writeJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, user core.User) {
	budgets, err := s.store.ListBudgets(r.Context(), user.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// publishEntry announces a committed entry to the archive worker. A
// publish failure is not an API failure: the pending sweep picks the
// entry up later.
func (s *Server) publishEntry(r *http.Request, kind string, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntry(r.Context(), kind, id); err != nil {
		slog.WarnContext(r.Context(), "Failed to publish archive event",
			"kind", kind,
			"id", id,
			"error", err)
	}
}
