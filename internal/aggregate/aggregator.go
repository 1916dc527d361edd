// Package aggregate turns the raw ledger into the summary shapes the
// dashboard renders. Every operation is a pure read: it either returns
// a complete result or an error, never a partial payload.
package aggregate

import (
	"context"
	"fmt"

	"spendtrail/internal/core"
)

// Ledger is the storage surface the aggregator reads. All methods are
// owner-scoped.
type Ledger interface {
	UserByID(ctx context.Context, id int64) (core.User, error)
	IncomeTotal(ctx context.Context, userID int64, p core.Period) (core.Money, error)
	ExpenseTotal(ctx context.Context, userID int64, p core.Period) (core.Money, error)
	BudgetTotal(ctx context.Context, userID int64) (core.Money, error)
	IncomeByCategory(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error)
	ExpenseByCategory(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	RecentExpenses(ctx context.Context, userID int64, limit int) ([]core.ExpenseEntry, error)
}

type Aggregator struct {
	ledger Ledger

	// budgetGoal is the policy default target for the budget progress
	// card; users do not set one per month.
	budgetGoal core.Money
}

func New(ledger Ledger, budgetGoal core.Money) *Aggregator {
	return &Aggregator{ledger: ledger, budgetGoal: budgetGoal}
}

// SummarizePeriod assembles the four dashboard progress pairs for one
// calendar month. Savings is derived, never stored: income minus
// expenses for the same period. Missing goals read as zero, which the
// percentage math maps to 0%.
func (a *Aggregator) SummarizePeriod(ctx context.Context, userID int64, p core.Period) (core.PeriodSummary, error) {
	if err := p.Validate(); err != nil {
		return core.PeriodSummary{}, err
	}

	user, err := a.ledger.UserByID(ctx, userID)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("summarize period: %w", err)
	}
	income, err := a.ledger.IncomeTotal(ctx, userID, p)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("summarize period: %w", err)
	}
	expenses, err := a.ledger.ExpenseTotal(ctx, userID, p)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("summarize period: %w", err)
	}
	budget, err := a.ledger.BudgetTotal(ctx, userID)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("summarize period: %w", err)
	}

	savings := core.Money{Cents: income.Cents - expenses.Cents}
	return core.PeriodSummary{
		Year:     p.Year,
		Month:    p.Month,
		Expenses: core.GoalProgress{Current: expenses, Goal: budget},
		Budget:   core.GoalProgress{Current: budget, Goal: a.budgetGoal},
		Income:   core.GoalProgress{Current: income, Goal: user.IncomeGoal},
		Savings:  core.GoalProgress{Current: savings, Goal: user.SavingsGoal},
	}, nil
}

// ExpenseBreakdown returns the period's per-category expense totals,
// largest first. Categories that net out to zero or below are omitted;
// keys are exact, case-sensitive category names.
func (a *Aggregator) ExpenseBreakdown(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sums, err := a.ledger.ExpenseByCategory(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("expense breakdown: %w", err)
	}
	return dropNonPositive(sums), nil
}

// IncomeBreakdown is ExpenseBreakdown for the income side.
func (a *Aggregator) IncomeBreakdown(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sums, err := a.ledger.IncomeByCategory(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("income breakdown: %w", err)
	}
	return dropNonPositive(sums), nil
}

func dropNonPositive(sums []core.CategoryAmount) []core.CategoryAmount {
	out := sums[:0]
	for _, ca := range sums {
		if ca.Amount.Cents > 0 {
			out = append(out, ca)
		}
	}
	return out
}

// BudgetBreakdown lists the user's budgets with their running spent
// totals; Remaining is derived by the caller from Amount and Spent.
func (a *Aggregator) BudgetBreakdown(ctx context.Context, userID int64) ([]core.Budget, error) {
	budgets, err := a.ledger.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("budget breakdown: %w", err)
	}
	return budgets, nil
}

// BuildTimeSeries returns one point per month, chronologically, for
// the window of `months` calendar months ending at `end` inclusive.
func (a *Aggregator) BuildTimeSeries(ctx context.Context, userID int64, end core.Period, months int) ([]core.SeriesPoint, error) {
	if err := end.Validate(); err != nil {
		return nil, err
	}
	if months < 1 {
		return nil, core.ErrInvalidMonth
	}

	start := end
	for i := 1; i < months; i++ {
		start = start.Prev()
	}

	points := make([]core.SeriesPoint, 0, months)
	for p := start; ; p = p.Next() {
		income, err := a.ledger.IncomeTotal(ctx, userID, p)
		if err != nil {
			return nil, fmt.Errorf("time series %s: %w", p, err)
		}
		expense, err := a.ledger.ExpenseTotal(ctx, userID, p)
		if err != nil {
			return nil, fmt.Errorf("time series %s: %w", p, err)
		}
		points = append(points, core.SeriesPoint{
			Year:    p.Year,
			Month:   p.Month,
			Income:  income,
			Expense: expense,
		})
		if p == end {
			break
		}
	}
	return points, nil
}

// RecentActivity returns the newest expense entries first.
func (a *Aggregator) RecentActivity(ctx context.Context, userID int64, limit int) ([]core.ExpenseEntry, error) {
	if limit < 1 {
		limit = 5
	}
	entries, err := a.ledger.RecentExpenses(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return entries, nil
}
