package aggregate

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"spendtrail/internal/core"
)

// fakeLedger aggregates in-memory entry slices the way the SQL layer
// does, so aggregator results can be checked against raw entries.
type fakeLedger struct {
	user     core.User
	incomes  []core.IncomeEntry
	expenses []core.ExpenseEntry
	budgets  []core.Budget
}

func (f *fakeLedger) UserByID(_ context.Context, id int64) (core.User, error) {
	if id != f.user.ID {
		return core.User{}, fmt.Errorf("user %d: not found", id)
	}
	return f.user, nil
}

func (f *fakeLedger) IncomeTotal(_ context.Context, userID int64, p core.Period) (core.Money, error) {
	var total int64
	for _, e := range f.incomes {
		if e.UserID == userID && p.Contains(e.Date) {
			total += e.Amount.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

func (f *fakeLedger) ExpenseTotal(_ context.Context, userID int64, p core.Period) (core.Money, error) {
	var total int64
	for _, e := range f.expenses {
		if e.UserID == userID && p.Contains(e.Date) {
			total += e.Amount.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

func (f *fakeLedger) BudgetTotal(_ context.Context, userID int64) (core.Money, error) {
	var total int64
	for _, b := range f.budgets {
		if b.UserID == userID {
			total += b.Amount.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

func (f *fakeLedger) ExpenseByCategory(_ context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	totals := map[string]*core.CategoryAmount{}
	for _, e := range f.expenses {
		if e.UserID != userID || !p.Contains(e.Date) {
			continue
		}
		ca, ok := totals[e.Category]
		if !ok {
			ca = &core.CategoryAmount{Name: e.Category, Emoji: e.Emoji}
			totals[e.Category] = ca
		}
		ca.Amount.Cents += e.Amount.Cents
		if e.SubscriptionID != 0 {
			ca.Subscriptions.Cents += e.Amount.Cents
		}
	}
	return sortedSums(totals), nil
}

func (f *fakeLedger) IncomeByCategory(_ context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	totals := map[string]*core.CategoryAmount{}
	for _, e := range f.incomes {
		if e.UserID != userID || !p.Contains(e.Date) {
			continue
		}
		ca, ok := totals[e.Category]
		if !ok {
			ca = &core.CategoryAmount{Name: e.Category, Emoji: e.Emoji}
			totals[e.Category] = ca
		}
		ca.Amount.Cents += e.Amount.Cents
	}
	return sortedSums(totals), nil
}

func sortedSums(totals map[string]*core.CategoryAmount) []core.CategoryAmount {
	sums := make([]core.CategoryAmount, 0, len(totals))
	for _, ca := range totals {
		sums = append(sums, *ca)
	}
	sort.Slice(sums, func(i, j int) bool {
		if sums[i].Amount.Cents != sums[j].Amount.Cents {
			return sums[i].Amount.Cents > sums[j].Amount.Cents
		}
		return sums[i].Name < sums[j].Name
	})
	return sums
}

func (f *fakeLedger) ListBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range f.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeLedger) RecentExpenses(_ context.Context, userID int64, limit int) ([]core.ExpenseEntry, error) {
	var out []core.ExpenseEntry
	for _, e := range f.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func march() core.Period { return core.Period{Year: 2025, Month: 3} }

func newFixtureLedger() *fakeLedger {
	return &fakeLedger{
		user: core.User{
			ID:          1,
			Name:        "Ada",
			Email:       "ada@example.com",
			IncomeGoal:  core.Money{Cents: 200000},
			SavingsGoal: core.Money{Cents: 50000},
		},
		incomes: []core.IncomeEntry{
			{ID: 1, UserID: 1, Category: "Salary", Amount: core.Money{Cents: 180000}, Date: core.NewDate(2025, 3, 1)},
		},
		expenses: []core.ExpenseEntry{
			{ID: 1, UserID: 1, Category: "Food", Amount: core.Money{Cents: 40000}, Date: core.NewDate(2025, 3, 5)},
			{ID: 2, UserID: 1, Category: "Entertainment", Amount: core.Money{Cents: 1599}, Date: core.NewDate(2025, 3, 15), SubscriptionID: 7},
			{ID: 3, UserID: 1, Category: "Food", Amount: core.Money{Cents: 12000}, Date: core.NewDate(2025, 2, 20)},
		},
		budgets: []core.Budget{
			{ID: 1, UserID: 1, Category: "Food", Amount: core.Money{Cents: 50000}, Spent: core.Money{Cents: 40000}},
			{ID: 2, UserID: 1, Category: "Entertainment", Amount: core.Money{Cents: 10000}, Spent: core.Money{Cents: 1599}},
		},
	}
}

func TestSummarizePeriod(t *testing.T) {
	agg := New(newFixtureLedger(), core.Money{Cents: 100000})

	s, err := agg.SummarizePeriod(context.Background(), 1, march())
	require.NoError(t, err)

	require.Equal(t, int64(41599), s.Expenses.Current.Cents)
	require.Equal(t, int64(60000), s.Expenses.Goal.Cents) // total budget
	require.Equal(t, int64(60000), s.Budget.Current.Cents)
	require.Equal(t, int64(100000), s.Budget.Goal.Cents)
	require.Equal(t, int64(180000), s.Income.Current.Cents)
	require.Equal(t, int64(200000), s.Income.Goal.Cents)
	require.Equal(t, int64(138401), s.Savings.Current.Cents) // income - expenses
	require.Equal(t, 90, s.Income.Percent())
}

func TestSummarizePeriodZeroGoals(t *testing.T) {
	ledger := newFixtureLedger()
	ledger.user.IncomeGoal = core.Money{}
	ledger.budgets = nil
	agg := New(ledger, core.Money{})

	s, err := agg.SummarizePeriod(context.Background(), 1, march())
	require.NoError(t, err)
	require.Equal(t, 0, s.Income.Percent())
	require.Equal(t, 0, s.Expenses.Percent())
	require.Equal(t, 0, s.Budget.Percent())
}

func TestSummarizePeriodRejectsBadPeriod(t *testing.T) {
	agg := New(newFixtureLedger(), core.Money{})
	_, err := agg.SummarizePeriod(context.Background(), 1, core.Period{Year: 2025, Month: 13})
	require.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestExpenseBreakdown(t *testing.T) {
	agg := New(newFixtureLedger(), core.Money{})

	sums, err := agg.ExpenseBreakdown(context.Background(), 1, march())
	require.NoError(t, err)
	require.Len(t, sums, 2)

	// Largest category first; the February entry is out of period.
	require.Equal(t, "Food", sums[0].Name)
	require.Equal(t, int64(40000), sums[0].Amount.Cents)
	require.Zero(t, sums[0].Subscriptions.Cents)

	require.Equal(t, "Entertainment", sums[1].Name)
	require.Equal(t, int64(1599), sums[1].Amount.Cents)
	require.Equal(t, int64(1599), sums[1].Subscriptions.Cents)
}

func TestBuildTimeSeriesChronological(t *testing.T) {
	agg := New(newFixtureLedger(), core.Money{})

	points, err := agg.BuildTimeSeries(context.Background(), 1, march(), 3)
	require.NoError(t, err)
	require.Len(t, points, 3)

	require.Equal(t, 1, points[0].Month) // January first
	require.Equal(t, 2, points[1].Month)
	require.Equal(t, 3, points[2].Month)
	require.Equal(t, int64(12000), points[1].Expense.Cents)
	require.Equal(t, int64(41599), points[2].Expense.Cents)

	// Window crossing a year boundary stays chronological.
	points, err = agg.BuildTimeSeries(context.Background(), 1, core.Period{Year: 2025, Month: 1}, 3)
	require.NoError(t, err)
	require.Equal(t, 2024, points[0].Year)
	require.Equal(t, 11, points[0].Month)
	require.Equal(t, 2025, points[2].Year)
	require.Equal(t, 1, points[2].Month)
}

func TestDashboardGraphs(t *testing.T) {
	agg := New(newFixtureLedger(), core.Money{})

	graphs, err := agg.DashboardGraphs(context.Background(), 1, march())
	require.NoError(t, err)
	require.Len(t, graphs, 2)

	require.Equal(t, GraphTypeIncomeExpense, graphs[0].Type)
	bars := graphs[0].Data.([]BarPoint)
	require.Len(t, bars, 3)
	require.Equal(t, "Income", bars[0].Label)
	require.InDelta(t, 1800.0, bars[0].Amount, 0.001)
	require.InDelta(t, 415.99, bars[1].Amount, 0.001)

	require.Equal(t, GraphTypePie, graphs[1].Type)
	slices := graphs[1].Data.([]PiePoint)
	require.Len(t, slices, 2)
	require.Equal(t, "Food", slices[0].Name)
}

func TestRecentActivityNewestFirst(t *testing.T) {
	agg := New(newFixtureLedger(), core.Money{})

	entries, err := agg.RecentActivity(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "Entertainment", entries[0].Category)
	require.Equal(t, "Food", entries[1].Category)
}

// The category breakdown must account for every cent of the period
// total, whatever the entry mix looks like.
func TestBreakdownCoversPeriodTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ledger := &fakeLedger{user: core.User{ID: 1}}
		n := rapid.IntRange(0, 40).Draw(t, "entries")
		for i := 0; i < n; i++ {
			ledger.expenses = append(ledger.expenses, core.ExpenseEntry{
				ID:       int64(i + 1),
				UserID:   1,
				Category: rapid.SampledFrom([]string{"Food", "food", "Housing", "Transport", "Other"}).Draw(t, "category"),
				Amount:   core.Money{Cents: rapid.Int64Range(1, 500000).Draw(t, "cents")},
				Date:     core.NewDate(2025, 3, rapid.IntRange(1, 28).Draw(t, "day")),
			})
		}
		agg := New(ledger, core.Money{})

		total, err := ledger.ExpenseTotal(context.Background(), 1, march())
		require.NoError(t, err)
		sums, err := agg.ExpenseBreakdown(context.Background(), 1, march())
		require.NoError(t, err)

		var sum int64
		seen := map[string]bool{}
		for _, ca := range sums {
			require.Positive(t, ca.Amount.Cents)
			require.LessOrEqual(t, ca.Subscriptions.Cents, ca.Amount.Cents)
			require.False(t, seen[ca.Name], "duplicate category %q", ca.Name)
			seen[ca.Name] = true
			sum += ca.Amount.Cents
		}
		require.Equal(t, total.Cents, sum)
	})
}
