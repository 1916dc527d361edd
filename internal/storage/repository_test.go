package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"spendtrail/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Name:     "Test User",
		Email:    email,
		JoinDate: core.NewDate(2025, 1, 1),
	})
	require.NoError(t, err)
	return u
}

func TestCreateAndSumIncomes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "sum@example.com")

	for _, cents := range []int64{200000, 50000} {
		_, err := repo.CreateIncome(ctx, core.IncomeEntry{
			UserID:   u.ID,
			Category: "Salary",
			Emoji:    "💰",
			Amount:   core.Money{Cents: cents},
			Date:     core.NewDate(2025, 3, 5),
		})
		require.NoError(t, err)
	}

	total, err := repo.IncomeTotal(ctx, u.ID, core.Period{Year: 2025, Month: 3})
	require.NoError(t, err)
	require.Equal(t, int64(250000), total.Cents)

	// Other periods and other users see nothing.
	total, err = repo.IncomeTotal(ctx, u.ID, core.Period{Year: 2025, Month: 4})
	require.NoError(t, err)
	require.Zero(t, total.Cents)

	other := newTestUser(t, repo, "other@example.com")
	total, err = repo.IncomeTotal(ctx, other.ID, core.Period{Year: 2025, Month: 3})
	require.NoError(t, err)
	require.Zero(t, total.Cents)
}

func TestAdditiveCategoryUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "additive@example.com")
	today := core.NewDate(2025, 3, 10)

	_, err := repo.CreateIncome(ctx, core.IncomeEntry{
		UserID: u.ID, Category: "Salary", Amount: core.Money{Cents: 50000}, Date: today,
	})
	require.NoError(t, err)

	total, err := repo.AddToIncomeCategory(ctx, u.ID, "Salary", 2000, today)
	require.NoError(t, err)
	require.Equal(t, int64(52000), total.Cents)

	total, err = repo.AddToIncomeCategory(ctx, u.ID, "Salary", 3000, today)
	require.NoError(t, err)
	require.Equal(t, int64(55000), total.Cents)

	// Negative deltas are corrections, clamped at zero.
	total, err = repo.AddToIncomeCategory(ctx, u.ID, "Salary", -100000, today)
	require.NoError(t, err)
	require.Zero(t, total.Cents)

	// Category matching is exact and case-sensitive.
	_, err = repo.AddToIncomeCategory(ctx, u.ID, "salary", 100, today)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.AddToIncomeCategory(ctx, u.ID, "Bonus", 100, today)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBudgetSpentTracksExpenses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "budget@example.com")
	today := core.NewDate(2025, 3, 12)

	_, err := repo.CreateBudget(ctx, core.Budget{
		UserID: u.ID, Category: "Food", Emoji: "🍔", Amount: core.Money{Cents: 50000},
	})
	require.NoError(t, err)

	// A second budget for the same category is rejected.
	_, err = repo.CreateBudget(ctx, core.Budget{
		UserID: u.ID, Category: "Food", Amount: core.Money{Cents: 100},
	})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.CreateExpense(ctx, core.ExpenseEntry{
		UserID: u.ID, Category: "Food", Amount: core.Money{Cents: 12050}, Date: today,
	})
	require.NoError(t, err)

	budgets, err := repo.ListBudgets(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	require.Equal(t, int64(12050), budgets[0].Spent.Cents)
	require.Equal(t, int64(37950), budgets[0].Remaining().Cents)

	b, err := repo.AddToBudget(ctx, u.ID, "Food", 10000)
	require.NoError(t, err)
	require.Equal(t, int64(60000), b.Amount.Cents)

	_, err = repo.AddToBudget(ctx, u.ID, "Travel", 10000)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpenseBreakdownSubscriptionSubtotal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "breakdown@example.com")

	sub, err := repo.CreateSubscription(ctx, core.Subscription{
		UserID:      u.ID,
		Name:        "Netflix",
		Amount:      core.Money{Cents: 1599},
		Category:    "Entertainment",
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2025, 1, 15),
		RepeatCount: 12,
		Active:      true,
	})
	require.NoError(t, err)

	_, inserted, err := repo.RecordOccurrence(ctx, sub, core.NewDate(2025, 3, 15))
	require.NoError(t, err)
	require.True(t, inserted)

	// Replaying the same occurrence is a no-op.
	_, inserted, err = repo.RecordOccurrence(ctx, sub, core.NewDate(2025, 3, 15))
	require.NoError(t, err)
	require.False(t, inserted)

	_, err = repo.CreateExpense(ctx, core.ExpenseEntry{
		UserID: u.ID, Category: "Entertainment", Amount: core.Money{Cents: 3000}, Date: core.NewDate(2025, 3, 20),
	})
	require.NoError(t, err)

	sums, err := repo.ExpenseByCategory(ctx, u.ID, core.Period{Year: 2025, Month: 3})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	require.Equal(t, "Entertainment", sums[0].Name)
	require.Equal(t, int64(4599), sums[0].Amount.Cents)
	require.Equal(t, int64(1599), sums[0].Subscriptions.Cents)
	require.LessOrEqual(t, sums[0].Subscriptions.Cents, sums[0].Amount.Cents)

	subs, err := repo.ListSubscriptions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, int64(1), subs[0].Occurrences)
}

func TestTokenResolution(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "token@example.com")

	require.NoError(t, repo.IssueToken(ctx, u.ID, "hash-1"))

	got, err := repo.UserByTokenHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "token@example.com", got.Email)

	_, err = repo.UserByTokenHash(ctx, "hash-2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestArchivePipelineBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "archive@example.com")

	income, err := repo.CreateIncome(ctx, core.IncomeEntry{
		UserID: u.ID, Category: "Salary", Amount: core.Money{Cents: 100000}, Date: core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)

	pending, err := repo.PendingArchiveEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, KindIncome, pending[0].Kind)
	require.Equal(t, income.ID, pending[0].ID)

	row, err := repo.EntryForArchive(ctx, KindIncome, income.ID)
	require.NoError(t, err)
	require.Equal(t, "archive@example.com", row.UserEmail)
	require.Equal(t, int64(100000), row.Amount.Cents)

	require.NoError(t, repo.MarkSynced(ctx, KindIncome, income.ID))

	pending, err = repo.PendingArchiveEntries(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}
