package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"spendtrail/internal/core"
)

func (r *SQLiteRepository) CreateIncome(ctx context.Context, e core.IncomeEntry) (core.IncomeEntry, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (user_id, category, emoji, amount_cents, entry_date)
		 VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.Category, e.Emoji, e.Amount.Cents, e.Date.String())
	if err != nil {
		return core.IncomeEntry{}, fmt.Errorf("create income: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.IncomeEntry{}, fmt.Errorf("create income id: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", e.ID,
		"user_id", e.UserID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)
	return e, nil
}

// CreateExpense inserts the entry and bumps the matching budget's spent
// total in the same transaction, so Budget.Remaining never drifts from
// the expense rows.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.ExpenseEntry) (core.ExpenseEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ExpenseEntry{}, fmt.Errorf("create expense: begin: %w", err)
	}
	defer tx.Rollback()

	var subID any
	if e.SubscriptionID != 0 {
		subID = e.SubscriptionID
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category, emoji, amount_cents, entry_date, subscription_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Category, e.Emoji, e.Amount.Cents, e.Date.String(), subID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ExpenseEntry{}, fmt.Errorf("create expense: %w", ErrDuplicate)
		}
		return core.ExpenseEntry{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.ExpenseEntry{}, fmt.Errorf("create expense id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE budgets SET spent_cents = spent_cents + ? WHERE user_id = ? AND category = ?`,
		e.Amount.Cents, e.UserID, e.Category); err != nil {
		return core.ExpenseEntry{}, fmt.Errorf("bump budget spent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.ExpenseEntry{}, fmt.Errorf("create expense: commit: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"user_id", e.UserID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents,
		"subscription_id", e.SubscriptionID)
	return e, nil
}

// AddToIncomeCategory applies an additive delta to the user's income
// category by appending a correction entry dated today. The category
// must already exist; a delta that would push the running total below
// zero is clamped. Returns the new category total.
func (r *SQLiteRepository) AddToIncomeCategory(ctx context.Context, userID int64, category string, deltaCents int64, today core.Date) (core.Money, error) {
	return r.addToEntryCategory(ctx, "incomes", userID, category, deltaCents, today)
}

// AddToExpenseCategory is AddToIncomeCategory for expenses. The
// matching budget's spent total moves by the same applied delta.
func (r *SQLiteRepository) AddToExpenseCategory(ctx context.Context, userID int64, category string, deltaCents int64, today core.Date) (core.Money, error) {
	return r.addToEntryCategory(ctx, "expenses", userID, category, deltaCents, today)
}

func (r *SQLiteRepository) addToEntryCategory(ctx context.Context, table string, userID int64, category string, deltaCents int64, today core.Date) (core.Money, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Money{}, fmt.Errorf("add to category: begin: %w", err)
	}
	defer tx.Rollback()

	var count int64
	var total sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(amount_cents) FROM `+table+` WHERE user_id = ? AND category = ?`,
		userID, category).Scan(&count, &total)
	if err != nil {
		return core.Money{}, fmt.Errorf("read category total: %w", err)
	}
	if count == 0 {
		return core.Money{}, ErrNotFound
	}

	// Clamp: the category total never goes negative.
	applied := deltaCents
	if total.Int64+applied < 0 {
		applied = -total.Int64
	}

	if applied != 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (user_id, category, emoji, amount_cents, entry_date)
			 SELECT user_id, category, emoji, ?, ?
			 FROM `+table+` WHERE user_id = ? AND category = ?
			 ORDER BY id DESC LIMIT 1`,
			applied, today.String(), userID, category); err != nil {
			return core.Money{}, fmt.Errorf("insert correction entry: %w", err)
		}
		if table == "expenses" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE budgets SET spent_cents = spent_cents + ? WHERE user_id = ? AND category = ?`,
				applied, userID, category); err != nil {
				return core.Money{}, fmt.Errorf("bump budget spent: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Money{}, fmt.Errorf("add to category: commit: %w", err)
	}

	newTotal := core.Money{Cents: total.Int64 + applied}
	slog.InfoContext(ctx, "Category updated",
		"table", table,
		"user_id", userID,
		"category", category,
		"delta_cents", applied,
		"total_cents", newTotal.Cents)
	return newTotal, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category, emoji, amount_cents) VALUES (?, ?, ?, ?)`,
		b.UserID, b.Category, b.Emoji, b.Amount.Cents)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, fmt.Errorf("budget for category %q: %w", b.Category, ErrDuplicate)
		}
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return core.Budget{}, fmt.Errorf("create budget id: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved",
		"id", b.ID,
		"user_id", b.UserID,
		"category", b.Category,
		"amount_cents", b.Amount.Cents)
	return b, nil
}

// AddToBudget applies an additive delta to the budget amount for the
// (user, category) key. The allocation is clamped at zero; concurrent
// deltas serialize on the single UPDATE statement.
func (r *SQLiteRepository) AddToBudget(ctx context.Context, userID int64, category string, deltaCents int64) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET amount_cents = MAX(0, amount_cents + ?) WHERE user_id = ? AND category = ?`,
		deltaCents, userID, category)
	if err != nil {
		return core.Budget{}, fmt.Errorf("add to budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Budget{}, fmt.Errorf("add to budget: %w", err)
	}
	if n == 0 {
		return core.Budget{}, ErrNotFound
	}
	return r.budgetByCategory(ctx, userID, category)
}

func (r *SQLiteRepository) budgetByCategory(ctx context.Context, userID int64, category string) (core.Budget, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, category, emoji, amount_cents, spent_cents
		 FROM budgets WHERE user_id = ? AND category = ?`,
		userID, category).Scan(&b.ID, &b.UserID, &b.Category, &b.Emoji, &b.Amount.Cents, &b.Spent.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, emoji, amount_cents, spent_cents
		 FROM budgets WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Emoji, &b.Amount.Cents, &b.Spent.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// BudgetTotal is the sum of all budget allocations for the user.
func (r *SQLiteRepository) BudgetTotal(ctx context.Context, userID int64) (core.Money, error) {
	var cents sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount_cents) FROM budgets WHERE user_id = ?`, userID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("budget total: %w", err)
	}
	return core.Money{Cents: cents.Int64}, nil
}

func (r *SQLiteRepository) IncomeTotal(ctx context.Context, userID int64, p core.Period) (core.Money, error) {
	return r.entryTotal(ctx, "incomes", userID, p)
}

func (r *SQLiteRepository) ExpenseTotal(ctx context.Context, userID int64, p core.Period) (core.Money, error) {
	return r.entryTotal(ctx, "expenses", userID, p)
}

func (r *SQLiteRepository) entryTotal(ctx context.Context, table string, userID int64, p core.Period) (core.Money, error) {
	start, end := periodBounds(p)
	var cents sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount_cents) FROM `+table+` WHERE user_id = ? AND entry_date >= ? AND entry_date < ?`,
		userID, start, end).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("get %s total: %w", table, err)
	}
	return core.Money{Cents: cents.Int64}, nil
}

// ExpenseByCategory returns per-category sums for the period, largest
// first, with the subscription-generated slice of each total.
func (r *SQLiteRepository) ExpenseByCategory(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	start, end := periodBounds(p)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, MAX(emoji), SUM(amount_cents),
		        SUM(CASE WHEN subscription_id IS NOT NULL THEN amount_cents ELSE 0 END)
		 FROM expenses
		 WHERE user_id = ? AND entry_date >= ? AND entry_date < ?
		 GROUP BY category
		 ORDER BY SUM(amount_cents) DESC, category`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get expense categories: %w", err)
	}
	return scanCategorySums(rows)
}

func (r *SQLiteRepository) IncomeByCategory(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	start, end := periodBounds(p)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, MAX(emoji), SUM(amount_cents), 0
		 FROM incomes
		 WHERE user_id = ? AND entry_date >= ? AND entry_date < ?
		 GROUP BY category
		 ORDER BY SUM(amount_cents) DESC, category`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get income categories: %w", err)
	}
	return scanCategorySums(rows)
}

func scanCategorySums(rows *sql.Rows) ([]core.CategoryAmount, error) {
	defer rows.Close()
	var sums []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Emoji, &ca.Amount.Cents, &ca.Subscriptions.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, ca)
	}
	return sums, rows.Err()
}

// RecentExpenses returns the newest entries first, across periods.
func (r *SQLiteRepository) RecentExpenses(ctx context.Context, userID int64, limit int) ([]core.ExpenseEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, emoji, amount_cents, entry_date, COALESCE(subscription_id, 0)
		 FROM expenses WHERE user_id = ?
		 ORDER BY entry_date DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent expenses: %w", err)
	}
	defer rows.Close()

	var entries []core.ExpenseEntry
	for rows.Next() {
		var e core.ExpenseEntry
		var date string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Emoji, &e.Amount.Cents, &date, &e.SubscriptionID); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse entry date: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
