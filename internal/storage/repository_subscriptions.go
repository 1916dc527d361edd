package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"spendtrail/internal/core"
)

const subscriptionColumns = `id, user_id, name, amount_cents, category, frequency,
	start_date, end_date, repeat_count, occurrences, active`

func scanSubscription(scan func(dest ...any) error) (core.Subscription, error) {
	var s core.Subscription
	var startDate string
	var endDate sql.NullString
	var repeatCount sql.NullInt64
	err := scan(&s.ID, &s.UserID, &s.Name, &s.Amount.Cents, &s.Category, &s.Frequency,
		&startDate, &endDate, &repeatCount, &s.Occurrences, &s.Active)
	if err != nil {
		return core.Subscription{}, err
	}
	if s.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.Subscription{}, fmt.Errorf("parse start date: %w", err)
	}
	if endDate.Valid {
		if s.EndDate, err = core.ParseDate(endDate.String); err != nil {
			return core.Subscription{}, fmt.Errorf("parse end date: %w", err)
		}
	}
	s.RepeatCount = repeatCount.Int64
	return s, nil
}

func subscriptionArgs(s core.Subscription) (endDate, repeatCount any) {
	if !s.EndDate.IsZero() {
		endDate = s.EndDate.String()
	}
	if s.RepeatCount > 0 {
		repeatCount = s.RepeatCount
	}
	return endDate, repeatCount
}

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	endDate, repeatCount := subscriptionArgs(s)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, name, amount_cents, category, frequency, start_date, end_date, repeat_count, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Name, s.Amount.Cents, s.Category, s.Frequency, s.StartDate.String(), endDate, repeatCount, s.Active)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription id: %w", err)
	}

	slog.InfoContext(ctx, "Subscription saved",
		"id", s.ID,
		"user_id", s.UserID,
		"name", s.Name,
		"frequency", s.Frequency)
	return s, nil
}

// UpdateSubscription replaces every mutable field of the user's
// subscription identified by ID.
func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	endDate, repeatCount := subscriptionArgs(s)
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET name = ?, amount_cents = ?, category = ?, frequency = ?, start_date = ?, end_date = ?, repeat_count = ?, active = ?
		 WHERE id = ? AND user_id = ?`,
		s.Name, s.Amount.Cents, s.Category, s.Frequency, s.StartDate.String(), endDate, repeatCount, s.Active,
		s.ID, s.UserID)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	if n == 0 {
		return core.Subscription{}, ErrNotFound
	}
	return r.SubscriptionByID(ctx, s.UserID, s.ID)
}

func (r *SQLiteRepository) SubscriptionByID(ctx context.Context, userID, id int64) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	s, err := scanSubscription(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, ErrNotFound
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription %d: %w", id, err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSubscriptions(ctx context.Context, userID int64) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

// ListActiveSubscriptions returns active subscriptions across all
// users, for the occurrence processor.
func (r *SQLiteRepository) ListActiveSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

func collectSubscriptions(rows *sql.Rows) ([]core.Subscription, error) {
	defer rows.Close()
	var subs []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// RecordOccurrence materializes one due occurrence as an expense entry.
// The partial unique index on (subscription_id, entry_date) makes the
// insert idempotent: a replay reports inserted=false and changes
// nothing else.
func (r *SQLiteRepository) RecordOccurrence(ctx context.Context, s core.Subscription, due core.Date) (int64, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("record occurrence: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO expenses (user_id, category, emoji, amount_cents, entry_date, subscription_id)
		 VALUES (?, ?, '', ?, ?, ?)`,
		s.UserID, s.Category, s.Amount.Cents, due.String(), s.ID)
	if err != nil {
		return 0, false, fmt.Errorf("insert occurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("insert occurrence: %w", err)
	}
	if n == 0 {
		return 0, false, tx.Commit()
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("insert occurrence id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE budgets SET spent_cents = spent_cents + ? WHERE user_id = ? AND category = ?`,
		s.Amount.Cents, s.UserID, s.Category); err != nil {
		return 0, false, fmt.Errorf("bump budget spent: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET occurrences = occurrences + 1 WHERE id = ?`, s.ID); err != nil {
		return 0, false, fmt.Errorf("bump occurrences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("record occurrence: commit: %w", err)
	}

	slog.InfoContext(ctx, "Occurrence recorded",
		"subscription_id", s.ID,
		"expense_id", id,
		"due", due.String())
	return id, true, nil
}

// DeactivateSubscription flips the subscription inactive once its
// termination rule is exhausted.
func (r *SQLiteRepository) DeactivateSubscription(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET active = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	slog.InfoContext(ctx, "Subscription deactivated", "id", id)
	return nil
}
