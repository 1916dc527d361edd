package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendtrail/internal/core"
)

// Entry kinds flowing through the archive pipeline.
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// PendingArchiveEntry is the minimal identity of a row not yet copied
// to the spreadsheet.
type PendingArchiveEntry struct {
	Kind      string
	ID        int64
	CreatedAt time.Time
}

// ArchiveRow is the denormalized shape appended to the archive sheet.
type ArchiveRow struct {
	Kind      string
	ID        int64
	UserEmail string
	Category  string
	Amount    core.Money
	Date      core.Date
}

func tableForKind(kind string) (string, error) {
	switch kind {
	case KindIncome:
		return "incomes", nil
	case KindExpense:
		return "expenses", nil
	default:
		return "", fmt.Errorf("unknown entry kind %q", kind)
	}
}

// PendingArchiveEntries lists unsynced ledger rows, oldest first. Rows
// flagged with a sync error are excluded until an operator clears them.
func (r *SQLiteRepository) PendingArchiveEntries(ctx context.Context, limit int) ([]PendingArchiveEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT 'income', id, created_at FROM incomes WHERE synced = 0 AND sync_error = 0
		 UNION ALL
		 SELECT 'expense', id, created_at FROM expenses WHERE synced = 0 AND sync_error = 0
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending archive entries: %w", err)
	}
	defer rows.Close()

	var pending []PendingArchiveEntry
	for rows.Next() {
		var p PendingArchiveEntry
		var createdAt string
		if err := rows.Scan(&p.Kind, &p.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending entry: %w", err)
		}
		if p.CreatedAt, err = time.Parse("2006-01-02 15:04:05", createdAt); err != nil {
			// created_at defaults to CURRENT_TIMESTAMP; tolerate
			// driver-dependent formats and keep the zero time.
			p.CreatedAt = time.Time{}
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// EntryForArchive loads the denormalized row for one pending entry.
func (r *SQLiteRepository) EntryForArchive(ctx context.Context, kind string, id int64) (ArchiveRow, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return ArchiveRow{}, err
	}

	row := ArchiveRow{Kind: kind, ID: id}
	var date string
	err = r.db.QueryRowContext(ctx,
		`SELECT e.category, e.amount_cents, e.entry_date, u.email
		 FROM `+table+` e JOIN users u ON u.id = e.user_id
		 WHERE e.id = ?`, id).Scan(&row.Category, &row.Amount.Cents, &date, &row.UserEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return ArchiveRow{}, ErrNotFound
	}
	if err != nil {
		return ArchiveRow{}, fmt.Errorf("get %s %d for archive: %w", kind, id, err)
	}
	if row.Date, err = core.ParseDate(date); err != nil {
		return ArchiveRow{}, fmt.Errorf("parse entry date: %w", err)
	}
	return row, nil
}

// MarkSynced marks an entry as successfully archived.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind string, id int64) error {
	table, err := tableForKind(kind)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET synced = 1, sync_error = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark %s synced: %w", kind, err)
	}
	slog.InfoContext(ctx, "Entry marked as synced", "kind", kind, "id", id)
	return nil
}

// MarkSyncError flags an entry whose archive append keeps failing.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, kind string, id int64) error {
	table, err := tableForKind(kind)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET sync_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark %s sync error: %w", kind, err)
	}
	slog.WarnContext(ctx, "Entry marked with sync error", "kind", kind, "id", id)
	return nil
}
