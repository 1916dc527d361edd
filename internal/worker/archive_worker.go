package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendtrail/internal/amqp"
	"spendtrail/internal/storage"
)

// Archiver appends one ledger row to the durable archive and returns a
// reference to where it landed.
type Archiver interface {
	Append(ctx context.Context, row storage.ArchiveRow) (string, error)
}

// ArchiveStore is the storage surface the worker needs.
type ArchiveStore interface {
	EntryForArchive(ctx context.Context, kind string, id int64) (storage.ArchiveRow, error)
	PendingArchiveEntries(ctx context.Context, limit int) ([]storage.PendingArchiveEntry, error)
	MarkSynced(ctx context.Context, kind string, id int64) error
	MarkSyncError(ctx context.Context, kind string, id int64) error
}

// ArchiveWorker copies committed ledger entries to the spreadsheet
// archive. It is driven by AMQP announcements, with a periodic pending
// sweep as a backstop for lost messages.
type ArchiveWorker struct {
	store     ArchiveStore
	archive   Archiver
	batchSize int
}

func NewArchiveWorker(store ArchiveStore, archive Archiver, batchSize int) *ArchiveWorker {
	return &ArchiveWorker{
		store:     store,
		archive:   archive,
		batchSize: batchSize,
	}
}

// HandleEntryMessage processes a single announcement from AMQP.
func (w *ArchiveWorker) HandleEntryMessage(ctx context.Context, msg *amqp.LedgerEntryMessage) error {
	slog.InfoContext(ctx, "Processing archive message",
		"kind", msg.Kind,
		"id", msg.ID)
	return w.archiveEntry(ctx, msg.Kind, msg.ID)
}

// ProcessPending archives entries that never got an announcement.
// This is a backup mechanism in case AMQP messages are lost.
func (w *ArchiveWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.PendingArchiveEntries(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	for _, p := range pending {
		if err := w.archiveEntry(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to archive pending entry",
				"kind", p.Kind,
				"id", p.ID,
				"error", err)
		}
	}
	return nil
}

// StartupCheck sweeps a larger pending batch once at worker startup,
// to recover from downtime.
func (w *ArchiveWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.PendingArchiveEntries(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending entries on startup, processing...",
		"count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		if err := w.archiveEntry(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to archive entry during startup",
				"kind", p.Kind,
				"id", p.ID,
				"error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sweep completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *ArchiveWorker) archiveEntry(ctx context.Context, kind string, id int64) error {
	row, err := w.store.EntryForArchive(ctx, kind, id)
	if errors.Is(err, storage.ErrNotFound) {
		// The row is gone; nothing to archive and nothing to retry.
		slog.WarnContext(ctx, "Entry vanished before archiving", "kind", kind, "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry: %w", err)
	}

	ref, err := w.archive.Append(ctx, row)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, kind, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"kind", kind, "id", id, "error", markErr)
		}
		return fmt.Errorf("append to archive: %w", err)
	}

	if err := w.store.MarkSynced(ctx, kind, id); err != nil {
		// The append worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"kind", kind, "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Entry archived",
		"kind", kind,
		"id", id,
		"archive_ref", ref,
		"amount_cents", row.Amount.Cents)
	return nil
}
