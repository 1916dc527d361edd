package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"spendtrail/internal/amqp"
	"spendtrail/internal/core"
	"spendtrail/internal/storage"
)

type fakeArchiveStore struct {
	rows       map[string]storage.ArchiveRow // "kind/id"
	synced     []string
	syncErrors []string
}

func key(kind string, id int64) string { return fmt.Sprintf("%s/%d", kind, id) }

func (f *fakeArchiveStore) EntryForArchive(_ context.Context, kind string, id int64) (storage.ArchiveRow, error) {
	row, ok := f.rows[key(kind, id)]
	if !ok {
		return storage.ArchiveRow{}, storage.ErrNotFound
	}
	return row, nil
}

func (f *fakeArchiveStore) PendingArchiveEntries(_ context.Context, limit int) ([]storage.PendingArchiveEntry, error) {
	var pending []storage.PendingArchiveEntry
	for _, row := range f.rows {
		if len(pending) == limit {
			break
		}
		pending = append(pending, storage.PendingArchiveEntry{Kind: row.Kind, ID: row.ID})
	}
	return pending, nil
}

func (f *fakeArchiveStore) MarkSynced(_ context.Context, kind string, id int64) error {
	f.synced = append(f.synced, key(kind, id))
	delete(f.rows, key(kind, id))
	return nil
}

func (f *fakeArchiveStore) MarkSyncError(_ context.Context, kind string, id int64) error {
	f.syncErrors = append(f.syncErrors, key(kind, id))
	return nil
}

type fakeArchiver struct {
	appended []storage.ArchiveRow
	fail     bool
}

func (f *fakeArchiver) Append(_ context.Context, row storage.ArchiveRow) (string, error) {
	if f.fail {
		return "", errors.New("append failed")
	}
	f.appended = append(f.appended, row)
	return fmt.Sprintf("2025 Ledger!A%d:E%d", len(f.appended), len(f.appended)), nil
}

func testRow(kind string, id int64) storage.ArchiveRow {
	return storage.ArchiveRow{
		Kind:      kind,
		ID:        id,
		UserEmail: "ada@example.com",
		Category:  "Food",
		Amount:    core.Money{Cents: 12050},
		Date:      core.NewDate(2025, 3, 5),
	}
}

func TestHandleEntryMessage(t *testing.T) {
	store := &fakeArchiveStore{rows: map[string]storage.ArchiveRow{
		"expense/1": testRow(storage.KindExpense, 1),
	}}
	archive := &fakeArchiver{}
	w := NewArchiveWorker(store, archive, 10)

	msg := amqp.NewLedgerEntryMessage(storage.KindExpense, 1)
	if err := w.HandleEntryMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if len(archive.appended) != 1 || archive.appended[0].Category != "Food" {
		t.Fatalf("expected one appended row, got %+v", archive.appended)
	}
	if len(store.synced) != 1 || store.synced[0] != "expense/1" {
		t.Fatalf("expected expense/1 marked synced, got %v", store.synced)
	}
}

func TestHandleEntryMessageVanishedRow(t *testing.T) {
	store := &fakeArchiveStore{rows: map[string]storage.ArchiveRow{}}
	w := NewArchiveWorker(store, &fakeArchiver{}, 10)

	// A vanished row is dropped, not retried forever.
	msg := amqp.NewLedgerEntryMessage(storage.KindIncome, 99)
	if err := w.HandleEntryMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected nil for missing row, got %v", err)
	}
}

func TestHandleEntryMessageAppendFailure(t *testing.T) {
	store := &fakeArchiveStore{rows: map[string]storage.ArchiveRow{
		"income/2": testRow(storage.KindIncome, 2),
	}}
	w := NewArchiveWorker(store, &fakeArchiver{fail: true}, 10)

	msg := amqp.NewLedgerEntryMessage(storage.KindIncome, 2)
	if err := w.HandleEntryMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected error when append fails")
	}
	if len(store.syncErrors) != 1 || store.syncErrors[0] != "income/2" {
		t.Fatalf("expected income/2 flagged, got %v", store.syncErrors)
	}
	if len(store.synced) != 0 {
		t.Fatalf("nothing should be marked synced, got %v", store.synced)
	}
}

func TestProcessPendingSweepsBacklog(t *testing.T) {
	store := &fakeArchiveStore{rows: map[string]storage.ArchiveRow{
		"expense/1": testRow(storage.KindExpense, 1),
		"income/2":  testRow(storage.KindIncome, 2),
	}}
	archive := &fakeArchiver{}
	w := NewArchiveWorker(store, archive, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if len(archive.appended) != 2 {
		t.Fatalf("expected 2 appended rows, got %d", len(archive.appended))
	}
	if len(store.rows) != 0 {
		t.Fatalf("expected backlog drained, %d rows left", len(store.rows))
	}
}
