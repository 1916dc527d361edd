package services

import (
	"context"
	"testing"
	"time"

	"spendtrail/internal/core"
)

type fakeSubscriptionStore struct {
	subs        []core.Subscription
	recorded    map[int64][]string // subscription ID -> occurrence dates
	deactivated []int64
	nextID      int64
}

func (f *fakeSubscriptionStore) ListActiveSubscriptions(context.Context) ([]core.Subscription, error) {
	return f.subs, nil
}

func (f *fakeSubscriptionStore) RecordOccurrence(_ context.Context, s core.Subscription, due core.Date) (int64, bool, error) {
	if f.recorded == nil {
		f.recorded = map[int64][]string{}
	}
	for _, d := range f.recorded[s.ID] {
		if d == due.String() {
			return 0, false, nil
		}
	}
	f.recorded[s.ID] = append(f.recorded[s.ID], due.String())
	f.nextID++
	return f.nextID, true, nil
}

func (f *fakeSubscriptionStore) DeactivateSubscription(_ context.Context, id int64) error {
	f.deactivated = append(f.deactivated, id)
	return nil
}

type recordingPublisher struct {
	entries []int64
}

func (r *recordingPublisher) PublishEntry(_ context.Context, _ string, id int64) error {
	r.entries = append(r.entries, id)
	return nil
}

func TestProcessDueGeneratesBackfill(t *testing.T) {
	store := &fakeSubscriptionStore{subs: []core.Subscription{{
		ID:          1,
		UserID:      1,
		Name:        "Netflix",
		Amount:      core.Money{Cents: 1599},
		Category:    "Entertainment",
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2025, 1, 15),
		RepeatCount: 12,
		Active:      true,
	}}}
	pub := &recordingPublisher{}
	p := NewSubscriptionProcessor(store, pub)

	now := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)
	created, err := p.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 occurrences (Jan, Feb, Mar), got %d", created)
	}
	want := []string{"2025-01-15", "2025-02-15", "2025-03-15"}
	got := store.recorded[1]
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("occurrence %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if len(pub.entries) != 3 {
		t.Fatalf("expected 3 published entries, got %d", len(pub.entries))
	}
	if len(store.deactivated) != 0 {
		t.Fatalf("subscription still has occurrences ahead, should stay active")
	}

	// A second run is a no-op.
	created, err = p.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if created != 0 {
		t.Fatalf("replay created %d entries, expected 0", created)
	}
}

func TestProcessDueDeactivatesExhausted(t *testing.T) {
	store := &fakeSubscriptionStore{subs: []core.Subscription{{
		ID:          2,
		UserID:      1,
		Name:        "Gym trial",
		Amount:      core.Money{Cents: 2000},
		Category:    "Health",
		Frequency:   core.Weekly,
		StartDate:   core.NewDate(2025, 3, 1),
		RepeatCount: 2,
		Active:      true,
	}}}
	p := NewSubscriptionProcessor(store, nil)

	created, err := p.ProcessDue(context.Background(), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 occurrences, got %d", created)
	}
	if len(store.deactivated) != 1 || store.deactivated[0] != 2 {
		t.Fatalf("expected subscription 2 deactivated, got %v", store.deactivated)
	}
}
