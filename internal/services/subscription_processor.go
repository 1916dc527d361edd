package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendtrail/internal/core"
	"spendtrail/internal/storage"
)

// SubscriptionStore is the storage surface the processor needs.
type SubscriptionStore interface {
	ListActiveSubscriptions(ctx context.Context) ([]core.Subscription, error)
	RecordOccurrence(ctx context.Context, s core.Subscription, due core.Date) (int64, bool, error)
	DeactivateSubscription(ctx context.Context, id int64) error
}

// ArchivePublisher announces newly generated entries to the archive
// pipeline. A nil publisher disables announcements.
type ArchivePublisher interface {
	PublishEntry(ctx context.Context, kind string, id int64) error
}

// SubscriptionProcessor materializes due subscription occurrences as
// expense entries. Storage enforces one entry per (subscription,
// occurrence date), so a crashed or replayed run never double-bills.
type SubscriptionProcessor struct {
	store     SubscriptionStore
	publisher ArchivePublisher
}

func NewSubscriptionProcessor(store SubscriptionStore, publisher ArchivePublisher) *SubscriptionProcessor {
	return &SubscriptionProcessor{store: store, publisher: publisher}
}

// ProcessDue generates every occurrence due on or before now for every
// active subscription, and deactivates subscriptions whose termination
// rule is exhausted. Returns the number of entries created.
func (p *SubscriptionProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	subs, err := p.store.ListActiveSubscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active subscriptions: %w", err)
	}

	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	slog.InfoContext(ctx, "Processing subscriptions",
		"total_active", len(subs),
		"processing_date", today.String())

	created := 0
	for _, s := range subs {
		n, err := p.processOne(ctx, s, today)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process subscription",
				"id", s.ID,
				"name", s.Name,
				"error", err)
			continue
		}
		created += n
	}

	slog.InfoContext(ctx, "Subscription processing complete",
		"created", created,
		"total_checked", len(subs))
	return created, nil
}

func (p *SubscriptionProcessor) processOne(ctx context.Context, s core.Subscription, today core.Date) (int, error) {
	cadence, err := GetCadence(s.Frequency)
	if err != nil {
		return 0, err
	}

	created := 0
	for n := int64(0); ; n++ {
		if s.RepeatCount > 0 && n >= s.RepeatCount {
			break
		}
		due := cadence.OccurrenceAt(s.StartDate, n)
		if !s.EndDate.IsZero() && due.After(s.EndDate.Time) {
			break
		}
		if due.After(today.Time) {
			return created, nil
		}

		id, inserted, err := p.store.RecordOccurrence(ctx, s, due)
		if err != nil {
			return created, fmt.Errorf("record occurrence %s: %w", due, err)
		}
		if !inserted {
			continue // already generated on a previous run
		}
		created++
		if p.publisher != nil {
			if err := p.publisher.PublishEntry(ctx, storage.KindExpense, id); err != nil {
				// The sweep backstop picks the entry up later.
				slog.WarnContext(ctx, "Failed to publish generated entry",
					"expense_id", id,
					"error", err)
			}
		}
	}

	// Loop only breaks when a terminator cut the schedule with every
	// occurrence already due: nothing left to bill.
	if err := p.store.DeactivateSubscription(ctx, s.ID); err != nil {
		return created, fmt.Errorf("deactivate: %w", err)
	}
	return created, nil
}
