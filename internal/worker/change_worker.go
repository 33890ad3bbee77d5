package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
)

// Invalidator drops cached summaries of an owner. An empty months list means
// every month of that owner.
type Invalidator interface {
	Invalidate(ownerID string, months []string)
}

// ChangeSource delivers change messages until ctx is done.
type ChangeSource interface {
	ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error
}

// ChangeWorker applies change notifications published by other instances to
// the local summary cache.
type ChangeWorker struct {
	cache     Invalidator
	processed atomic.Int64
	rejected  atomic.Int64
}

// Stats counts handled messages.
type Stats struct {
	Processed int64
	Rejected  int64
}

func NewChangeWorker(cache Invalidator) *ChangeWorker {
	return &ChangeWorker{cache: cache}
}

// HandleChangeMessage invalidates the months named by msg. Messages carrying
// malformed month tokens are rejected so the broker does not redeliver them.
func (w *ChangeWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg == nil || msg.OwnerID == "" {
		w.rejected.Add(1)
		return errors.New("change message without owner")
	}

	months := make([]string, 0, len(msg.Months))
	for _, token := range msg.Months {
		m, err := core.ParseMonth(token)
		if err != nil {
			w.rejected.Add(1)
			slog.WarnContext(ctx, "Dropping change message with bad month",
				"id", msg.ID,
				"owner_id", msg.OwnerID,
				"month", token)
			return nil
		}
		months = append(months, m.String())
	}

	w.cache.Invalidate(msg.OwnerID, months)
	w.processed.Add(1)

	slog.DebugContext(ctx, "Summary cache invalidated",
		"id", msg.ID,
		"owner_id", msg.OwnerID,
		"months", months,
		"origin", msg.Origin)
	return nil
}

// Run consumes src until ctx is cancelled. Cancellation is not an error.
func (w *ChangeWorker) Run(ctx context.Context, src ChangeSource) error {
	err := src.ConsumeChanges(ctx, func(msg *amqp.ChangeMessage) error {
		return w.HandleChangeMessage(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("consume changes: %w", err)
	}
	return nil
}

func (w *ChangeWorker) Stats() Stats {
	return Stats{Processed: w.processed.Load(), Rejected: w.rejected.Load()}
}
