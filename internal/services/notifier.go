package services

import (
	"context"
	"log/slog"
	"sync"
)

// changeNotifier tells local listeners and remote instances which months of
// an owner changed. An empty month list means every month.
type changeNotifier struct {
	publisher ChangePublisher

	mu        sync.RWMutex
	listeners []ChangeListener
}

// OnChange registers a listener for local writes.
func (n *changeNotifier) OnChange(l ChangeListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

func (n *changeNotifier) notify(ctx context.Context, ownerID string, months ...string) {
	n.mu.RLock()
	for _, l := range n.listeners {
		l.Invalidate(ownerID, months)
	}
	n.mu.RUnlock()

	if n.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping change message")
		return
	}
	// Publishing is best effort: the write has already been committed.
	if err := n.publisher.PublishChange(ctx, ownerID, months); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"owner_id", ownerID,
			"months", months,
			"error", err)
	}
}
