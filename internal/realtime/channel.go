// Package realtime is the push channel: row-level change events scoped to
// one (content item, table) pair. Delivery is best-effort; consumers
// reconcile against the store instead of trusting event order or count.
package realtime

import (
	"context"
	"fmt"

	"komentar/internal/domain"
)

type Channel interface {
	Publish(ctx context.Context, topic string, event domain.ChangeEvent) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription is a scoped resource. Close must be called on every exit
// path; a leaked subscription causes duplicate delivery on re-entry.
type Subscription interface {
	Events() <-chan domain.ChangeEvent
	Close() error
}

func Topic(contentItemID string, table domain.ChangeTable) string {
	return fmt.Sprintf("feed:%s:%s", contentItemID, table)
}
