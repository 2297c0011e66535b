package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"

	// ChangeResync is synthesized by a subscription after it recovers from
	// a delivery failure. Events may have been missed, so consumers must
	// rebuild from the store.
	ChangeResync ChangeType = "resync"
)

type ChangeTable string

const (
	TableComments  ChangeTable = "comments"
	TableReactions ChangeTable = "reactions"
)

// ChangeEvent is the push-channel envelope. It is a hint to re-derive
// state from the authoritative store, never state itself: the channel
// guarantees neither ordering nor exactly-once delivery.
type ChangeEvent struct {
	Type          ChangeType  `json:"type"`
	Table         ChangeTable `json:"table"`
	ContentItemID string      `json:"content_item_id"`
	CommentID     uuid.UUID   `json:"comment_id"`
	OccurredAt    time.Time   `json:"occurred_at"`
}
