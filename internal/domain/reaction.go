package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reaction is one (identity, emoji) mark on a single comment. The store
// enforces UNIQUE(comment_id, author_key, emoji); a racing duplicate
// insert is rejected there and swallowed by the aggregator.
type Reaction struct {
	ID        uuid.UUID `json:"id" db:"reaction_id"`
	CommentID uuid.UUID `json:"comment_id" db:"comment_id"`
	AuthorKey string    `json:"-" db:"author_key"`
	Emoji     string    `json:"emoji" db:"emoji"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ReactionSummary is the per-emoji rollup for one comment, computed for a
// specific viewer.
type ReactionSummary struct {
	Emoji      string `json:"emoji"`
	Count      int    `json:"count"`
	HasReacted bool   `json:"has_reacted"`
}

// AllowedEmojis is the set accepted on writes. Reads pass through whatever
// is stored, so the set can grow without migrating existing rows.
var AllowedEmojis = []string{"👍", "❤️", "😂", "😮", "😢", "🎉"}

func IsAllowedEmoji(emoji string) bool {
	for _, e := range AllowedEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}
