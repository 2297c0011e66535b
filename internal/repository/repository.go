package repository

import (
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrDuplicateReaction maps the store's UNIQUE(comment_id, author_key,
// emoji) violation. A racing double-toggle surfaces it; callers treat it
// as a benign no-op.
var ErrDuplicateReaction = errors.New("reaction already exists")

type Repositories struct {
	Comment  CommentRepository
	Reaction ReactionRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Comment:  NewCommentRepository(db),
		Reaction: NewReactionRepository(db),
	}
}
