package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"komentar/internal/domain"
)

const pqUniqueViolation = "23505"

type ReactionRepository interface {
	Create(ctx context.Context, reaction *domain.Reaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByTuple(ctx context.Context, commentID uuid.UUID, authorKey, emoji string) (*domain.Reaction, error)
	ListByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) ([]domain.Reaction, error)
}

type reactionRepository struct {
	db *sqlx.DB
}

func NewReactionRepository(db *sqlx.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Create(ctx context.Context, reaction *domain.Reaction) error {
	query := `
		INSERT INTO reactions (reaction_id, comment_id, author_key, emoji)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		reaction.ID, reaction.CommentID, reaction.AuthorKey, reaction.Emoji,
	).Scan(&reaction.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicateReaction
	}
	return err
}

func (r *reactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM reactions WHERE reaction_id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// GetByTuple returns the viewer's reaction for (comment, emoji), or nil
// when none exists.
func (r *reactionRepository) GetByTuple(ctx context.Context, commentID uuid.UUID, authorKey, emoji string) (*domain.Reaction, error) {
	var reaction domain.Reaction
	query := `SELECT * FROM reactions WHERE comment_id = $1 AND author_key = $2 AND emoji = $3`
	err := r.db.GetContext(ctx, &reaction, query, commentID, authorKey, emoji)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *reactionRepository) ListByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) ([]domain.Reaction, error) {
	if len(commentIDs) == 0 {
		return []domain.Reaction{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT * FROM reactions
		WHERE comment_id IN (?)
		ORDER BY created_at ASC`, commentIDs)
	if err != nil {
		return nil, err
	}

	query = r.db.Rebind(query)
	reactions := []domain.Reaction{}
	err = r.db.SelectContext(ctx, &reactions, query, args...)
	return reactions, err
}
