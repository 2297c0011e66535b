package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"komentar/internal/domain"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error)
	Update(ctx context.Context, comment *domain.Comment) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListRoots(ctx context.Context, contentItemID string, limit, offset int) ([]domain.Comment, error)
	ListByParentIDs(ctx context.Context, parentIDs []uuid.UUID) ([]domain.Comment, error)
}

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (comment_id, content_item_id, parent_id, author_key, author_user_id, display_name, avatar_url, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		comment.ID, comment.ContentItemID, comment.ParentID, comment.AuthorKey,
		comment.AuthorUserID, comment.DisplayName, comment.AvatarURL, comment.Body,
	).Scan(&comment.CreatedAt, &comment.UpdatedAt)
}

func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	var comment domain.Comment
	query := `SELECT * FROM comments WHERE comment_id = $1 AND deleted_at IS NULL`
	err := r.db.GetContext(ctx, &comment, query, id)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	query := `
		UPDATE comments
		SET body = $2, updated_at = NOW()
		WHERE comment_id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	return r.db.QueryRowxContext(ctx, query,
		comment.ID, comment.Body,
	).Scan(&comment.UpdatedAt)
}

func (r *commentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE comments SET deleted_at = NOW() WHERE comment_id = $1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ListRoots returns root comments (parent_id IS NULL) for one content item,
// newest first. Callers over-fetch by one row to detect a following page
// without a count query.
func (r *commentRepository) ListRoots(ctx context.Context, contentItemID string, limit, offset int) ([]domain.Comment, error) {
	query := `
		SELECT * FROM comments
		WHERE content_item_id = $1 AND parent_id IS NULL AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	comments := []domain.Comment{}
	err := r.db.SelectContext(ctx, &comments, query, contentItemID, limit, offset)
	return comments, err
}

// ListByParentIDs returns the direct replies of every listed parent; one
// call per breadth-first expansion round.
func (r *commentRepository) ListByParentIDs(ctx context.Context, parentIDs []uuid.UUID) ([]domain.Comment, error) {
	if len(parentIDs) == 0 {
		return []domain.Comment{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT * FROM comments
		WHERE parent_id IN (?) AND deleted_at IS NULL
		ORDER BY created_at ASC`, parentIDs)
	if err != nil {
		return nil, err
	}

	query = r.db.Rebind(query)
	comments := []domain.Comment{}
	err = r.db.SelectContext(ctx, &comments, query, args...)
	return comments, err
}
