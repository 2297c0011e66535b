package domain

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID            uuid.UUID  `json:"id" db:"comment_id"`
	ContentItemID string     `json:"content_item_id" db:"content_item_id"`
	ParentID      *uuid.UUID `json:"parent_id" db:"parent_id"`
	AuthorKey     string     `json:"-" db:"author_key"`
	AuthorUserID  *uuid.UUID `json:"author_user_id,omitempty" db:"author_user_id"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	AvatarURL     *string    `json:"avatar_url" db:"avatar_url"`
	Body          string     `json:"body" db:"body"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"-" db:"deleted_at"`
}

func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

type CreateCommentInput struct {
	ParentID *uuid.UUID `json:"parent_id"`
	Body     string     `json:"body" validate:"required,min=1,max=4000"`
}

type UpdateCommentInput struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}
