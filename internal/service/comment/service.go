package comment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"komentar/internal/domain"
	"komentar/internal/realtime"
	"komentar/internal/repository"
)

var (
	ErrEmptyBody        = errors.New("comment body must not be empty")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrParentNotFound   = errors.New("parent comment not found")
	ErrParentMismatch   = errors.New("parent comment belongs to a different content item")
	ErrNotCommentAuthor = errors.New("insufficient permissions to modify this comment")
)

// Service owns the comment write path. Writes are acknowledged when the
// store accepts them; they become visible to viewers only through the feed
// reconciler observing the published change event.
type Service interface {
	Submit(ctx context.Context, contentItemID string, author domain.Identity, input domain.CreateCommentInput) (*domain.Comment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error)
	Edit(ctx context.Context, editor domain.Identity, id uuid.UUID, input domain.UpdateCommentInput) (*domain.Comment, error)
	Delete(ctx context.Context, requester domain.Identity, id uuid.UUID) error
}

type service struct {
	commentRepo repository.CommentRepository
	channel     realtime.Channel
	redis       *redis.Client
}

func NewService(commentRepo repository.CommentRepository, channel realtime.Channel, redisClient *redis.Client) Service {
	return &service{
		commentRepo: commentRepo,
		channel:     channel,
		redis:       redisClient,
	}
}

func (s *service) Submit(ctx context.Context, contentItemID string, author domain.Identity, input domain.CreateCommentInput) (*domain.Comment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	if input.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *input.ParentID)
		if err != nil {
			return nil, ErrParentNotFound
		}
		if parent.ContentItemID != contentItemID {
			return nil, ErrParentMismatch
		}
	}

	comment := &domain.Comment{
		ID:            uuid.New(),
		ContentItemID: contentItemID,
		ParentID:      input.ParentID,
		AuthorKey:     author.Key(),
		DisplayName:   author.DisplayName,
		AvatarURL:     author.AvatarURL,
		Body:          body,
	}
	if author.IsAuthenticated() {
		userID := author.UserID
		comment.AuthorUserID = &userID
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.invalidateWindowCache(ctx, contentItemID)
	s.publish(ctx, domain.ChangeInsert, comment)

	return comment, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

func (s *service) Edit(ctx context.Context, editor domain.Identity, id uuid.UUID, input domain.UpdateCommentInput) (*domain.Comment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrCommentNotFound
	}

	if !domain.CanModify(comment, editor) {
		return nil, ErrNotCommentAuthor
	}

	comment.Body = body
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}

	s.invalidateWindowCache(ctx, comment.ContentItemID)
	s.publish(ctx, domain.ChangeUpdate, comment)

	return comment, nil
}

func (s *service) Delete(ctx context.Context, requester domain.Identity, id uuid.UUID) error {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return ErrCommentNotFound
	}

	if !domain.CanModify(comment, requester) {
		return ErrNotCommentAuthor
	}

	if err := s.commentRepo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.invalidateWindowCache(ctx, comment.ContentItemID)
	s.publish(ctx, domain.ChangeDelete, comment)

	return nil
}

// publish announces the accepted write. Failure to publish never fails the
// write itself; viewers catch up on the next event or resync.
func (s *service) publish(ctx context.Context, changeType domain.ChangeType, comment *domain.Comment) {
	if s.channel == nil {
		return
	}
	event := domain.ChangeEvent{
		Type:          changeType,
		Table:         domain.TableComments,
		ContentItemID: comment.ContentItemID,
		CommentID:     comment.ID,
		OccurredAt:    time.Now(),
	}
	topic := realtime.Topic(comment.ContentItemID, domain.TableComments)
	if err := s.channel.Publish(ctx, topic, event); err != nil {
		log.Printf("comment: publish %s event for %s: %v", changeType, comment.ID, err)
	}
}

func (s *service) invalidateWindowCache(ctx context.Context, contentItemID string) {
	if s.redis == nil {
		return
	}
	pattern := fmt.Sprintf("feedcache:%s:*", contentItemID)
	keys, _ := s.redis.Keys(ctx, pattern).Result()
	if len(keys) > 0 {
		_ = s.redis.Del(ctx, keys...).Err()
	}
}
