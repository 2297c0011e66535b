package reaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"komentar/internal/domain"
	"komentar/internal/realtime"
	"komentar/internal/repository"
)

var (
	ErrInvalidEmoji    = errors.New("emoji is not in the allowed set")
	ErrCommentNotFound = errors.New("comment not found")
)

type Service interface {
	// Aggregate computes the per-emoji rollup for every listed comment,
	// with HasReacted evaluated against the viewer.
	Aggregate(ctx context.Context, commentIDs []uuid.UUID, viewer domain.Identity) (map[uuid.UUID][]domain.ReactionSummary, error)

	// AggregateOne recomputes a single comment; used for targeted refresh
	// on reaction events, which never change tree shape.
	AggregateOne(ctx context.Context, commentID uuid.UUID, viewer domain.Identity) ([]domain.ReactionSummary, error)

	// Toggle adds the viewer's reaction if absent, removes it if present,
	// and reports whether it is present afterwards. Two toggles racing past
	// each other can both attempt the insert; the store rejects the second
	// and Toggle treats that as the reaction simply being present.
	Toggle(ctx context.Context, commentID uuid.UUID, emoji string, viewer domain.Identity) (bool, error)
}

type service struct {
	reactionRepo repository.ReactionRepository
	commentRepo  repository.CommentRepository
	channel      realtime.Channel
	redis        *redis.Client
}

func NewService(reactionRepo repository.ReactionRepository, commentRepo repository.CommentRepository, channel realtime.Channel, redisClient *redis.Client) Service {
	return &service{
		reactionRepo: reactionRepo,
		commentRepo:  commentRepo,
		channel:      channel,
		redis:        redisClient,
	}
}

func (s *service) Aggregate(ctx context.Context, commentIDs []uuid.UUID, viewer domain.Identity) (map[uuid.UUID][]domain.ReactionSummary, error) {
	reactions, err := s.reactionRepo.ListByCommentIDs(ctx, commentIDs)
	if err != nil {
		return nil, err
	}

	viewerKey := viewer.Key()
	type bucket struct {
		count      int
		hasReacted bool
	}
	perComment := make(map[uuid.UUID]map[string]*bucket)
	for _, r := range reactions {
		emojis, ok := perComment[r.CommentID]
		if !ok {
			emojis = make(map[string]*bucket)
			perComment[r.CommentID] = emojis
		}
		b, ok := emojis[r.Emoji]
		if !ok {
			b = &bucket{}
			emojis[r.Emoji] = b
		}
		b.count++
		if r.AuthorKey == viewerKey {
			b.hasReacted = true
		}
	}

	result := make(map[uuid.UUID][]domain.ReactionSummary, len(perComment))
	for commentID, emojis := range perComment {
		summaries := make([]domain.ReactionSummary, 0, len(emojis))
		for emoji, b := range emojis {
			summaries = append(summaries, domain.ReactionSummary{
				Emoji:      emoji,
				Count:      b.count,
				HasReacted: b.hasReacted,
			})
		}
		sort.Slice(summaries, func(i, j int) bool {
			return summaries[i].Emoji < summaries[j].Emoji
		})
		result[commentID] = summaries
	}
	return result, nil
}

func (s *service) AggregateOne(ctx context.Context, commentID uuid.UUID, viewer domain.Identity) ([]domain.ReactionSummary, error) {
	result, err := s.Aggregate(ctx, []uuid.UUID{commentID}, viewer)
	if err != nil {
		return nil, err
	}
	return result[commentID], nil
}

func (s *service) Toggle(ctx context.Context, commentID uuid.UUID, emoji string, viewer domain.Identity) (bool, error) {
	if !domain.IsAllowedEmoji(emoji) {
		return false, ErrInvalidEmoji
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return false, ErrCommentNotFound
	}

	existing, err := s.reactionRepo.GetByTuple(ctx, commentID, viewer.Key(), emoji)
	if err != nil {
		return false, err
	}

	if existing != nil {
		if err := s.reactionRepo.Delete(ctx, existing.ID); err != nil {
			return false, err
		}
		s.invalidateWindowCache(ctx, comment.ContentItemID)
		s.publish(ctx, domain.ChangeDelete, comment.ContentItemID, commentID)
		return false, nil
	}

	reaction := &domain.Reaction{
		ID:        uuid.New(),
		CommentID: commentID,
		AuthorKey: viewer.Key(),
		Emoji:     emoji,
	}
	err = s.reactionRepo.Create(ctx, reaction)
	if errors.Is(err, repository.ErrDuplicateReaction) {
		// Lost a double-toggle race; the row exists, which is the state
		// this insert wanted.
		return true, nil
	}
	if err != nil {
		return false, err
	}

	s.invalidateWindowCache(ctx, comment.ContentItemID)
	s.publish(ctx, domain.ChangeInsert, comment.ContentItemID, commentID)
	return true, nil
}

// invalidateWindowCache drops the one-shot REST windows for the content
// item so a reader's next fetch reflects the toggle instead of waiting out
// the cache TTL.
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

func (s *service) publish(ctx context.Context, changeType domain.ChangeType, contentItemID string, commentID uuid.UUID) {
	if s.channel == nil {
		return
	}
	event := domain.ChangeEvent{
		Type:          changeType,
		Table:         domain.TableReactions,
		ContentItemID: contentItemID,
		CommentID:     commentID,
		OccurredAt:    time.Now(),
	}
	topic := realtime.Topic(contentItemID, domain.TableReactions)
	if err := s.channel.Publish(ctx, topic, event); err != nil {
		log.Printf("reaction: publish %s event for %s: %v", changeType, commentID, err)
	}
}
