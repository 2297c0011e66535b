// Package feed derives the visible comment window for a viewer: a page
// prefix of root threads, expanded into a nested forest and annotated with
// reaction rollups. Sessions keep that window reconciled against the store
// as change events arrive from other clients.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"komentar/internal/config"
	"komentar/internal/domain"
	"komentar/internal/realtime"
	"komentar/internal/repository"
	"komentar/internal/service/reaction"
)

type Service interface {
	// LoadWindow fetches one page of root threads as a fully derived
	// snapshot. Used by the one-shot REST read.
	LoadWindow(ctx context.Context, contentItemID string, params domain.WindowParams, viewer domain.Identity) (*domain.WindowSnapshot, error)

	// OpenSession acquires the per-content-item subscriptions and starts a
	// reconciling session for the viewer. The caller must Close it on
	// every exit path.
	OpenSession(ctx context.Context, contentItemID string, viewer domain.Identity) (*Session, error)
}

type service struct {
	commentRepo repository.CommentRepository
	reactions   reaction.Service
	channel     realtime.Channel
	redis       *redis.Client
	cfg         *config.Config
}

func NewService(commentRepo repository.CommentRepository, reactions reaction.Service, channel realtime.Channel, redisClient *redis.Client, cfg *config.Config) Service {
	return &service{
		commentRepo: commentRepo,
		reactions:   reactions,
		channel:     channel,
		redis:       redisClient,
		cfg:         cfg,
	}
}

func (s *service) pageSize() int {
	if s.cfg != nil && s.cfg.PageSize > 0 {
		return s.cfg.PageSize
	}
	return domain.DefaultPageSize
}

func (s *service) LoadWindow(ctx context.Context, contentItemID string, params domain.WindowParams, viewer domain.Identity) (*domain.WindowSnapshot, error) {
	params.PageSize = s.pageSize()
	params.Validate()

	cacheKey := fmt.Sprintf("feedcache:%s:%d:%s", contentItemID, params.Page, viewer.Key())
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var snap domain.WindowSnapshot
			if json.Unmarshal([]byte(cached), &snap) == nil {
				return &snap, nil
			}
		}
	}

	// Fetch one extra row so a following page is detected without a count
	// query.
	roots, err := s.commentRepo.ListRoots(ctx, contentItemID, params.PageSize+1, params.Offset())
	if err != nil {
		return nil, err
	}
	hasMore := len(roots) > params.PageSize
	if hasMore {
		roots = roots[:params.PageSize]
	}

	snap, err := s.derive(ctx, contentItemID, roots, params.Page, hasMore, viewer)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if payload, err := json.Marshal(snap); err == nil {
			_ = s.redis.Set(ctx, cacheKey, payload, s.cacheTTL()).Err()
		}
	}
	return snap, nil
}

// rebuildWindow re-derives everything visible through the given page in one
// fetch. Sessions use it for reconciliation and always bypass the cache:
// the point of a rebuild is the authoritative store.
func (s *service) rebuildWindow(ctx context.Context, contentItemID string, page int, viewer domain.Identity) (*domain.WindowSnapshot, error) {
	limit := (page + 1) * s.pageSize()
	roots, err := s.commentRepo.ListRoots(ctx, contentItemID, limit+1, 0)
	if err != nil {
		return nil, err
	}
	hasMore := len(roots) > limit
	if hasMore {
		roots = roots[:limit]
	}
	return s.derive(ctx, contentItemID, roots, page, hasMore, viewer)
}

func (s *service) derive(ctx context.Context, contentItemID string, roots []domain.Comment, page int, hasMore bool, viewer domain.Identity) (*domain.WindowSnapshot, error) {
	rootIDs := make([]uuid.UUID, len(roots))
	visible := make(map[uuid.UUID]bool, len(roots))
	for i, c := range roots {
		rootIDs[i] = c.ID
		visible[c.ID] = true
	}

	replies, err := s.collectReplies(ctx, rootIDs)
	if err != nil {
		return nil, err
	}

	forest, orphans := BuildForest(roots, replies, visible)
	if orphans > 0 {
		// Not an error: the parent is usually just on a later page. A
		// rising count signals a pagination-boundary mismatch.
		log.Printf("feed: %d orphaned comment(s) on %s promoted outside the window", orphans, contentItemID)
	}

	snap := &domain.WindowSnapshot{
		ContentItemID: contentItemID,
		Page:          page,
		HasMore:       hasMore,
		Roots:         forest,
	}

	summaries, err := s.reactions.Aggregate(ctx, snap.CommentIDs(), viewer)
	if err != nil {
		return nil, err
	}
	snap.Walk(func(n *domain.CommentNode) {
		if list, ok := summaries[n.ID]; ok {
			n.Reactions = list
		}
		n.CanModify = domain.CanModify(&n.Comment, viewer)
	})

	return snap, nil
}

func (s *service) cacheTTL() time.Duration {
	if s.cfg != nil && s.cfg.WindowCacheTTL > 0 {
		return s.cfg.WindowCacheTTL
	}
	return time.Minute
}
