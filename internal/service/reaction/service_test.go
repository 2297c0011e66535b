package reaction_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"komentar/internal/domain"
	"komentar/internal/repository"
	"komentar/internal/service/reaction"
	"komentar/tests/mocks"
)

func newService(reactionRepo *mocks.ReactionRepository, commentRepo *mocks.CommentRepository) reaction.Service {
	return reaction.NewService(reactionRepo, commentRepo, mocks.NewMemoryChannel(), nil)
}

func TestToggle_Involution(t *testing.T) {
	ctx := context.Background()
	viewer := domain.NewAnonymous("anon-42")
	commentID := uuid.New()
	existing := &domain.Comment{ID: commentID, ContentItemID: "article-1"}

	reactionRepo := new(mocks.ReactionRepository)
	commentRepo := new(mocks.CommentRepository)
	svc := newService(reactionRepo, commentRepo)

	commentRepo.On("GetByID", ctx, commentID).Return(existing, nil)

	// First toggle: nothing stored yet, so it inserts.
	reactionRepo.On("GetByTuple", ctx, commentID, viewer.Key(), "👍").Return(nil, nil).Once()
	reactionRepo.On("Create", ctx, mock.MatchedBy(func(r *domain.Reaction) bool {
		return r.CommentID == commentID && r.AuthorKey == viewer.Key() && r.Emoji == "👍"
	})).Return(nil).Once()

	present, err := svc.Toggle(ctx, commentID, "👍", viewer)
	require.NoError(t, err)
	assert.True(t, present)

	// Second toggle: the row exists, so it deletes.
	stored := &domain.Reaction{ID: uuid.New(), CommentID: commentID, AuthorKey: viewer.Key(), Emoji: "👍"}
	reactionRepo.On("GetByTuple", ctx, commentID, viewer.Key(), "👍").Return(stored, nil).Once()
	reactionRepo.On("Delete", ctx, stored.ID).Return(nil).Once()

	present, err = svc.Toggle(ctx, commentID, "👍", viewer)
	require.NoError(t, err)
	assert.False(t, present)

	reactionRepo.AssertExpectations(t)
}

func TestToggle_RacingDuplicateInsertIsBenign(t *testing.T) {
	ctx := context.Background()
	viewer := domain.NewAnonymous("anon-42")
	commentID := uuid.New()

	reactionRepo := new(mocks.ReactionRepository)
	commentRepo := new(mocks.CommentRepository)
	svc := newService(reactionRepo, commentRepo)

	commentRepo.On("GetByID", ctx, commentID).Return(&domain.Comment{ID: commentID, ContentItemID: "article-1"}, nil)
	// Both racing toggles observed "not present"; the store rejects the
	// loser with its uniqueness constraint.
	reactionRepo.On("GetByTuple", ctx, commentID, viewer.Key(), "❤️").Return(nil, nil).Once()
	reactionRepo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicateReaction).Once()

	present, err := svc.Toggle(ctx, commentID, "❤️", viewer)
	require.NoError(t, err)
	assert.True(t, present)

	reactionRepo.AssertExpectations(t)
}

func TestToggle_InvalidatesWindowCache(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	viewer := domain.NewAnonymous("anon-42")
	commentID := uuid.New()

	reactionRepo := new(mocks.ReactionRepository)
	commentRepo := new(mocks.CommentRepository)
	svc := reaction.NewService(reactionRepo, commentRepo, mocks.NewMemoryChannel(), client)

	commentRepo.On("GetByID", ctx, commentID).Return(&domain.Comment{ID: commentID, ContentItemID: "article-1"}, nil)
	reactionRepo.On("GetByTuple", ctx, commentID, viewer.Key(), "👍").Return(nil, nil).Once()
	reactionRepo.On("Create", ctx, mock.Anything).Return(nil).Once()

	// Cached one-shot windows for this content item must not survive the
	// toggle; other content items keep theirs.
	require.NoError(t, client.Set(ctx, "feedcache:article-1:0:"+viewer.Key(), "cached", 0).Err())
	require.NoError(t, client.Set(ctx, "feedcache:article-2:0:"+viewer.Key(), "cached", 0).Err())

	_, err := svc.Toggle(ctx, commentID, "👍", viewer)
	require.NoError(t, err)

	assert.Equal(t, int64(0), client.Exists(ctx, "feedcache:article-1:0:"+viewer.Key()).Val())
	assert.Equal(t, int64(1), client.Exists(ctx, "feedcache:article-2:0:"+viewer.Key()).Val())
}

func TestToggle_RejectsUnknownEmoji(t *testing.T) {
	reactionRepo := new(mocks.ReactionRepository)
	commentRepo := new(mocks.CommentRepository)
	svc := newService(reactionRepo, commentRepo)

	_, err := svc.Toggle(context.Background(), uuid.New(), "🤖", domain.NewAnonymous("anon-42"))
	assert.ErrorIs(t, err, reaction.ErrInvalidEmoji)
	commentRepo.AssertNotCalled(t, "GetByID")
}

func TestAggregate_CountsAndViewerFlag(t *testing.T) {
	ctx := context.Background()
	commentZ := uuid.New()
	anon42 := domain.NewAnonymous("anon-42")
	other := domain.NewAnonymous("anon-7")

	rows := []domain.Reaction{
		{ID: uuid.New(), CommentID: commentZ, AuthorKey: anon42.Key(), Emoji: "👍", CreatedAt: time.Now()},
		{ID: uuid.New(), CommentID: commentZ, AuthorKey: other.Key(), Emoji: "👍", CreatedAt: time.Now()},
		{ID: uuid.New(), CommentID: commentZ, AuthorKey: other.Key(), Emoji: "🎉", CreatedAt: time.Now()},
	}

	reactionRepo := new(mocks.ReactionRepository)
	commentRepo := new(mocks.CommentRepository)
	svc := newService(reactionRepo, commentRepo)

	reactionRepo.On("ListByCommentIDs", ctx, []uuid.UUID{commentZ}).Return(rows, nil)

	result, err := svc.Aggregate(ctx, []uuid.UUID{commentZ}, anon42)
	require.NoError(t, err)

	summaries := result[commentZ]
	require.Len(t, summaries, 2)

	byEmoji := map[string]domain.ReactionSummary{}
	for _, s := range summaries {
		byEmoji[s.Emoji] = s
	}
	assert.Equal(t, 2, byEmoji["👍"].Count)
	assert.True(t, byEmoji["👍"].HasReacted)
	assert.Equal(t, 1, byEmoji["🎉"].Count)
	assert.False(t, byEmoji["🎉"].HasReacted)
}

func TestAggregateOne_EmptyWhenNoReactions(t *testing.T) {
	ctx := context.Background()
	commentID := uuid.New()

	reactionRepo := new(mocks.ReactionRepository)
	commentRepo := new(mocks.CommentRepository)
	svc := newService(reactionRepo, commentRepo)

	reactionRepo.On("ListByCommentIDs", ctx, []uuid.UUID{commentID}).Return([]domain.Reaction{}, nil)

	summaries, err := svc.AggregateOne(ctx, commentID, domain.NewAnonymous("anon-42"))
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
