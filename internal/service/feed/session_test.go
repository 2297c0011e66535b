package feed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"komentar/internal/config"
	"komentar/internal/domain"
	"komentar/internal/realtime"
	"komentar/internal/service/feed"
	"komentar/internal/service/reaction"
	"komentar/tests/mocks"
)

func waitSnapshot(t *testing.T, session *feed.Session) *domain.WindowSnapshot {
	t.Helper()
	select {
	case snap, ok := <-session.Snapshots():
		require.True(t, ok, "snapshot channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func publishComment(channel *mocks.MemoryChannel, contentItemID string, changeType domain.ChangeType) {
	_ = channel.Publish(context.Background(), realtime.Topic(contentItemID, domain.TableComments), domain.ChangeEvent{
		Type:          changeType,
		Table:         domain.TableComments,
		ContentItemID: contentItemID,
		CommentID:     uuid.New(),
		OccurredAt:    time.Now(),
	})
}

func TestSession_CommentEventTriggersFullRebuild(t *testing.T) {
	commentRepo := new(mocks.CommentRepository)
	reactionRepo := new(mocks.ReactionRepository)
	channel := mocks.NewMemoryChannel()
	reactionService := reaction.NewService(reactionRepo, commentRepo, channel, nil)
	svc := feed.NewService(commentRepo, reactionService, channel, nil, &config.Config{PageSize: 10})

	first := makeComment("article-1", nil, treeEpoch)
	second := makeComment("article-1", nil, treeEpoch.Add(time.Minute))

	commentRepo.On("ListRoots", mock.Anything, "article-1", 11, 0).Return([]domain.Comment{first}, nil).Once()
	commentRepo.On("ListRoots", mock.Anything, "article-1", 11, 0).Return([]domain.Comment{second, first}, nil).Once()
	commentRepo.On("ListByParentIDs", mock.Anything, mock.Anything).Return([]domain.Comment{}, nil)
	reactionRepo.On("ListByCommentIDs", mock.Anything, mock.Anything).Return([]domain.Reaction{}, nil)

	session, err := svc.OpenSession(context.Background(), "article-1", domain.NewAnonymous("device-1"))
	require.NoError(t, err)
	defer session.Close()

	initial := waitSnapshot(t, session)
	require.Len(t, initial.Roots, 1)

	// Another client inserted a comment; only the event arrives here. The
	// session must re-derive from the store, never apply the payload.
	publishComment(channel, "article-1", domain.ChangeInsert)

	rebuilt := waitSnapshot(t, session)
	require.Len(t, rebuilt.Roots, 2)
	assert.Equal(t, second.ID, rebuilt.Roots[0].ID)

	commentRepo.AssertExpectations(t)
}

func TestSession_ReactionEventRefreshesOnlyAffectedComment(t *testing.T) {
	commentRepo := new(mocks.CommentRepository)
	reactionRepo := new(mocks.ReactionRepository)
	channel := mocks.NewMemoryChannel()
	reactionService := reaction.NewService(reactionRepo, commentRepo, channel, nil)
	svc := feed.NewService(commentRepo, reactionService, channel, nil, &config.Config{PageSize: 10})

	root := makeComment("article-1", nil, treeEpoch)

	// The window fetch may run exactly once: reaction events must not
	// rebuild the tree.
	commentRepo.On("ListRoots", mock.Anything, "article-1", 11, 0).Return([]domain.Comment{root}, nil).Once()
	commentRepo.On("ListByParentIDs", mock.Anything, mock.Anything).Return([]domain.Comment{}, nil).Once()
	reactionRepo.On("ListByCommentIDs", mock.Anything, mock.Anything).Return([]domain.Reaction{}, nil).Once()
	reactionRepo.On("ListByCommentIDs", mock.Anything, []uuid.UUID{root.ID}).Return([]domain.Reaction{
		{ID: uuid.New(), CommentID: root.ID, AuthorKey: "anon:device-2", Emoji: "👍", CreatedAt: time.Now()},
	}, nil).Once()

	session, err := svc.OpenSession(context.Background(), "article-1", domain.NewAnonymous("device-1"))
	require.NoError(t, err)
	defer session.Close()

	initial := waitSnapshot(t, session)
	require.Len(t, initial.Roots, 1)
	assert.Empty(t, initial.Roots[0].Reactions)

	_ = channel.Publish(context.Background(), realtime.Topic("article-1", domain.TableReactions), domain.ChangeEvent{
		Type:          domain.ChangeInsert,
		Table:         domain.TableReactions,
		ContentItemID: "article-1",
		CommentID:     root.ID,
		OccurredAt:    time.Now(),
	})

	patched := waitSnapshot(t, session)
	require.Len(t, patched.Roots, 1)
	require.Len(t, patched.Roots[0].Reactions, 1)
	assert.Equal(t, "👍", patched.Roots[0].Reactions[0].Emoji)
	assert.Equal(t, 1, patched.Roots[0].Reactions[0].Count)
	assert.False(t, patched.Roots[0].Reactions[0].HasReacted)

	commentRepo.AssertExpectations(t)
	reactionRepo.AssertExpectations(t)
}

func TestSession_ReactionRefreshLeavesEmittedSnapshotUntouched(t *testing.T) {
	commentRepo := new(mocks.CommentRepository)
	reactionRepo := new(mocks.ReactionRepository)
	channel := mocks.NewMemoryChannel()
	reactionService := reaction.NewService(reactionRepo, commentRepo, channel, nil)
	svc := feed.NewService(commentRepo, reactionService, channel, nil, &config.Config{PageSize: 10})

	root := makeComment("article-1", nil, treeEpoch)

	commentRepo.On("ListRoots", mock.Anything, "article-1", 11, 0).Return([]domain.Comment{root}, nil).Once()
	commentRepo.On("ListByParentIDs", mock.Anything, mock.Anything).Return([]domain.Comment{}, nil).Once()
	reactionRepo.On("ListByCommentIDs", mock.Anything, mock.Anything).Return([]domain.Reaction{}, nil).Once()
	reactionRepo.On("ListByCommentIDs", mock.Anything, []uuid.UUID{root.ID}).Return([]domain.Reaction{
		{ID: uuid.New(), CommentID: root.ID, AuthorKey: "anon:device-2", Emoji: "👍", CreatedAt: time.Now()},
	}, nil).Once()

	session, err := svc.OpenSession(context.Background(), "article-1", domain.NewAnonymous("device-1"))
	require.NoError(t, err)
	defer session.Close()

	initial := waitSnapshot(t, session)
	require.Len(t, initial.Roots, 1)
	// A consumer holds on to the delivered snapshot, possibly serializing it
	// on its own goroutine while the session keeps reconciling.
	held := initial.Roots[0]
	require.Empty(t, held.Reactions)

	_ = channel.Publish(context.Background(), realtime.Topic("article-1", domain.TableReactions), domain.ChangeEvent{
		Type:          domain.ChangeInsert,
		Table:         domain.TableReactions,
		ContentItemID: "article-1",
		CommentID:     root.ID,
		OccurredAt:    time.Now(),
	})

	patched := waitSnapshot(t, session)
	require.Len(t, patched.Roots, 1)
	require.Len(t, patched.Roots[0].Reactions, 1)

	// The refresh must patch a copy, never the node already handed out.
	assert.Empty(t, held.Reactions)
	assert.NotSame(t, held, patched.Roots[0])
}

func TestSession_LoadMoreSurvivesTransientFetchError(t *testing.T) {
	commentRepo := new(mocks.CommentRepository)
	reactionRepo := new(mocks.ReactionRepository)
	channel := mocks.NewMemoryChannel()
	reactionService := reaction.NewService(reactionRepo, commentRepo, channel, nil)
	svc := feed.NewService(commentRepo, reactionService, channel, nil, &config.Config{PageSize: 10})

	roots := make([]domain.Comment, 12)
	for i := range roots {
		roots[i] = makeComment("article-1", nil, treeEpoch.Add(time.Duration(-i)*time.Minute))
	}

	commentRepo.On("ListRoots", mock.Anything, "article-1", 11, 0).Return(roots[:11], nil).Once()
	// The page-1 rebuild fails once, then succeeds on retry.
	commentRepo.On("ListRoots", mock.Anything, "article-1", 21, 0).Return(nil, errors.New("connection reset")).Once()
	commentRepo.On("ListRoots", mock.Anything, "article-1", 21, 0).Return(roots, nil).Once()
	commentRepo.On("ListByParentIDs", mock.Anything, mock.Anything).Return([]domain.Comment{}, nil)
	reactionRepo.On("ListByCommentIDs", mock.Anything, mock.Anything).Return([]domain.Reaction{}, nil)

	session, err := svc.OpenSession(context.Background(), "article-1", domain.NewAnonymous("device-1"))
	require.NoError(t, err)
	defer session.Close()

	first := waitSnapshot(t, session)
	assert.True(t, first.HasMore)

	session.LoadMore()
	failed := waitSnapshot(t, session)
	assert.NotEmpty(t, failed.Err)
	assert.Empty(t, failed.Roots)

	// The failed attempt must not commit the page advance or clear hasMore;
	// the next LoadMore retries the same page.
	session.LoadMore()
	second := waitSnapshot(t, session)
	assert.Empty(t, second.Err)
	assert.Len(t, second.Roots, 12)
	assert.Equal(t, 1, second.Page)
	assert.False(t, second.HasMore)

	commentRepo.AssertExpectations(t)
}

func TestSession_LoadMoreGrowsWindowAndNoOpsWhenExhausted(t *testing.T) {
	commentRepo := new(mocks.CommentRepository)
	reactionRepo := new(mocks.ReactionRepository)
	channel := mocks.NewMemoryChannel()
	reactionService := reaction.NewService(reactionRepo, commentRepo, channel, nil)
	svc := feed.NewService(commentRepo, reactionService, channel, nil, &config.Config{PageSize: 10})

	roots := make([]domain.Comment, 12)
	for i := range roots {
		roots[i] = makeComment("article-1", nil, treeEpoch.Add(time.Duration(-i)*time.Minute))
	}

	commentRepo.On("ListRoots", mock.Anything, "article-1", 11, 0).Return(roots[:11], nil).Once()
	commentRepo.On("ListRoots", mock.Anything, "article-1", 21, 0).Return(roots, nil).Once()
	commentRepo.On("ListByParentIDs", mock.Anything, mock.Anything).Return([]domain.Comment{}, nil)
	reactionRepo.On("ListByCommentIDs", mock.Anything, mock.Anything).Return([]domain.Reaction{}, nil)

	session, err := svc.OpenSession(context.Background(), "article-1", domain.NewAnonymous("device-1"))
	require.NoError(t, err)
	defer session.Close()

	first := waitSnapshot(t, session)
	assert.Len(t, first.Roots, 10)
	assert.True(t, first.HasMore)

	session.LoadMore()
	second := waitSnapshot(t, session)
	assert.Len(t, second.Roots, 12)
	assert.False(t, second.HasMore)
	assert.Equal(t, 1, second.Page)

	// Exhausted: further LoadMore calls must not fetch.
	session.LoadMore()
	select {
	case snap := <-session.Snapshots():
		t.Fatalf("unexpected snapshot after exhausted LoadMore: %+v", snap)
	case <-time.After(200 * time.Millisecond):
	}

	commentRepo.AssertExpectations(t)
}

func TestSession_ZeroCommentsResetsPagination(t *testing.T) {
	commentRepo := new(mocks.CommentRepository)
	reactionRepo := new(mocks.ReactionRepository)
	channel := mocks.NewMemoryChannel()
	reactionService := reaction.NewService(reactionRepo, commentRepo, channel, nil)
	svc := feed.NewService(commentRepo, reactionService, channel, nil, &config.Config{PageSize: 10})

	roots := make([]domain.Comment, 12)
	for i := range roots {
		roots[i] = makeComment("article-1", nil, treeEpoch.Add(time.Duration(-i)*time.Minute))
	}

	commentRepo.On("ListRoots", mock.Anything, "article-1", 11, 0).Return(roots[:11], nil).Once()
	commentRepo.On("ListRoots", mock.Anything, "article-1", 21, 0).Return(roots, nil).Once()
	// Everything was deleted while the viewer sat on page 1.
	commentRepo.On("ListRoots", mock.Anything, "article-1", 21, 0).Return([]domain.Comment{}, nil).Once()
	// After the empty rebuild the page must be back to 0.
	commentRepo.On("ListRoots", mock.Anything, "article-1", 11, 0).Return([]domain.Comment{}, nil).Once()
	commentRepo.On("ListByParentIDs", mock.Anything, mock.Anything).Return([]domain.Comment{}, nil)
	reactionRepo.On("ListByCommentIDs", mock.Anything, mock.Anything).Return([]domain.Reaction{}, nil)

	session, err := svc.OpenSession(context.Background(), "article-1", domain.NewAnonymous("device-1"))
	require.NoError(t, err)
	defer session.Close()

	waitSnapshot(t, session)
	session.LoadMore()
	waitSnapshot(t, session)

	publishComment(channel, "article-1", domain.ChangeDelete)
	emptied := waitSnapshot(t, session)
	assert.Empty(t, emptied.Roots)

	publishComment(channel, "article-1", domain.ChangeDelete)
	reset := waitSnapshot(t, session)
	assert.Equal(t, 0, reset.Page)

	commentRepo.AssertExpectations(t)
}

func TestSession_CloseReleasesBothSubscriptions(t *testing.T) {
	commentRepo := new(mocks.CommentRepository)
	reactionRepo := new(mocks.ReactionRepository)
	channel := mocks.NewMemoryChannel()
	reactionService := reaction.NewService(reactionRepo, commentRepo, channel, nil)
	svc := feed.NewService(commentRepo, reactionService, channel, nil, &config.Config{PageSize: 10})

	commentRepo.On("ListRoots", mock.Anything, "article-1", 11, 0).Return([]domain.Comment{}, nil)
	commentRepo.On("ListByParentIDs", mock.Anything, mock.Anything).Return([]domain.Comment{}, nil)
	reactionRepo.On("ListByCommentIDs", mock.Anything, mock.Anything).Return([]domain.Reaction{}, nil)

	commentsTopic := realtime.Topic("article-1", domain.TableComments)
	reactionsTopic := realtime.Topic("article-1", domain.TableReactions)

	session, err := svc.OpenSession(context.Background(), "article-1", domain.NewAnonymous("device-1"))
	require.NoError(t, err)

	assert.Equal(t, 1, channel.OpenSubscriptions(commentsTopic))
	assert.Equal(t, 1, channel.OpenSubscriptions(reactionsTopic))

	require.NoError(t, session.Close())
	require.NoError(t, session.Close()) // idempotent

	assert.Equal(t, 0, channel.OpenSubscriptions(commentsTopic))
	assert.Equal(t, 0, channel.OpenSubscriptions(reactionsTopic))
}
