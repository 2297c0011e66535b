package feed

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"komentar/internal/domain"
	"komentar/internal/realtime"
)

const snapshotBuffer = 8

// Session reconciles one viewer's window for one content item. It owns two
// push-channel subscriptions (comments, reactions) acquired on open and
// released by Close. A comment event of any type triggers a full rebuild
// of everything visible so far; the event payload itself is never applied,
// which keeps reconciliation correct under duplicate or out-of-order
// delivery. A reaction event only re-aggregates the affected comment.
//
// A viewer's own write follows the same path: it becomes visible when the
// reconciler observes the event, not when the write call returns.
type Session struct {
	svc           *service
	contentItemID string
	viewer        domain.Identity

	commentSub  realtime.Subscription
	reactionSub realtime.Subscription

	snapshots  chan *domain.WindowSnapshot
	loadMoreCh chan struct{}
	results    chan buildResult
	done       chan struct{}
	closeOnce  sync.Once

	// gen orders rebuilds; a fetch result whose generation is no longer
	// current is discarded so a slow response cannot overwrite newer state.
	gen atomic.Uint64

	// owned by the run goroutine
	page    int
	hasMore bool
	loading bool
	latest  *domain.WindowSnapshot
}

type buildResult struct {
	gen  uint64
	page int
	snap *domain.WindowSnapshot
}

func (s *service) OpenSession(ctx context.Context, contentItemID string, viewer domain.Identity) (*Session, error) {
	commentSub, err := s.channel.Subscribe(ctx, realtime.Topic(contentItemID, domain.TableComments))
	if err != nil {
		return nil, err
	}
	reactionSub, err := s.channel.Subscribe(ctx, realtime.Topic(contentItemID, domain.TableReactions))
	if err != nil {
		_ = commentSub.Close()
		return nil, err
	}

	sess := &Session{
		svc:           s,
		contentItemID: contentItemID,
		viewer:        viewer,
		commentSub:    commentSub,
		reactionSub:   reactionSub,
		snapshots:     make(chan *domain.WindowSnapshot, snapshotBuffer),
		loadMoreCh:    make(chan struct{}, 1),
		results:       make(chan buildResult, 4),
		done:          make(chan struct{}),
	}
	go sess.run(ctx)
	return sess, nil
}

// Snapshots delivers every reconciled window. The channel closes when the
// session ends.
func (s *Session) Snapshots() <-chan *domain.WindowSnapshot {
	return s.snapshots
}

// LoadMore requests the next page. It is a no-op while a load is in flight
// or when no further page exists.
func (s *Session) LoadMore() {
	select {
	case s.loadMoreCh <- struct{}{}:
	default:
	}
}

// Close releases both subscriptions. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.commentSub.Close()
		_ = s.reactionSub.Close()
	})
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.snapshots)

	s.startRebuild(ctx, s.page)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return

		case _, ok := <-s.commentSub.Events():
			if !ok {
				return
			}
			s.startRebuild(ctx, s.page)

		case evt, ok := <-s.reactionSub.Events():
			if !ok {
				return
			}
			if evt.Type == domain.ChangeResync || s.latest == nil {
				s.startRebuild(ctx, s.page)
			} else {
				s.refreshReactions(ctx, evt.CommentID)
			}

		case <-s.loadMoreCh:
			if !s.hasMore || s.loading {
				continue
			}
			s.startRebuild(ctx, s.page+1)

		case res := <-s.results:
			if res.gen != s.gen.Load() {
				// Superseded while in flight.
				continue
			}
			s.loading = false
			if res.snap.Err != "" {
				// Pagination state stays as it was, so a later LoadMore can
				// retry the same page instead of being wedged by a transient
				// fetch failure.
				s.emit(res.snap)
				continue
			}
			s.page = res.page
			if len(res.snap.Roots) == 0 {
				s.page = 0
			}
			s.hasMore = res.snap.HasMore
			s.latest = res.snap
			s.emit(res.snap)
		}
	}
}

func (s *Session) startRebuild(ctx context.Context, page int) {
	gen := s.gen.Add(1)
	s.loading = true
	go func() {
		snap, err := s.svc.rebuildWindow(ctx, s.contentItemID, page, s.viewer)
		if err != nil {
			log.Printf("feed: rebuild window for %s: %v", s.contentItemID, err)
			snap = &domain.WindowSnapshot{
				ContentItemID: s.contentItemID,
				Page:          page,
				Roots:         []*domain.CommentNode{},
				Err:           "failed to load comments",
			}
		}
		select {
		case s.results <- buildResult{gen: gen, page: page, snap: snap}:
		case <-s.done:
		case <-ctx.Done():
		}
	}()
}

// refreshReactions re-aggregates one comment and emits a patched copy of
// the current snapshot. Snapshots already emitted are immutable: a consumer
// may still be serializing them on its own goroutine.
func (s *Session) refreshReactions(ctx context.Context, commentID uuid.UUID) {
	if s.latest.FindNode(commentID) == nil {
		return
	}
	summaries, err := s.svc.reactions.AggregateOne(ctx, commentID, s.viewer)
	if err != nil {
		log.Printf("feed: refresh reactions for %s: %v", commentID, err)
		return
	}
	if summaries == nil {
		summaries = []domain.ReactionSummary{}
	}
	patched := s.latest.WithReactions(commentID, summaries)
	if patched == nil {
		return
	}
	s.latest = patched
	s.emit(patched)
}

// emit never blocks the reconciler on a slow consumer: the newest snapshot
// wins, older undelivered ones are dropped.
func (s *Session) emit(snap *domain.WindowSnapshot) {
	select {
	case s.snapshots <- snap:
		return
	default:
	}
	select {
	case <-s.snapshots:
	default:
	}
	select {
	case s.snapshots <- snap:
	default:
	}
}
