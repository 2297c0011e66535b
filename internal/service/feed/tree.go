package feed

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"komentar/internal/domain"
)

// collectReplies expands the visible roots into all their transitive
// replies, one storage round per depth level. Depth is unbounded in
// storage and the parent-pointer schema cannot express "all descendants"
// in one query, so the expansion loops until a round comes back empty.
func (s *service) collectReplies(ctx context.Context, rootIDs []uuid.UUID) ([]domain.Comment, error) {
	seen := make(map[uuid.UUID]bool, len(rootIDs))
	for _, id := range rootIDs {
		seen[id] = true
	}

	frontier := rootIDs
	var replies []domain.Comment
	for len(frontier) > 0 {
		batch, err := s.commentRepo.ListByParentIDs(ctx, frontier)
		if err != nil {
			return nil, err
		}

		next := make([]uuid.UUID, 0, len(batch))
		for _, c := range batch {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			replies = append(replies, c)
			next = append(next, c.ID)
		}
		frontier = next
	}
	return replies, nil
}

// BuildForest turns flat rows into the nested forest. Every comment whose
// parent is in the input nests under it; a comment whose parent is outside
// the fetched set is promoted to a root so it is not silently dropped.
// Roots sort newest-first, siblings oldest-first at every depth, and the
// returned forest contains exactly the visible root ids, so promoted
// orphans never leak outside the pagination window.
func BuildForest(roots, replies []domain.Comment, visibleRoots map[uuid.UUID]bool) ([]*domain.CommentNode, int) {
	nodes := make(map[uuid.UUID]*domain.CommentNode, len(roots)+len(replies))
	ordered := make([]*domain.CommentNode, 0, len(roots)+len(replies))
	for _, c := range roots {
		node := newNode(c)
		nodes[c.ID] = node
		ordered = append(ordered, node)
	}
	for _, c := range replies {
		if _, exists := nodes[c.ID]; exists {
			continue
		}
		node := newNode(c)
		nodes[c.ID] = node
		ordered = append(ordered, node)
	}

	forest := make([]*domain.CommentNode, 0, len(roots))
	orphans := 0
	for _, n := range ordered {
		if n.ParentID == nil {
			forest = append(forest, n)
			continue
		}
		if parent, ok := nodes[*n.ParentID]; ok && parent != n {
			parent.Children = append(parent.Children, n)
			continue
		}
		orphans++
		forest = append(forest, n)
	}

	sort.SliceStable(forest, func(i, j int) bool {
		return forest[i].CreatedAt.After(forest[j].CreatedAt)
	})
	for _, n := range forest {
		sortChildren(n)
	}

	out := make([]*domain.CommentNode, 0, len(forest))
	for _, n := range forest {
		if visibleRoots[n.ID] {
			out = append(out, n)
		}
	}
	return out, orphans
}

func newNode(c domain.Comment) *domain.CommentNode {
	return &domain.CommentNode{
		Comment:   c,
		Reactions: []domain.ReactionSummary{},
		Children:  []*domain.CommentNode{},
	}
}

func sortChildren(n *domain.CommentNode) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].CreatedAt.Before(n.Children[j].CreatedAt)
	})
	for _, child := range n.Children {
		sortChildren(child)
	}
}
