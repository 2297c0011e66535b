package domain

import "github.com/google/uuid"

// CommentNode is one comment with its derived children, annotated for a
// specific viewer and ready for rendering.
type CommentNode struct {
	Comment
	CanModify bool              `json:"can_modify"`
	Reactions []ReactionSummary `json:"reactions"`
	Children  []*CommentNode    `json:"children"`
}

// WindowSnapshot is the fully derived visible window for one viewer. A
// snapshot with Err set carries an empty forest; a stale or partial tree
// is never emitted.
type WindowSnapshot struct {
	ContentItemID string         `json:"content_item_id"`
	Page          int            `json:"page"`
	HasMore       bool           `json:"has_more"`
	Roots         []*CommentNode `json:"roots"`
	Err           string         `json:"error,omitempty"`
}

// Walk visits every node of the snapshot's forest depth-first.
func (s *WindowSnapshot) Walk(fn func(*CommentNode)) {
	var visit func(nodes []*CommentNode)
	visit = func(nodes []*CommentNode) {
		for _, n := range nodes {
			fn(n)
			visit(n.Children)
		}
	}
	visit(s.Roots)
}

// CommentIDs returns the ids of every comment in the snapshot's forest.
func (s *WindowSnapshot) CommentIDs() []uuid.UUID {
	var ids []uuid.UUID
	s.Walk(func(n *CommentNode) {
		ids = append(ids, n.ID)
	})
	return ids
}

// FindNode returns the node with the given id, or nil.
func (s *WindowSnapshot) FindNode(id uuid.UUID) *CommentNode {
	var found *CommentNode
	s.Walk(func(n *CommentNode) {
		if n.ID == id {
			found = n
		}
	})
	return found
}

// WithReactions returns a copy of the snapshot with one comment's reaction
// rollup replaced. Nodes on the path to that comment are cloned and every
// other subtree is shared; a snapshot already handed to a consumer is never
// mutated. Returns nil when the comment is not in the forest.
func (s *WindowSnapshot) WithReactions(id uuid.UUID, summaries []ReactionSummary) *WindowSnapshot {
	roots, ok := replaceReactions(s.Roots, id, summaries)
	if !ok {
		return nil
	}
	out := *s
	out.Roots = roots
	return &out
}

func replaceReactions(nodes []*CommentNode, id uuid.UUID, summaries []ReactionSummary) ([]*CommentNode, bool) {
	for i, n := range nodes {
		if n.ID == id {
			clone := *n
			clone.Reactions = summaries
			return replaceNode(nodes, i, &clone), true
		}
		if children, ok := replaceReactions(n.Children, id, summaries); ok {
			clone := *n
			clone.Children = children
			return replaceNode(nodes, i, &clone), true
		}
	}
	return nil, false
}

func replaceNode(nodes []*CommentNode, i int, n *CommentNode) []*CommentNode {
	out := make([]*CommentNode, len(nodes))
	copy(out, nodes)
	out[i] = n
	return out
}
