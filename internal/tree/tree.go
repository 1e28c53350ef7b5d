// Package tree loads a user's placement tree to a fixed depth and renders it.
//
// Loading is breadth-first: every node of a level is fetched concurrently,
// then the next level is built from the child ids. Empty slots
// (model.EmptyUserID) are never fetched but still get two empty children
// until MaxDepth, so every level is complete. A failed fetch marks that node
// Errored and prunes its subtree; siblings are unaffected.
//
// Load is synchronous. A node is Loading only while its level is in flight,
// so a returned tree holds Rendered, Errored and Empty nodes only.
package tree

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
)

// MaxDepth bounds the tree at three levels: one root, two children, four
// grandchildren, at most seven fetches.
const MaxDepth = 3

// State is where a node is in its load.
type State int

const (
	StateLoading State = iota
	StateRendered
	StateErrored
	StateEmpty
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateRendered:
		return "rendered"
	case StateErrored:
		return "errored"
	case StateEmpty:
		return "empty"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Node is one slot of the loaded tree.
type Node struct {
	UserID   int64
	Level    int // 1 for the root
	Position model.Position
	State    State
	Data     model.BinaryNode
	Err      error
	// Expanded reveals counts and carry-forward. Toggling never refetches.
	Expanded bool

	// Left and Right are nil below MaxDepth and under errored nodes.
	Left, Right *Node
}

// Empty reports whether the slot is unoccupied.
func (n *Node) Empty() bool { return n.UserID == model.EmptyUserID }

// Toggle flips Expanded on a rendered node.
func (n *Node) Toggle() {
	if n.State == StateRendered {
		n.Expanded = !n.Expanded
	}
}

// Children returns Left and Right, or nil for a leaf.
func (n *Node) Children() []*Node {
	if n.Left == nil && n.Right == nil {
		return nil
	}
	return []*Node{n.Left, n.Right}
}

// ErrorMessage is the user-visible text of Err.
func (n *Node) ErrorMessage() string { return apperror.UserMessage(n.Err) }

// Walk visits n and its descendants depth-first, left before right.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	n.Left.Walk(fn)
	n.Right.Walk(fn)
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Left = n.Left.Clone()
	c.Right = n.Right.Clone()
	return &c
}

// Find returns the first non-empty node with the given user id.
func (n *Node) Find(userID int64) *Node {
	var found *Node
	n.Walk(func(c *Node) {
		if found == nil && !c.Empty() && c.UserID == userID {
			found = c
		}
	})
	return found
}

// Fetcher returns one normalised node. *api.Binary implements it.
type Fetcher interface {
	Node(ctx context.Context, userID int64) (model.BinaryNode, error)
}

// Loader builds trees.
type Loader struct {
	fetch       Fetcher
	concurrency int
	logger      *slog.Logger
}

// NewLoader returns a Loader that runs at most concurrency fetches at once.
// Values below 1 mean one at a time.
func NewLoader(fetch Fetcher, concurrency int, logger *slog.Logger) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetch: fetch, concurrency: concurrency, logger: logger}
}

// Load returns the tree rooted at rootID, fully formed to MaxDepth. It
// never fails as a whole: per-node failures are recorded on the nodes.
func (l *Loader) Load(ctx context.Context, rootID int64) *Node {
	root := &Node{UserID: rootID, Level: 1}

	for level := []*Node{root}; len(level) > 0; {
		l.fetchLevel(ctx, level)
		level = l.expand(level)
	}
	return root
}

func (l *Loader) fetchLevel(ctx context.Context, level []*Node) {
	var g errgroup.Group
	g.SetLimit(l.concurrency)

	for _, n := range level {
		if n.Empty() {
			n.State = StateEmpty
			continue
		}
		n.State = StateLoading
		g.Go(func() error {
			data, err := l.fetch.Node(ctx, n.UserID)
			if err != nil {
				l.logger.Warn("binary node fetch failed",
					slog.Int64("user_id", n.UserID),
					slog.String("error", err.Error()),
				)
				n.State = StateErrored
				n.Err = err
				return nil
			}
			n.Data = data
			n.State = StateRendered
			return nil
		})
	}
	// goroutines never return an error; failures live on the nodes
	_ = g.Wait()
}

func (l *Loader) expand(level []*Node) []*Node {
	var next []*Node
	for _, n := range level {
		if n.Level >= MaxDepth || n.State == StateErrored {
			continue
		}
		left, right := model.EmptyUserID, model.EmptyUserID
		if n.State == StateRendered {
			left, right = n.Data.LeftChildID, n.Data.RightChildID
		}
		n.Left = &Node{UserID: left, Level: n.Level + 1, Position: model.PositionLeft}
		n.Right = &Node{UserID: right, Level: n.Level + 1, Position: model.PositionRight}
		next = append(next, n.Left, n.Right)
	}
	return next
}

// View is a loaded tree as seen by one user.
type View struct {
	Root     *Node
	ViewerID int64
}

// CanReset reports whether the "back to my tree" affordance applies: the
// displayed root is someone other than the viewer.
func (v View) CanReset() bool {
	return v.Root != nil && v.Root.UserID != v.ViewerID
}
