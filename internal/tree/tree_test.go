package tree

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeFetcher serves nodes from a map and records every requested id.
type fakeFetcher struct {
	mu      sync.Mutex
	nodes   map[int64]model.BinaryNode
	fail    map[int64]error
	fetched []int64
}

func (f *fakeFetcher) Node(_ context.Context, userID int64) (model.BinaryNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, userID)
	if err, ok := f.fail[userID]; ok {
		return model.BinaryNode{}, err
	}
	n, ok := f.nodes[userID]
	if !ok {
		return model.BinaryNode{}, apperror.NotFound("binary node", "?")
	}
	return n, nil
}

func (f *fakeFetcher) sortedFetched() []int64 {
	out := append([]int64(nil), f.fetched...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func node(id, left, right int64, name string) model.BinaryNode {
	return model.BinaryNode{UserID: id, Name: name, LeftChildID: left, RightChildID: right}
}

func newLoader(f Fetcher) *Loader {
	return NewLoader(f, 4, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// =========================================================================
// LOADER
// =========================================================================

func TestLoad_EmptyRootNeverFetches(t *testing.T) {
	f := &fakeFetcher{}

	root := newLoader(f).Load(context.Background(), model.EmptyUserID)

	assert.Empty(t, f.fetched)
	assert.Equal(t, StateEmpty, root.State)

	// still a complete tree of placeholders
	count := 0
	root.Walk(func(n *Node) {
		count++
		assert.Equal(t, StateEmpty, n.State)
	})
	assert.Equal(t, 7, count)
}

func TestLoad_Node42LeftEmptyRight107(t *testing.T) {
	f := &fakeFetcher{nodes: map[int64]model.BinaryNode{
		42:  node(42, 0, 107, "Ada"),
		107: node(107, 0, 0, "Bob"),
	}}

	root := newLoader(f).Load(context.Background(), 42)

	assert.Equal(t, []int64{42, 107}, f.sortedFetched(), "only non-empty ids are fetched")

	require.NotNil(t, root.Left)
	require.NotNil(t, root.Right)
	assert.Equal(t, StateEmpty, root.Left.State)
	assert.Equal(t, 2, root.Left.Level)

	assert.Equal(t, StateRendered, root.Right.State)
	assert.Equal(t, int64(107), root.Right.UserID)
	assert.Equal(t, "Bob", root.Right.Data.Name)
	assert.Equal(t, 2, root.Right.Level)

	// both level-2 nodes, empty or not, own two level-3 slots
	for _, c := range []*Node{root.Left, root.Right} {
		require.Len(t, c.Children(), 2)
		for _, gc := range c.Children() {
			assert.Equal(t, 3, gc.Level)
			assert.Equal(t, StateEmpty, gc.State)
		}
	}
}

func TestLoad_StopsAtMaxDepth(t *testing.T) {
	// every node has two children, forever
	f := &fakeFetcher{nodes: map[int64]model.BinaryNode{}}
	for id := int64(1); id < 64; id++ {
		f.nodes[id] = node(id, 2*id, 2*id+1, "")
	}

	root := newLoader(f).Load(context.Background(), 1)

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, f.sortedFetched())
	root.Walk(func(n *Node) {
		assert.LessOrEqual(t, n.Level, MaxDepth)
		assert.NotEqual(t, StateLoading, n.State, "Load returns settled nodes")
		if n.Level == MaxDepth {
			assert.Nil(t, n.Children())
		} else {
			assert.Len(t, n.Children(), 2, "node %d", n.UserID)
		}
	})
}

func TestLoad_FailedNodeDoesNotAbortSiblings(t *testing.T) {
	f := &fakeFetcher{
		nodes: map[int64]model.BinaryNode{
			1: node(1, 2, 3, "root"),
			3: node(3, 6, 0, "right"),
			6: node(6, 0, 0, "grandchild"),
		},
		fail: map[int64]error{2: apperror.Transport("GET /binary/tree", io.ErrUnexpectedEOF)},
	}

	root := newLoader(f).Load(context.Background(), 1)

	assert.Equal(t, StateErrored, root.Left.State)
	assert.ErrorIs(t, root.Left.Err, apperror.ErrTransport)
	assert.Nil(t, root.Left.Children(), "errored subtree is not expanded")
	assert.Equal(t, "Could not reach the server, please try again", root.Left.ErrorMessage())

	assert.Equal(t, StateRendered, root.Right.State)
	assert.Equal(t, StateRendered, root.Right.Left.State)
	assert.Equal(t, "grandchild", root.Right.Left.Data.Name)
}

func TestLoad_ConcurrencyBelowOneIsSerial(t *testing.T) {
	f := &fakeFetcher{nodes: map[int64]model.BinaryNode{1: node(1, 0, 0, "")}}
	l := NewLoader(f, 0, nil)

	root := l.Load(context.Background(), 1)
	assert.Equal(t, StateRendered, root.State)
}

// =========================================================================
// NODE / VIEW
// =========================================================================

func TestToggle(t *testing.T) {
	f := &fakeFetcher{nodes: map[int64]model.BinaryNode{42: node(42, 0, 0, "Ada")}}
	root := newLoader(f).Load(context.Background(), 42)

	root.Toggle()
	assert.True(t, root.Expanded)
	root.Toggle()
	assert.False(t, root.Expanded)

	root.Left.Toggle()
	assert.False(t, root.Left.Expanded, "empty slots do not expand")
	assert.Len(t, f.fetched, 1, "toggling never refetches")
}

func TestFind(t *testing.T) {
	f := &fakeFetcher{nodes: map[int64]model.BinaryNode{
		42:  node(42, 0, 107, "Ada"),
		107: node(107, 0, 0, "Bob"),
	}}
	root := newLoader(f).Load(context.Background(), 42)

	assert.Equal(t, "Bob", root.Find(107).Data.Name)
	assert.Nil(t, root.Find(999))
	assert.Nil(t, root.Find(model.EmptyUserID), "empty slots are not findable")
}

func TestClone_IsIndependent(t *testing.T) {
	f := &fakeFetcher{nodes: map[int64]model.BinaryNode{
		42:  node(42, 0, 107, "Ada"),
		107: node(107, 0, 0, "Bob"),
	}}
	root := newLoader(f).Load(context.Background(), 42)

	c := root.Clone()
	c.Find(107).Toggle()

	assert.True(t, c.Find(107).Expanded)
	assert.False(t, root.Find(107).Expanded)
	assert.Nil(t, (*Node)(nil).Clone())
}

func TestView_CanReset(t *testing.T) {
	assert.False(t, View{Root: &Node{UserID: 42}, ViewerID: 42}.CanReset())
	assert.True(t, View{Root: &Node{UserID: 107}, ViewerID: 42}.CanReset())
	assert.False(t, View{}.CanReset())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "rendered", StateRendered.String())
	assert.Equal(t, "State(9)", State(9).String())
}

// =========================================================================
// RENDERING
// =========================================================================

func loadedView(t *testing.T) View {
	t.Helper()
	n42 := node(42, 0, 107, "Ada")
	n42.LeftVolume = decimal.NewFromInt(100)
	n42.LeftCount = 3
	f := &fakeFetcher{nodes: map[int64]model.BinaryNode{
		42:  n42,
		107: node(107, 0, 0, "Bob <script>"),
	}}
	root := newLoader(f).Load(context.Background(), 42)
	root.Toggle()
	return View{Root: root, ViewerID: 42}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, loadedView(t)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "#42 Ada  volume L 100 | R 0\n"), out)
	assert.Contains(t, out, "count L 3 / R 0")
	assert.Contains(t, out, "├── L: (empty)")
	assert.Contains(t, out, "└── R: #107 Bob <script>")
	assert.Equal(t, 5, strings.Count(out, "(empty)"))
	assert.NotContains(t, out, "run without --root")
}

func TestRenderText_ResetHint(t *testing.T) {
	v := loadedView(t)
	v.ViewerID = 1

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, v))
	assert.Contains(t, buf.String(), "run without --root to return to #1")
}

func TestRenderHTML(t *testing.T) {
	v := loadedView(t)
	v.ViewerID = 1

	html, err := HTML(v, "/tree")
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, `href="/tree?root=107"`)
	assert.Contains(t, out, "Back to my tree")
	assert.Contains(t, out, "Carry forward")
	assert.Contains(t, out, `href="/tree?root=42&expand=42">less`, "collapse toggles in place")
	assert.Contains(t, out, `href="/tree?root=42&expand=107">more`)
	assert.Equal(t, 5, strings.Count(out, "Empty slot"))
	assert.NotContains(t, out, "<script>", "names are escaped")
}
