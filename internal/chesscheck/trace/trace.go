// Package trace implements the persistent, prefix-shared trace tree
// that every exploration strategy navigates: one node per distinct
// prefix of thread choices explored so far, with children cached so
// that re-visiting the same prefix returns the same *Node.
//
// Ported from original_source/trace_builder.h and trace_builder.cc.
// The C++ original caches children behind a ThreadMap<weak_ptr<Node>>
// so that an abandoned subtree can be garbage collected while live
// references keep a node's ancestors alive; Go has no public weak
// pointer, so this port uses a plain strong-reference cache instead
// (every original_source/main.cc strategy holds the whole tree for the
// trial's duration, so the only property that actually needs
// preserving -- pointer equality for the same prefix reached by two
// paths -- holds as long as the root itself is reachable, which it
// always is while a Builder is in scope).
package trace

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/history"
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

// Node is one point in the explored prefix tree: the state immediately
// after a sequence of thread choices.
type Node struct {
	parent     *Node
	lastThread int // meaningless for the root

	runnable        threadset.Set
	nextTransitions threadset.Map[transition.Transition]

	children threadset.Map[*Node]
}

// Parent returns n's parent, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// LastThread returns the thread choice that produced n from its
// parent. Must not be called on the root.
func (n *Node) LastThread() int {
	if n.parent == nil {
		panic("trace: LastThread called on the root node")
	}
	return n.lastThread
}

// Runnable returns the set of threads runnable at n.
func (n *Node) Runnable() threadset.Set {
	return n.runnable
}

// NextTransitions returns the pending transition for each runnable
// thread at n.
func (n *Node) NextTransitions() threadset.Map[transition.Transition] {
	return n.nextTransitions
}

// IsLeaf reports whether n has no pending transitions -- the run ended
// (normally, on a violation, or in deadlock) at this point.
func (n *Node) IsLeaf() bool {
	return n.nextTransitions.Size() == 0
}

// Path reconstructs the sequence of thread choices from the root to n,
// matching original_source/trace_builder.cc's TraceNode::CalculatePath.
func (n *Node) Path() []int {
	var reversed []int
	for cur := n; cur.parent != nil; cur = cur.parent {
		reversed = append(reversed, cur.lastThread)
	}
	path := make([]int, len(reversed))
	for i, t := range reversed {
		path[len(reversed)-1-i] = t
	}
	return path
}

// Builder drives an Interceptor through the tree, replaying whatever
// prefix is needed to reach a requested node and caching every node it
// visits so re-visiting it later is free.
type Builder struct {
	interceptor *interceptor.Interceptor
	history     *history.History

	root    *Node
	current *Node
}

// New constructs a Builder, performs the first run against ic using h
// as the ordering history, and builds the root node from whatever the
// interceptor reports as runnable at the start of that run.
func New(ic *interceptor.Interceptor, h *history.History) *Builder {
	b := &Builder{interceptor: ic, history: h}

	b.interceptor.StartNewRun(b.history)
	b.root = &Node{}
	b.current = b.root
	b.fillFromInterceptor(b.current)

	return b
}

// Root returns the tree's root node.
func (b *Builder) Root() *Node {
	return b.root
}

// Current returns the node the builder is presently positioned at.
func (b *Builder) Current() *Node {
	return b.current
}

// MoveTo repositions the builder at node, replaying from the root (a
// fresh StartNewRun) only if node is not a descendant of the current
// position; otherwise it replays just the missing suffix, matching
// trace_builder.cc's MoveTo.
func (b *Builder) MoveTo(node *Node) {
	var path []int

	base := node
	for base != b.current && base.parent != nil {
		path = append(path, base.lastThread)
		base = base.parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	if base != b.current {
		b.interceptor.StartNewRun(b.history)
	}

	for _, thread := range path {
		b.interceptor.AdvanceThread(thread)
	}

	b.current = node
}

// Extend advances thread once from the current node and returns the
// resulting child, creating and caching it on first visit.
func (b *Builder) Extend(thread int) *Node {
	b.interceptor.AdvanceThread(thread)

	if child, ok := b.current.children.Get(thread); ok {
		b.current = child
	} else {
		child := &Node{parent: b.current, lastThread: thread}
		b.current.children.Set(thread, child)
		b.current = child
		b.fillFromInterceptor(b.current)
	}

	return b.current
}

func (b *Builder) fillFromInterceptor(n *Node) {
	n.nextTransitions = b.interceptor.NextTransitions()
	n.runnable = b.interceptor.Runnable()
}
