package explore

import "github.com/kolkov/chesscheck/internal/chesscheck/trace"

// BruteForce exhaustively explores every interleaving reachable from
// the trace tree's root, with no reduction at all. Ported from
// main.cc's BruteForceExplore/RunBruteForce; useful as a correctness
// baseline against the reduced strategies and for programs small
// enough that full enumeration finishes.
type BruteForce struct {
	ctx *Context
}

// NewBruteForce returns a BruteForce strategy over ctx.
func NewBruteForce(ctx *Context) *BruteForce {
	return &BruteForce{ctx: ctx}
}

// Run explores the entire tree once.
func (b *BruteForce) Run() {
	b.explore(b.ctx.Trace.Root())
}

func (b *BruteForce) explore(node *trace.Node) {
	if node.IsLeaf() {
		b.ctx.Trace.MoveTo(node)
		return
	}

	node.Runnable().Each(func(thread int) {
		b.ctx.Trace.MoveTo(node)
		b.explore(b.ctx.Trace.Extend(thread))
	})
}
