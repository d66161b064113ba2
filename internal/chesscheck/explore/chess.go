package explore

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/history"
	"github.com/kolkov/chesscheck/internal/chesscheck/stats"
	"github.com/kolkov/chesscheck/internal/chesscheck/trace"
)

var chessRounds = stats.RegisterInt64(stats.Default, "chess-rounds", 0, false)

// CHESS is preemption-bounded exploration without sleep sets: every
// runnable thread at a node is tried (subject to the preemption
// budget), with two optional prunings ported from main.cc's
// CHESSExplore/RunCHESS:
//
//   - PruneUsingHashTable: skip a subtree already visited with an
//     equal or larger remaining preemption budget, tracked by
//     CombineCurrentHashesWithLast.
//   - OnlyPreemptOnAtomic: never preempt away from the thread that
//     just ran when the transition it just executed was atomic.
type CHESS struct {
	ctx *Context

	PruneUsingHashTable bool
	OnlyPreemptOnAtomic bool

	seen map[history.Hash]int
}

// NewCHESS returns a CHESS strategy over ctx with both optional
// prunings disabled, matching the original's default globals.
func NewCHESS(ctx *Context) *CHESS {
	return &CHESS{ctx: ctx, seen: make(map[history.Hash]int)}
}

// RunOnce explores the tree once with at most preemptions preemptions
// allowed along any single path, then logs statistics.
func (c *CHESS) RunOnce(preemptions int) {
	chessRounds.Inc()
	c.explore(c.ctx.Trace.Root(), preemptions)
	logger.Info().Int("preemptions", preemptions).Str("stats", stats.Default.Dump()).Msg("chess round complete")
}

func (c *CHESS) explore(node *trace.Node, remaining int) {
	if node.IsLeaf() {
		return
	}

	if c.PruneUsingHashTable {
		h := c.ctx.History.CombineCurrentHashesWithLast()
		if prior, ok := c.seen[h]; ok {
			if prior >= remaining {
				return
			}
		}
		c.seen[h] = remaining
	}

	node.Runnable().Each(func(thread int) {
		preempts := isPreemption(node, thread)
		if preempts && remaining == 0 {
			return
		}

		if c.OnlyPreemptOnAtomic && preempts {
			c.ctx.Trace.MoveTo(node)
			h := c.ctx.History
			if h.TransitionAt(h.Length() - 1).IsAtomic {
				return
			}
		}

		c.ctx.Trace.MoveTo(node)
		nextRemaining := remaining
		if preempts {
			nextRemaining--
		}
		c.explore(c.ctx.Trace.Extend(thread), nextRemaining)
	})
}
