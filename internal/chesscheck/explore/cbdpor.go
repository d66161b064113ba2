package explore

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/stats"
	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
	"github.com/kolkov/chesscheck/internal/chesscheck/trace"
)

var (
	cbdporLeaves   = stats.RegisterInt64(stats.Default, "cbdpor-leaves", 0, false)
	cbdporDeadends = stats.RegisterInt64(stats.Default, "cbdpor-deadends", 0, false)
)

// CBDPOR is context-bounded DPOR: like PBPOR it bounds preemptions per
// path, but it starts each node's backtrack set as the full available
// set rather than a singleton, and a conflict opens the full available
// set at the conflicting time rather than just the one thread. Ported
// from main.cc's CBDPORExplore/RunCBDPOR.
type CBDPOR struct {
	ctx *Context

	available []threadset.Set
	backtrack []threadset.Set
	begins    []int
}

// NewCBDPOR returns a CBDPOR strategy over ctx.
func NewCBDPOR(ctx *Context) *CBDPOR {
	return &CBDPOR{ctx: ctx}
}

// RunOnce explores the tree once with at most preemptions preemptions
// allowed along any single path, then logs statistics.
func (c *CBDPOR) RunOnce(preemptions int) {
	c.explore(c.ctx.Trace.Root(), threadset.Set{}, preemptions)
	logger.Info().Int("preemptions", preemptions).Str("stats", stats.Default.Dump()).Msg("cbdpor round complete")
}

func (c *CBDPOR) explore(node *trace.Node, sleepSet threadset.Set, remaining int) {
	if node.IsLeaf() {
		cbdporLeaves.Inc()
		return
	}

	avail := node.Runnable().Minus(sleepSet)
	if avail.Empty() {
		cbdporDeadends.Inc()
		return
	}
	c.available = append(c.available, avail)
	depth := len(c.available) - 1

	back := avail
	c.backtrack = append(c.backtrack, back)

	var done threadset.Set
	for {
		todo := c.backtrack[depth].Minus(done)
		thread, ok := todo.First()
		if !ok {
			break
		}

		tr, _ := node.NextTransitions().Get(thread)

		preempts := isPreemption(node, thread)
		if preempts && remaining == 0 {
			done = done.Insert(thread)
			continue
		}

		c.ctx.Trace.MoveTo(node)
		for _, t := range c.ctx.History.FindFirstConflicts(thread, tr) {
			if tr.DetermineRunnable(c.ctx.History.PreviousValueAt(t)) {
				c.backtrack[t] = c.available[t]
			}
		}

		newSleepSet := sleepSet.Minus(FindConflicts(node.NextTransitions(), tr))

		if node.Parent() == nil || node.LastThread() != thread {
			c.begins = append(c.begins, c.ctx.History.Length())
		} else {
			c.begins = append(c.begins, c.begins[len(c.begins)-1])
		}

		nextRemaining := remaining
		if preempts {
			nextRemaining--
		}
		c.explore(c.ctx.Trace.Extend(thread), newSleepSet, nextRemaining)

		c.begins = c.begins[:len(c.begins)-1]

		if preempts {
			sleepSet = sleepSet.Insert(thread)
		}
		done = done.Insert(thread)
	}

	c.available = c.available[:depth]
	c.backtrack = c.backtrack[:depth]
}
