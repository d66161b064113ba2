package explore

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/stats"
	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
	"github.com/kolkov/chesscheck/internal/chesscheck/trace"
)

var (
	dporLeaves   = stats.RegisterInt64(stats.Default, "dpor-leaves", 0, false)
	dporDeadends = stats.RegisterInt64(stats.Default, "dpor-deadends", 0, false)
)

// DPOR is classical dynamic partial-order reduction with sleep sets,
// ported from main.cc's DPORExplore/RunDPOR: for every node, only the
// threads backtrack-marked for that node are explored, with new
// backtrack points added whenever a considered transition is found to
// conflict with an earlier one that was not already ordered against it.
type DPOR struct {
	ctx *Context

	available []threadset.Set
	backtrack []threadset.Set
}

// NewDPOR returns a DPOR strategy over ctx.
func NewDPOR(ctx *Context) *DPOR {
	return &DPOR{ctx: ctx}
}

// Run explores the tree once under DPOR's reduction and logs the
// accumulated statistics.
func (d *DPOR) Run() {
	d.explore(d.ctx.Trace.Root(), threadset.Set{})
	logger.Info().Str("stats", stats.Default.Dump()).Msg("dpor run complete")
}

func (d *DPOR) explore(node *trace.Node, sleepSet threadset.Set) {
	if node.IsLeaf() {
		dporLeaves.Inc()
		return
	}

	avail := node.Runnable().Minus(sleepSet)
	if avail.Empty() {
		dporDeadends.Inc()
		return
	}
	d.available = append(d.available, avail)
	depth := len(d.available) - 1

	var back threadset.Set
	if node.Parent() != nil && avail.Contains(node.LastThread()) {
		back = back.Insert(node.LastThread())
	} else {
		first, _ := avail.First()
		back = back.Insert(first)
	}
	d.backtrack = append(d.backtrack, back)

	var done threadset.Set
	for {
		todo := d.backtrack[depth].Minus(done)
		thread, ok := todo.First()
		if !ok {
			break
		}

		tr, _ := node.NextTransitions().Get(thread)

		d.ctx.Trace.MoveTo(node)
		for _, t := range d.ctx.History.FindFirstConflicts(thread, tr) {
			if !tr.DetermineRunnable(d.ctx.History.PreviousValueAt(t)) {
				continue
			}
			if d.available[t].Contains(thread) {
				d.backtrack[t] = d.backtrack[t].Insert(thread)
			} else {
				d.backtrack[t] = d.backtrack[t].Union(d.available[t])
			}
		}

		newSleepSet := sleepSet.Minus(FindConflicts(node.NextTransitions(), tr))

		d.explore(d.ctx.Trace.Extend(thread), newSleepSet)

		sleepSet = sleepSet.Insert(thread)
		done = done.Insert(thread)
	}

	d.available = d.available[:depth]
	d.backtrack = d.backtrack[:depth]
}
