package explore

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/stats"
	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
	"github.com/kolkov/chesscheck/internal/chesscheck/trace"
)

var (
	pborLeaves   = stats.RegisterInt64(stats.Default, "bpor-leaves", 0, false)
	pborDeadends = stats.RegisterInt64(stats.Default, "bpor-deadends", 0, false)
)

// PBPOR is preemption-bounded DPOR: backtrack points opened by a
// conflict are propagated not just to the conflicting step itself but
// to the start of that step's preemption-free run (begins[time]),
// since any reordering within that run costs the same single
// preemption. Iterative deepening tries increasing preemption budgets
// until the caller stops calling RunOnce. Ported from main.cc's
// PBPORBacktrack/PBPORExplore/RunPBPOR.
type PBPOR struct {
	ctx *Context

	available []threadset.Set
	backtrack []threadset.Set
	begins    []int
}

// NewPBPOR returns a PBPOR strategy over ctx.
func NewPBPOR(ctx *Context) *PBPOR {
	return &PBPOR{ctx: ctx}
}

// RunOnce explores the tree once with at most preemptions preemptions
// allowed along any single path, then logs statistics.
func (p *PBPOR) RunOnce(preemptions int) {
	p.explore(p.ctx.Trace.Root(), threadset.Set{}, preemptions)
	logger.Info().Int("preemptions", preemptions).Str("stats", stats.Default.Dump()).Msg("pbpor round complete")
}

func (p *PBPOR) backtrackAt(time, thread int) {
	if p.available[time].Contains(thread) {
		p.backtrack[time] = p.backtrack[time].Insert(thread)
	} else {
		p.backtrack[time] = p.backtrack[time].Union(p.available[time])
	}
}

func (p *PBPOR) explore(node *trace.Node, sleepSet threadset.Set, remaining int) {
	if node.IsLeaf() {
		pborLeaves.Inc()
		return
	}

	avail := node.Runnable().Minus(sleepSet)
	if avail.Empty() {
		pborDeadends.Inc()
		return
	}
	p.available = append(p.available, avail)
	depth := len(p.available) - 1

	var back threadset.Set
	if node.Parent() != nil && avail.Contains(node.LastThread()) {
		back = back.Insert(node.LastThread())
	} else {
		first, _ := avail.First()
		back = back.Insert(first)
	}
	p.backtrack = append(p.backtrack, back)

	var done threadset.Set
	for {
		todo := p.backtrack[depth].Minus(done)
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

		p.ctx.Trace.MoveTo(node)
		for _, t := range p.ctx.History.FindFirstConflicts(thread, tr) {
			if tr.DetermineRunnable(p.ctx.History.PreviousValueAt(t)) {
				p.backtrackAt(t, thread)
				p.backtrackAt(p.begins[t], thread)
			}
		}

		newSleepSet := sleepSet.Minus(FindConflicts(node.NextTransitions(), tr))

		if node.Parent() == nil || node.LastThread() != thread {
			p.begins = append(p.begins, p.ctx.History.Length())
		} else {
			p.begins = append(p.begins, p.begins[len(p.begins)-1])
		}

		nextRemaining := remaining
		if preempts {
			nextRemaining--
		}
		p.explore(p.ctx.Trace.Extend(thread), newSleepSet, nextRemaining)

		p.begins = p.begins[:len(p.begins)-1]

		if preempts {
			sleepSet = sleepSet.Insert(thread)
		}
		done = done.Insert(thread)
	}

	p.available = p.available[:depth]
	p.backtrack = p.backtrack[:depth]
}
