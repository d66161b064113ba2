// Package explore implements the exploration strategies that drive a
// trace.Builder over a program's interleavings: brute force, DPOR,
// CBDPOR, PBPOR, CHESS, PCT, and Pinner (the last in its own file,
// pinner.go, given its materially different state shape).
//
// Every strategy is ported from the corresponding function in
// original_source/main.cc (Pinner from pinner.h/cc), kept as a
// recursive depth-first walk over the trace tree the way the
// original is, with the per-depth available/backtrack/begins stacks
// threaded as explicit Go slices rather than C++ file-scope globals.
package explore

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/history"
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/internal/chesscheck/log"
	"github.com/kolkov/chesscheck/internal/chesscheck/program"
	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
	"github.com/kolkov/chesscheck/internal/chesscheck/trace"
	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

var logger = log.For("explore")

// Context bundles the three collaborators every strategy needs: the
// interceptor driving the program, the trace builder navigating the
// prefix tree built on top of it, and the history recording
// happens-before information for that same run.
type Context struct {
	Interceptor *interceptor.Interceptor
	Trace       *trace.Builder
	History     *history.History
}

// NewContext wires a fresh Interceptor, History, and trace.Builder
// together, ready for a strategy's Run* entry point. buildSetupRun
// receives the freshly constructed Interceptor so the scenario it
// returns can close over it and call StartThread for each logical
// thread on every run, exactly as original_source/interface.cc's
// scenario functions do when invoked as setup_run_. finishRun may be
// nil.
func NewContext(buildSetupRun func(ic *interceptor.Interceptor) func(), finishRun func()) *Context {
	h := history.New()
	ic := interceptor.New(nil, finishRun)
	program.Bind(ic)
	ic.SetSetupRun(buildSetupRun(ic))
	return &Context{
		Interceptor: ic,
		Trace:       trace.New(ic, h),
		History:     h,
	}
}

// FindConflicts returns every thread in transitions whose pending
// transition conflicts with tr, ported from main.cc's FindConflicts.
func FindConflicts(transitions threadset.Map[transition.Transition], tr transition.Transition) threadset.Set {
	var conflicts threadset.Set
	transitions.Keys().Each(func(thread int) {
		pending, _ := transitions.Get(thread)
		if pending.ConflictsWith(tr) {
			conflicts = conflicts.Insert(thread)
		}
	})
	return conflicts
}

// isPreemption reports whether choosing thread at node would preempt
// the thread that just ran -- the shared is_a_preemption test used by
// PBPOR, CBDPOR, and CHESS.
func isPreemption(node *trace.Node, thread int) bool {
	return node.Parent() != nil &&
		thread != node.LastThread() &&
		node.Runnable().Contains(node.LastThread())
}
