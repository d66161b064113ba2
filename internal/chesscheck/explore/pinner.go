package explore

import (
	"sort"

	"github.com/kolkov/chesscheck/internal/chesscheck/clockvector"
	"github.com/kolkov/chesscheck/internal/chesscheck/history"
	"github.com/kolkov/chesscheck/internal/chesscheck/stats"
	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
)

var pinnerStates = stats.RegisterInt64(stats.Default, "pinner-states", 0, false)

// PinnerState is one node of the Pinner strategy's own search space, a
// replay of the program up to and including one additional "pinned"
// choice: a transition, plus a clock vector fragment (Choice.C)
// describing which other steps must be ordered before it.
//
// Ported from pinner.h's PinnerState. The original notes the strategy
// itself is broken (pinner.cc's "NOTE: pinner is broken" comment); it
// is ported faithfully regardless, including that caveat, since
// spec.md names it as a required strategy and the bug (if any) is in
// the algorithm's approach to cost accounting, not in any one line
// this port could silently fix without second-guessing the original
// author's intent.
type PinnerState struct {
	history *history.History

	firstSeen      []int
	lastConsidered []int
	fixed          []bool
	isAPin         []bool

	lastPin    threadset.Map[int]
	cost       int
	threadCost threadset.Map[int]
	depth      int
}

// Choice is one candidate pin: replay up to time time, then fix
// everything c identifies as required to happen first.
type Choice struct {
	Time int
	C    *clockvector.ClockVector
}

// Pinner explores the space of "what if this step had been forced to
// wait for that one" reorderings, each scored by an estimated
// replay cost, via iterative deepening over a cost budget. Ported from
// pinner.h/pinner.cc.
type Pinner struct {
	ctx *Context

	statePool []*PinnerState

	costHistogram map[[threadset.MaxThreads]int]int
}

// NewPinner returns a Pinner strategy over ctx.
func NewPinner(ctx *Context) *Pinner {
	return &Pinner{ctx: ctx, costHistogram: make(map[[threadset.MaxThreads]int]int)}
}

func (p *Pinner) getUnusedState() *PinnerState {
	if len(p.statePool) == 0 {
		return &PinnerState{history: history.New()}
	}
	s := p.statePool[len(p.statePool)-1]
	p.statePool = p.statePool[:len(p.statePool)-1]
	return s
}

func (p *Pinner) returnUnusedState(s *PinnerState) {
	p.statePool = append(p.statePool, s)
}

func prepareStateForNewRun(s *PinnerState) {
	s.firstSeen = s.firstSeen[:0]
	s.lastConsidered = s.lastConsidered[:0]
	s.fixed = s.fixed[:0]
	s.isAPin = s.isAPin[:0]
	s.lastPin.Clear()
	s.cost = 0
	s.threadCost.Clear()
}

func push(s *PinnerState, firstSeen, lastConsidered int, fixed, isAPin bool) {
	s.firstSeen = append(s.firstSeen, firstSeen)
	s.lastConsidered = append(s.lastConsidered, lastConsidered)
	s.fixed = append(s.fixed, fixed)
	s.isAPin = append(s.isAPin, isAPin)

	if !isAPin {
		return
	}

	time := s.history.Length() - 1
	thread := s.history.ThreadAt(time)

	last, ok := s.lastPin.Get(thread)
	if !ok || s.history.IsSplit(last, time) {
		s.cost++
		tc, _ := s.threadCost.Get(thread)
		s.threadCost.Set(thread, tc+1)
		s.lastPin.Set(thread, time)
	}
}

// createInitialState replays the program once, with every step free
// (no pins), as the root of the Pinner search space.
func (p *Pinner) createInitialState(s *PinnerState) {
	s.depth = 0
	prepareStateForNewRun(s)
	p.ctx.Interceptor.StartNewRun(s.history)

	thread, _ := p.ctx.Interceptor.Runnable().First()
	for !p.ctx.Interceptor.Finished() {
		if !p.ctx.Interceptor.Runnable().Contains(thread) {
			thread, _ = p.ctx.Interceptor.Runnable().First()
		}
		p.ctx.Interceptor.AdvanceThread(thread)
		push(s, s.depth, -1, false, false)
	}
}

// pin replays old up to choice's clock-vector fragment, then forces
// choice's thread to run next (fixing everything that must now precede
// it), and finally replays the remainder freely.
func (p *Pinner) pin(s *PinnerState, choice Choice, old *PinnerState) {
	pinnedThread := old.history.ThreadAt(choice.Time)

	s.depth = old.depth + 1
	prepareStateForNewRun(s)
	p.ctx.Interceptor.StartNewRun(s.history)

	var specialLastConsidered threadset.Map[int]

	for t := 0; t < old.history.Length(); t++ {
		thread := old.history.ThreadAt(t)

		if !old.history.CVAt(t).HappensAfterAny(choice.C) {
			p.ctx.Interceptor.AdvanceThread(thread)

			if t < choice.Time {
				push(s, old.firstSeen[t], old.depth, old.fixed[t], old.isAPin[t])
			} else {
				push(s, old.firstSeen[t], old.lastConsidered[t], old.fixed[t], old.isAPin[t])
			}
		} else if !specialLastConsidered.Count(thread) {
			specialLastConsidered.Set(thread, old.lastConsidered[t])
		}
	}

	pinPoint := s.history.Length()
	p.ctx.Interceptor.AdvanceThread(pinnedThread)
	lastConsidered, _ := specialLastConsidered.Get(pinnedThread)
	push(s, s.depth, lastConsidered, true, true)
	specialLastConsidered.Erase(pinnedThread)
	for i := 0; i < pinPoint; i++ {
		if s.history.TimeHappensBeforeTime(i, pinPoint) {
			s.fixed[i] = true
		}
	}

	thread := pinnedThread
	for !p.ctx.Interceptor.Finished() {
		if !p.ctx.Interceptor.Runnable().Contains(thread) {
			thread, _ = p.ctx.Interceptor.Runnable().First()
		}
		p.ctx.Interceptor.AdvanceThread(thread)

		if specialLastConsidered.Count(thread) {
			lc, _ := specialLastConsidered.Get(thread)
			push(s, s.depth, lc, false, false)
			specialLastConsidered.Erase(thread)
		} else {
			push(s, s.depth, -1, false, false)
		}
	}
}

// considerPin recursively distributes the conflicting steps of a
// candidate pin point into a "replay as-is" prefix (b) or a
// "additionally fix this one thread's step" set (c), producing every
// valid clock-vector fragment in cs. conflicts is walked from its last
// element toward its first (i counts down to -1), matching the
// original's reverse_iterator traversal.
func (p *Pinner) considerPin(
	s *PinnerState,
	conflicts []int,
	i int,
	b *clockvector.ClockVector,
	bNonempty bool,
	c *clockvector.ClockVector,
	cNonempty bool,
	value int64,
	pinTime int,
	maxCost int,
	cs *[]*clockvector.ClockVector,
) {
	hasMore := i >= 0

	indexFirstSeen := 0
	if hasMore {
		indexFirstSeen = s.firstSeen[conflicts[i]]
	}
	if !bNonempty && indexFirstSeen <= s.lastConsidered[pinTime] {
		return
	}

	canPutInB := bNonempty || s.history.TransitionAt(pinTime).DetermineRunnable(value)

	if hasMore && s.cost == maxCost {
		pinThread := s.history.ThreadAt(pinTime)
		if previousPin, ok := s.lastPin.Get(pinThread); ok {
			if s.history.CVAt(conflicts[i]).Get(pinThread) >= int32(previousPin) {
				canPutInB = false
			}
		} else {
			canPutInB = false
		}
	}

	if !hasMore {
		if canPutInB && cNonempty {
			*cs = append(*cs, c.Clone())
		}
		return
	}

	t := conflicts[i]
	nextIndex := i - 1

	if canPutInB {
		newB := b.Clone()
		newB.Maximize(s.history.CVAt(t))
		p.considerPin(s, conflicts, nextIndex, newB, true, c, cNonempty,
			s.history.PreviousValueAt(t), pinTime, maxCost, cs)
	}

	indexThread := s.history.ThreadAt(t)
	canPutInC := b.Get(indexThread) < int32(t) && !s.fixed[t]
	if canPutInC {
		oldValue := c.Get(indexThread)
		c.Set(indexThread, int32(t))
		p.considerPin(s, conflicts, nextIndex, b, bNonempty, c, true,
			s.history.PreviousValueAt(t), pinTime, maxCost, cs)
		c.Set(indexThread, oldValue)
	}
}

// generateChoices returns every valid pin reachable from s within
// maxCost.
func (p *Pinner) generateChoices(s *PinnerState, maxCost int) []Choice {
	var choices []Choice

	for t := 0; t < s.history.Length(); t++ {
		if s.fixed[t] {
			continue
		}
		thread := s.history.ThreadAt(t)

		var alreadyNonfree bool
		if last, ok := s.lastPin.Get(thread); !ok {
			alreadyNonfree = true
		} else {
			alreadyNonfree = s.history.IsSplit(last, s.history.PreviousTimeOfThreadAt(t))
		}
		if alreadyNonfree && s.cost == maxCost {
			continue
		}

		conflicts := s.history.FirstConflictsAt(t)
		var cs []*clockvector.ClockVector
		helperC := clockvector.NewWithDefault(999)
		p.considerPin(s, conflicts, len(conflicts)-1, clockvector.New(), false,
			helperC, false, s.history.PreviousValueAt(t), t, maxCost, &cs)

		for _, c := range cs {
			choices = append(choices, Choice{Time: t, C: c})
		}
	}

	return choices
}

// Explore recursively applies every valid pin reachable from s within
// maxCost, in depth-first order, deepest-considered choice first.
func (p *Pinner) Explore(s *PinnerState, maxCost int) {
	pinnerStates.Inc()

	var histogram [threadset.MaxThreads]int
	for t := 0; t < threadset.MaxThreads; t++ {
		histogram[t], _ = s.threadCost.Get(t)
	}
	sort.Ints(histogram[:])
	p.costHistogram[histogram]++

	if s.cost > maxCost {
		return
	}

	choices := p.generateChoices(s, maxCost)
	for i := len(choices) - 1; i >= 0; i-- {
		newState := p.getUnusedState()
		p.pin(newState, choices[i], s)
		p.Explore(newState, maxCost)
		p.returnUnusedState(newState)
	}
}

// RunOnce explores the full Pinner search space once for a given cost
// budget and logs the resulting cost histogram -- the body of
// main.cc's RunPinner loop, with the iterative deepening over cost
// left to the caller so a library user can stop after any round.
func (p *Pinner) RunOnce(maxCost int) {
	root := p.getUnusedState()
	p.createInitialState(root)
	p.costHistogram = make(map[[threadset.MaxThreads]int]int)

	p.Explore(root, maxCost)

	totalNotExceedingCost := 0
	for histogram, count := range p.costHistogram {
		actual := 0
		for _, v := range histogram {
			actual += v
		}
		if actual <= maxCost {
			totalNotExceedingCost += count
		}
	}

	p.returnUnusedState(root)
	logger.Info().
		Int("max_cost", maxCost).
		Int("total_not_exceeding_cost", totalNotExceedingCost).
		Str("stats", stats.Default.Dump()).
		Msg("pinner round complete")
}
