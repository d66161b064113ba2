package explore

import (
	"math"
	"math/rand"

	"github.com/kolkov/chesscheck/internal/chesscheck/stats"
	"github.com/kolkov/chesscheck/internal/chesscheck/threadset"
)

var (
	pctRuns            = stats.RegisterInt64(stats.Default, "pct-runs", 0, false)
	pctMaxProgramLength = stats.RegisterInt(stats.Default, "max-program-length", -1, true)
)

// change is one scheduled priority downgrade: at history length Step,
// the currently highest-priority runnable thread is demoted to
// Priority.
type change struct {
	step     int
	priority int
}

// PCT is probabilistic concurrency testing: a random total priority
// order over threads, perturbed by a handful of randomly-timed
// priority inversions, is replayed until the highest-priority runnable
// thread always wins. Iterating enough trials gives a
// bug-independent probabilistic coverage guarantee for any bug
// reachable with few enough preemptions. Ported from main.cc's
// PCTOnce/RunPCT.
//
// The original seeds a single process-wide std::mt19937_64 with a
// fixed constant (0) for reproducibility; this port takes the same
// approach with a per-instance math/rand source seeded by NewPCT's
// caller rather than a package-level PRNG, so independent PCT
// instances in the same process (e.g. concurrent scenario runs) do not
// share mutable PRNG state.
type PCT struct {
	ctx         *Context
	rng         *rand.Rand
	numChanges  int
}

// NewPCT returns a PCT strategy over ctx with numChanges priority
// inversions per trial (the original's fixed constant of 10) and a
// PRNG seeded with seed.
func NewPCT(ctx *Context, numChanges int, seed int64) *PCT {
	return &PCT{ctx: ctx, rng: rand.New(rand.NewSource(seed)), numChanges: numChanges}
}

func highestPriorityThread(priority *threadset.Map[int], runnable threadset.Set) int {
	best, bestPriority := -1, -1
	runnable.Each(func(thread int) {
		p, _ := priority.Get(thread)
		if p > bestPriority {
			best = thread
			bestPriority = p
		}
	})
	return best
}

func (p *PCT) once(numChanges, maxProgramLength int) {
	var priority threadset.Map[int]
	for i := 0; i < threadset.MaxThreads; i++ {
		priority.Set(i, numChanges+i)
	}
	for i := 0; i < threadset.MaxThreads; i++ {
		j := p.rng.Intn(i + 1)
		vi, _ := priority.Get(i)
		vj, _ := priority.Get(j)
		priority.Set(i, vj)
		priority.Set(j, vi)
	}

	changes := make([]change, numChanges)
	for i := 0; i < numChanges; i++ {
		changes[i] = change{step: p.rng.Intn(maxProgramLength + 1), priority: i}
	}
	sortChangesByStep(changes)

	next := 0

	p.ctx.Interceptor.StartNewRun(p.ctx.History)
	for !p.ctx.Interceptor.Finished() {
		for next < len(changes) && changes[next].step == p.ctx.History.Length() {
			thread := highestPriorityThread(&priority, p.ctx.Interceptor.Runnable())
			priority.Set(thread, changes[next].priority)
			next++
		}
		thread := highestPriorityThread(&priority, p.ctx.Interceptor.Runnable())
		p.ctx.Interceptor.AdvanceThread(thread)
	}
}

func sortChangesByStep(changes []change) {
	for i := 1; i < len(changes); i++ {
		for j := i; j > 0 && changes[j].step < changes[j-1].step; j-- {
			changes[j], changes[j-1] = changes[j-1], changes[j]
		}
	}
}

// Run repeats PCTOnce until the accumulated probability of having
// found a bug, were one reachable within numChanges preemptions,
// exceeds 99%, matching main.cc's RunPCT stopping criterion.
func (p *PCT) Run() {
	p.ctx.Interceptor.StartNewRun(p.ctx.History)
	numThreads := p.ctx.Interceptor.NextTransitions().Size()

	maxProgramLength := 0
	pctMaxProgramLength.Set(0)

	for i := 1; ; i++ {
		p.once(p.numChanges, maxProgramLength)
		pctRuns.Inc()

		if l := p.ctx.History.Length(); l > maxProgramLength {
			maxProgramLength = l
			pctMaxProgramLength.Set(maxProgramLength)
		}

		prob := 1.0 / float64(numThreads) / math.Pow(float64(maxProgramLength), float64(p.numChanges))

		var requiredRuns float64
		if prob < 1e-10 {
			requiredRuns = 1e10
		} else {
			requiredRuns = math.Log(0.01) / math.Log(1-prob)
		}

		if float64(i) > requiredRuns {
			break
		}

		if i%1000 == 0 {
			logger.Info().Str("stats", stats.Default.Dump()).Msg("pct progress")
		}
	}
	logger.Info().Str("stats", stats.Default.Dump()).Msg("pct run complete")
}
