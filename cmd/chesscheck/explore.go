package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/kolkov/chesscheck/internal/chesscheck/explore"
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/internal/chesscheck/scenarios"
	"github.com/kolkov/chesscheck/internal/chesscheck/stats"
)

// scenarioEntry is one built-in checked program: buildSetupRun and
// finishRun are the same pair internal/chesscheck/scenarios functions
// return, ready for explore.NewContext.
type scenarioEntry struct {
	build func() (func(ic *interceptor.Interceptor) func(), func())
}

var builtinScenarios = map[string]scenarioEntry{
	"producer-consumer": {scenarios.ProducerConsumer},
	"dekker":            {scenarios.Dekker},
	"cas-chain":         {scenarios.CASChain},
	"simple1":           {scenarios.Simple1},
	"indexer":           {scenarios.Indexer},
	"linearizability":   {scenarios.LinearizabilityDefault},
}

func newExploreCommand() *cobra.Command {
	var (
		strategy       string
		maxPreemptions int
		maxCost        int
		numChanges     int
		seed           int64
		parallelSeeds  int
	)

	cmd := &cobra.Command{
		Use:   "explore <scenario>",
		Short: "Explore a checked program's interleavings under a strategy",
		Long: `explore runs one of the built-in scenarios under the chosen
exploration strategy until it finds an interleaving that violates the
scenario's property, or exhausts the strategy's search budget.

Built-in scenarios: ` + scenarioNames(),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, ok := builtinScenarios[args[0]]
			if !ok {
				return fmt.Errorf("unknown scenario %q (available: %s)", args[0], scenarioNames())
			}

			if strategy == "pct" && parallelSeeds > 1 {
				return runParallelPCT(entry, parallelSeeds, numChanges, seed)
			}

			buildSetupRun, finishRun := entry.build()
			ctx := explore.NewContext(buildSetupRun, finishRun)

			if err := runStrategy(ctx, strategy, maxPreemptions, maxCost, numChanges, seed); err != nil {
				return err
			}

			reportResult(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "dpor",
		"bruteforce|dpor|cbdpor|pbpor|chess|pct|pinner")
	cmd.Flags().IntVar(&maxPreemptions, "max-preemptions", 2,
		"iterative-deepening bound for cbdpor/pbpor/chess")
	cmd.Flags().IntVar(&maxCost, "max-cost", 4, "iterative-deepening bound for pinner")
	cmd.Flags().IntVar(&numChanges, "num-changes", 10, "priority inversions per pct trial")
	cmd.Flags().Int64Var(&seed, "seed", 0, "pct PRNG seed (base, when --parallel-seeds > 1)")
	cmd.Flags().IntVar(&parallelSeeds, "parallel-seeds", 1,
		"pct only: scan this many consecutive seeds (one trial at a time), report the first violation")

	return cmd
}

// runParallelPCT scans seed, seed+1, ..., seed+n-1 as independent PCT
// trials across goroutines via explore.ParallelRunner, which admits up
// to 4 at once but runs their explorations one at a time under
// program.Lock -- useful because a single PCT trial is a
// probabilistic sample of the schedule space, so scanning several
// seeds finds a violation faster than repeatedly bumping one trial's
// stopping-probability threshold.
func runParallelPCT(entry scenarioEntry, n, numChanges int, seed int64) error {
	trials := make([]func() *explore.Context, n)
	for i := 0; i < n; i++ {
		i := i
		trials[i] = func() *explore.Context {
			buildSetupRun, finishRun := entry.build()
			ctx := explore.NewContext(buildSetupRun, finishRun)
			explore.NewPCT(ctx, numChanges, seed+int64(i)).Run()
			return ctx
		}
	}

	results := explore.NewParallelRunner(4).Run(context.Background(), trials)

	found := false
	for _, r := range results {
		if r.Violation == interceptor.ViolationFoundBug || r.Violation == interceptor.ViolationDeadlock {
			fmt.Println(color.Red.Sprintf("trial %d (seed %d) found a violation", r.Index, seed+int64(r.Index)))
			fmt.Println(r.History)
			found = true
			break
		}
	}
	if !found {
		fmt.Println(color.Green.Sprint("no violation found across all seeds"))
	}
	fmt.Println(stats.Default.Dump())
	return nil
}

func scenarioNames() string {
	names := make([]string, 0, len(builtinScenarios))
	for name := range builtinScenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// runStrategy dispatches to the requested strategy. The preemption- and
// cost-bounded strategies (cbdpor, pbpor, chess, pinner) are driven
// here with the iterative-deepening loop original_source/main.cc's own
// main() performs: increasing rounds until a violation is found or
// maxPreemptions/maxCost is reached, since each strategy's RunOnce only
// covers a single bound.
func runStrategy(ctx *explore.Context, strategy string, maxPreemptions, maxCost, numChanges int, seed int64) error {
	switch strategy {
	case "bruteforce":
		explore.NewBruteForce(ctx).Run()
	case "dpor":
		explore.NewDPOR(ctx).Run()
	case "cbdpor":
		s := explore.NewCBDPOR(ctx)
		for p := 0; p <= maxPreemptions; p++ {
			s.RunOnce(p)
			if ctx.Interceptor.Violation() != interceptor.NoViolation {
				break
			}
		}
	case "pbpor":
		s := explore.NewPBPOR(ctx)
		for p := 0; p <= maxPreemptions; p++ {
			s.RunOnce(p)
			if ctx.Interceptor.Violation() != interceptor.NoViolation {
				break
			}
		}
	case "chess":
		s := explore.NewCHESS(ctx)
		for p := 0; p <= maxPreemptions; p++ {
			s.RunOnce(p)
			if ctx.Interceptor.Violation() != interceptor.NoViolation {
				break
			}
		}
	case "pct":
		explore.NewPCT(ctx, numChanges, seed).Run()
	case "pinner":
		s := explore.NewPinner(ctx)
		for c := 0; c <= maxCost; c++ {
			s.RunOnce(c)
			if ctx.Interceptor.Violation() != interceptor.NoViolation {
				break
			}
		}
	default:
		return fmt.Errorf("unknown strategy %q", strategy)
	}
	return nil
}

func reportResult(ctx *explore.Context) {
	switch ctx.Interceptor.Violation() {
	case interceptor.ViolationFoundBug:
		fmt.Println(color.Red.Sprint("violation found"))
		fmt.Println(ctx.History.Dump())
	case interceptor.ViolationDeadlock:
		fmt.Println(color.Red.Sprint("deadlock"))
		fmt.Println(ctx.History.Dump())
	default:
		fmt.Println(color.Green.Sprint("no violation found"))
	}
	fmt.Println(stats.Default.Dump())
}
