package scenarios

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/internal/chesscheck/linearizability"
	"github.com/kolkov/chesscheck/program"
)

// LinearizabilityStep describes one scripted operation a worker thread
// performs against the Queue a LinearizabilityHarness builds.
type LinearizabilityStep struct {
	Thread  int
	Enqueue bool
	Value   int64
	Name    string
}

// LinearizabilityHarness builds scenario 6: a generic N-worker-thread
// script of enqueue/dequeue steps against a shared Queue, checked for
// linearizability against a slice model -- the same mechanism
// ProducerConsumer uses, generalized to an arbitrary thread count,
// queue capacity, and step script so other scenarios can be expressed
// as a call to this one instead of duplicating the model/toggle
// plumbing.
func LinearizabilityHarness(numThreads, capacity int, steps []LinearizabilityStep) (func(ic *interceptor.Interceptor) func(), func()) {
	q := NewQueue(capacity)
	var model []int64
	useModel := false

	l := linearizability.New(numThreads)
	l.RegisterImplementation(func() { q.Reset() }, func() {})
	l.RegisterModel(
		func() { useModel, model = true, model[:0] },
		func() { useModel = false },
	)

	for _, st := range steps {
		st := st
		if st.Enqueue {
			l.AddStep(st.Thread, func() int {
				if useModel {
					model = append(model, st.Value)
					return 0
				}
				return int(q.Enqueue(st.Value))
			}, st.Name)
		} else {
			l.AddStep(st.Thread, func() int {
				if useModel {
					if len(model) == 0 {
						return -1
					}
					v := model[0]
					model = model[1:]
					return int(v)
				}
				return int(q.Dequeue())
			}, st.Name)
		}
	}

	buildSetupRun := func(ic *interceptor.Interceptor) func() {
		return func() {
			l.Setup()
			for i := 0; i < numThreads; i++ {
				i := i
				program.StartThread(func() { l.ThreadBody(i) })
			}
		}
	}

	return buildSetupRun, l.Finish
}

// LinearizabilityDefault mirrors
// original_source/tests/test-linearizability.cc's 2-thread, 5-step
// script against a capacity-4 queue: thread 0 enqueues 1 then
// dequeues; thread 1 enqueues 2, dequeues, then enqueues 3.
func LinearizabilityDefault() (func(ic *interceptor.Interceptor) func(), func()) {
	return LinearizabilityHarness(2, 4, []LinearizabilityStep{
		{Thread: 0, Enqueue: true, Value: 1, Name: "enqueue 1"},
		{Thread: 0, Enqueue: false, Name: "dequeue?"},
		{Thread: 1, Enqueue: true, Value: 2, Name: "enqueue 2"},
		{Thread: 1, Enqueue: false, Name: "dequeue?"},
		{Thread: 1, Enqueue: true, Value: 3, Name: "enqueue 3"},
	})
}
