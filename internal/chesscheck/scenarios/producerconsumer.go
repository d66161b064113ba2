package scenarios

import (
	"github.com/kolkov/chesscheck/internal/chesscheck/interceptor"
	"github.com/kolkov/chesscheck/internal/chesscheck/linearizability"
	"github.com/kolkov/chesscheck/program"
)

// ProducerConsumer builds scenario 1: 5 threads sharing a capacity-2
// Queue, checked for linearizability against a plain slice model.
// Thread 0 enqueues 60977, thread 1 dequeues, thread 2 enqueues 21877,
// thread 3 enqueues 34022, thread 4 dequeues -- the exact step shape of
// original_source/cases/boost_fifo_bug2_5x1.cc. The capacity is
// deliberately smaller than the 3 outstanding enqueues so a DPOR search
// can reach an interleaving where a slow enqueue's claimed slot is
// revisited before it publishes, producing a result no sequential
// queue could have returned.
func ProducerConsumer() (func(ic *interceptor.Interceptor) func(), func()) {
	q := NewQueue(2)
	var model []int64
	useModel := false

	l := linearizability.New(5)
	l.RegisterImplementation(func() { q.Reset() }, func() {})
	l.RegisterModel(
		func() { useModel, model = true, model[:0] },
		func() { useModel = false },
	)

	enqueueStep := func(value int64) func() int {
		return func() int {
			if useModel {
				model = append(model, value)
				return 0
			}
			return int(q.Enqueue(value))
		}
	}
	dequeueStep := func() func() int {
		return func() int {
			if useModel {
				if len(model) == 0 {
					return -1
				}
				v := model[0]
				model = model[1:]
				return int(v)
			}
			return int(q.Dequeue())
		}
	}

	l.AddStep(0, enqueueStep(60977), "enqueue(60977)")
	l.AddStep(1, dequeueStep(), "dequeue")
	l.AddStep(2, enqueueStep(21877), "enqueue(21877)")
	l.AddStep(3, enqueueStep(34022), "enqueue(34022)")
	l.AddStep(4, dequeueStep(), "dequeue")

	buildSetupRun := func(ic *interceptor.Interceptor) func() {
		return func() {
			l.Setup()
			for i := 0; i < 5; i++ {
				i := i
				program.StartThread(func() { l.ThreadBody(i) })
			}
		}
	}

	return buildSetupRun, l.Finish
}
