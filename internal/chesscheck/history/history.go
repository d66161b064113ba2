// Package history implements the layered ordering history that records
// every transition an exploration trial executes and answers the
// happens-before queries the exploration strategies need.
//
// Four layers, each adding state on top of the last, grounded on
// original_source/history.h, hbhistory.h/cc, hhbhistory.h/cc, and
// phhbhistory.h:
//
//   - base:  the (thread, transition, previous-value) record per step.
//   - HB:    per-thread clock vectors and per-address access/write CVs.
//   - HHB:   a rolling per-thread hash folding in observed peers' hashes.
//   - PHHB:  caches first-conflicts and previous-time-of-thread per step.
//
// All four are exposed as a single History type with the HB/HHB/PHHB
// behavior always enabled; spec.md's layering is a design narrative
// about how the original grew the feature set incrementally; nothing
// in spec.md requires that a caller be able to opt out of the upper
// layers, and every exploration strategy in internal/chesscheck/explore
// needs at least the HHB layer's hash, so collapsing them into one
// concrete type avoids an unused-capability matrix.
package history

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/kolkov/chesscheck/internal/chesscheck/clockvector"
	"github.com/kolkov/chesscheck/internal/chesscheck/epoch"
	"github.com/kolkov/chesscheck/internal/chesscheck/transition"
)

// Hash is a combined per-node state summary, used by CHESS-style
// duplicate-state pruning (spec.md §4.6).
type Hash = uint64

// step is the per-time-index record the base layer appends on every
// transition (original_source/history.h's parallel thread_at_ /
// transition_at_ / previous_value_at_ vectors, collapsed into one
// struct per step -- a struct-of-arrays buys the original's C++
// nothing, since every consumer in this package reads thread,
// transition, and previousValue together).
type step struct {
	thread        int
	transition    transition.Transition
	previousValue int64

	cv               *clockvector.ClockVector
	previousTimeOfThread int // -1 if none
	hash             Hash

	// PHHB cache: computed eagerly in AddTransition, before the base
	// layer's own bookkeeping runs, matching phhbhistory.h's ordering.
	firstConflicts []int
}

// History is the layered ordering history for one exploration trial.
// It is reset and reused across trials rather than reallocated, the
// way the interceptor reuses a single *History across StartNewRun
// calls (original_source/interceptor.cc).
type History struct {
	steps []step

	objects *objectTable

	currentCV   threadCVs
	currentHash threadHashes
	lastTimeOf  [clockvector.MaxThreads]int // -1 if thread never stepped
}

type threadCVs struct {
	data [clockvector.MaxThreads]*clockvector.ClockVector
}

type threadHashes struct {
	data [clockvector.MaxThreads]Hash
}

// New returns an empty History.
func New() *History {
	h := &History{objects: newObjectTable()}
	h.Reset()
	return h
}

// Reset restores the history to a fresh, empty state. Object tables
// are epoch-rotated (objectTable.reset), matching spec.md §4.4's "O(1)
// reset" invariant.
func (h *History) Reset() {
	h.steps = h.steps[:0]
	h.objects.reset()
	for i := range h.currentCV.data {
		h.currentCV.data[i] = clockvector.New()
	}
	h.currentHash = threadHashes{}
	for i := range h.lastTimeOf {
		h.lastTimeOf[i] = -1
	}
}

// Length returns the number of recorded steps.
func (h *History) Length() int {
	return len(h.steps)
}

// ThreadAt returns the thread that performed step t.
func (h *History) ThreadAt(t int) int {
	return h.steps[t].thread
}

// TransitionAt returns the transition performed at step t.
func (h *History) TransitionAt(t int) transition.Transition {
	return h.steps[t].transition
}

// PreviousValueAt returns the memory value observed at step t, captured
// before t executed.
func (h *History) PreviousValueAt(t int) int64 {
	return h.steps[t].previousValue
}

// CVAt returns the clock vector recorded at step t.
func (h *History) CVAt(t int) *clockvector.ClockVector {
	return h.steps[t].cv
}

// PreviousTimeOfThreadAt returns the step index of the same thread's
// prior step, or -1 if t was that thread's first step.
func (h *History) PreviousTimeOfThreadAt(t int) int {
	return h.steps[t].previousTimeOfThread
}

// CurrentCVFor returns the current clock vector held by thread.
func (h *History) CurrentCVFor(thread int) *clockvector.ClockVector {
	return h.currentCV.data[thread]
}

// FirstConflictsAt returns the PHHB-cached first-conflicts list
// computed when step t was recorded.
func (h *History) FirstConflictsAt(t int) []int {
	return h.steps[t].firstConflicts
}

// AddTransition records thread executing tr against the current memory
// value prevValue, updating every layer. Ported from hbhistory.cc's
// AddTransition with the PHHB-layer caching folded in at the point
// phhbhistory.h documents it happening (before the base bookkeeping).
//
// DANGER, preserved from original_source/interceptor.cc: callers must
// invoke this immediately before tr actually executes against memory.
// The previousValue captured here is read by counterfactual DPOR
// queries ("would this transition still be runnable replayed earlier")
// without re-executing the program, so it must reflect genuinely
// pre-execution memory state.
func (h *History) AddTransition(thread int, tr transition.Transition, prevValue int64) {
	t := len(h.steps)
	obj := h.objects.getOrCreate(tr.Address)

	// PHHB: cache the first-conflicts list before the HB layer's own
	// join mutates the object's CVs.
	firstConflicts := h.findFirstConflicts(thread, tr, obj)

	threadCV := h.currentCV.data[thread]

	// HB: the thread's CV first absorbs the object's access CV (every
	// transition) and, for a write-like transition, also its write CV,
	// *then* the thread's own slot is set to t (hbhistory.cc's ordering).
	obj.mu.Lock()
	if tr.CanWrite() {
		threadCV.Join(obj.accessCV)
		threadCV.Join(obj.writeCV)
	} else {
		threadCV.Join(obj.accessCV)
	}
	threadCV.Set(thread, int32(t))

	cvCopy := threadCV.Clone()

	// The object's CVs absorb the thread's (now-updated) CV, and the
	// access/write lists are appended.
	obj.accessCV.Join(threadCV)
	obj.accesses = append(obj.accesses, t)
	if tr.CanWrite() {
		obj.writeCV.Join(threadCV)
		obj.writes = append(obj.writes, t)
	}
	obj.mu.Unlock()

	previousTimeOfThread := h.lastTimeOf[thread]

	// HHB: roll the per-thread hash.
	newHash := h.rollHash(thread, cvCopy)

	h.steps = append(h.steps, step{
		thread:               thread,
		transition:           tr,
		previousValue:        prevValue,
		cv:                   cvCopy,
		previousTimeOfThread: previousTimeOfThread,
		hash:                 newHash,
		firstConflicts:       firstConflicts,
	})

	h.currentHash.data[thread] = newHash
	h.lastTimeOf[thread] = t
}

// FindFirstConflicts is the public, read-only counterpart of the
// conflict search AddTransition caches for its own step: given a
// transition thread is considering but has not yet executed, return
// every already-recorded step it conflicts with and does not already
// happen-before. Exploration strategies call this against the history
// replayed up to the trace node they are extending (main.cc's
// `history->FindFirstConflicts(thread, transition)` inside DPOR,
// PBPOR, and CBDPOR).
func (h *History) FindFirstConflicts(thread int, tr transition.Transition) []int {
	obj := h.objects.getOrCreate(tr.Address)
	return h.findFirstConflicts(thread, tr, obj)
}

// findFirstConflicts is FindFirstConflicts from hbhistory.cc: over the
// access list of tr's address (if tr writes) or the write list (if tr
// only reads), return every prior step that is not already in thread's
// happens-before past.
func (h *History) findFirstConflicts(thread int, tr transition.Transition, obj *object) []int {
	obj.mu.Lock()
	var candidates []int
	if tr.CanWrite() {
		candidates = append(candidates, obj.accesses...)
	} else {
		candidates = append(candidates, obj.writes...)
	}
	obj.mu.Unlock()

	cv := h.currentCV.data[thread]
	var conflicts []int
	for _, t := range candidates {
		if !h.timeHappensBeforeThreadCV(t, cv) {
			conflicts = append(conflicts, t)
		}
	}
	return conflicts
}

// TimeHappensBeforeTime reports time_happens_before_time(a, b):
// cv_at[b][thread_at(a)] >= a.
func (h *History) TimeHappensBeforeTime(a, b int) bool {
	e := epoch.New(h.steps[a].thread, a)
	return e.HappensBefore(h.steps[b].cv)
}

// TimeHappensBeforeThread reports time_happens_before_thread(t, T):
// current_cv_for(T)[thread_at(t)] >= t.
func (h *History) TimeHappensBeforeThread(t int, thread int) bool {
	return h.timeHappensBeforeThreadCV(t, h.currentCV.data[thread])
}

func (h *History) timeHappensBeforeThreadCV(t int, cv *clockvector.ClockVector) bool {
	e := epoch.New(h.steps[t].thread, t)
	return e.HappensBefore(cv)
}

// IsSplit reports whether, between steps a and b, the thread executing
// b observed some other thread X that had in turn observed the thread
// executing b at or after a. Ported from hbhistory.cc's IsSplit; used
// only by the Pinner strategy's cost model (spec.md §4.4, §9).
func (h *History) IsSplit(a, b int) bool {
	threadB := h.steps[b].thread
	cvB := h.steps[b].cv
	for other := 0; other < clockvector.MaxThreads; other++ {
		if other == threadB {
			continue
		}
		seenThem := cvB.Get(other)
		if seenThem == clockvector.Unset {
			continue
		}
		tPrime := int(seenThem)
		if tPrime < 0 || tPrime >= len(h.steps) {
			continue
		}
		if h.steps[tPrime].cv.Get(threadB) >= int32(a) {
			return true
		}
	}
	return false
}

// rollHash assembles HHB's fixed-layout buffer and folds it into a new
// 64-bit hash for thread, per hhbhistory.cc's AddTransition. Uses
// FNV-1a (hash/fnv) rather than CityHash64, matching the hash family
// the teacher's own internal/race/shadowmem/shadow_cas.go already
// reaches for. The buffer holds the step hash each other thread had at
// the time cv has seen of it (zero for thread's own slot and for unseen
// threads), followed by thread's own previous hash.
func (h *History) rollHash(thread int, cv *clockvector.ClockVector) Hash {
	hasher := fnv.New64a()
	writeHashField(hasher, uint64(thread+1)) // +1 distinguishes "no thread" (0) from thread 0
	for other := 0; other < clockvector.MaxThreads; other++ {
		seen := cv.Get(other)
		var peerHash Hash
		if other != thread && seen != clockvector.Unset {
			peerHash = h.steps[int(seen)].hash
		}
		writeHashField(hasher, peerHash)
	}
	writeHashField(hasher, h.currentHash.data[thread])
	return hasher.Sum64()
}

func writeHashField(h interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
}

// CombineCurrentHashes hashes the concatenation of every thread's
// current hash, ported from hhbhistory.cc.
func (h *History) CombineCurrentHashes() Hash {
	hasher := fnv.New64a()
	for t := 0; t < clockvector.MaxThreads; t++ {
		writeHashField(hasher, h.currentHash.data[t])
	}
	return hasher.Sum64()
}

// CombineCurrentHashesWithLast additionally folds in the id of the most
// recently executed thread (or -1 if the history is empty), the
// canonical CHESS duplicate-state key (spec.md §4.4, §9's "hash buffer
// layout must be exact" note).
func (h *History) CombineCurrentHashesWithLast() Hash {
	last := -1
	if len(h.steps) > 0 {
		last = h.steps[len(h.steps)-1].thread
	}
	hasher := fnv.New64a()
	writeHashField(hasher, uint64(last+1))
	for t := 0; t < clockvector.MaxThreads; t++ {
		writeHashField(hasher, h.currentHash.data[t])
	}
	return hasher.Sum64()
}

// Dump renders the recorded trace as a Python-list-of-dicts-literal
// string, matching original_source/history.h's Dump (spec.md §6:
// "data.py-style dump"): one entry per transition, with any attached
// annotations emitted immediately before the transition record they
// describe.
func (h *History) Dump() string {
	var sb strings.Builder
	sb.WriteString("[\n")
	for t, s := range h.steps {
		for _, annotation := range s.transition.Annotations {
			sb.WriteString("  {'annotation': ")
			sb.WriteString(strconv.Quote(annotation))
			sb.WriteString("},\n")
		}
		record := s.transition.Dump(s.thread, t, s.previousValue)
		sb.WriteString("  {")
		first := true
		for _, key := range []string{"thread", "step", "type", "address", "length", "value", "atomic", "source"} {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString("'")
			sb.WriteString(key)
			sb.WriteString("': ")
			sb.WriteString(formatDumpValue(record[key]))
		}
		sb.WriteString("},\n")
	}
	sb.WriteString("]\n")
	return sb.String()
}

func formatDumpValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uintptr:
		return strconv.FormatUint(uint64(x), 10)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return "None"
	}
}
