package history

import (
	"sync"

	"github.com/kolkov/chesscheck/internal/chesscheck/clockvector"
)

// object is the per-address shadow record the HB layer maintains: the
// list of step indices that accessed the address, the list that wrote
// it, and the join of each list's clock vectors.
//
// Named and shaped after original_source/hbhistory.h's Object struct
// (accesses, writes, access_cv, write_cv). The address-keyed store
// wrapping it is adapted from the teacher's
// internal/race/shadowmem/shadow_map.go: a sync.Map keyed by address,
// with GetOrCreate doing the Load-then-LoadOrStore dance the teacher
// uses to avoid allocating a fresh *object on every hit, and Reset
// replacing the whole sync.Map in one shot -- exactly how the teacher
// achieves its "epoch-rotated, O(1) reset" property (spec.md §4.4)
// without literally porting original_source/hashtable.h's open
// addressing.
type object struct {
	mu       sync.Mutex
	accesses []int
	writes   []int
	accessCV *clockvector.ClockVector
	writeCV  *clockvector.ClockVector
}

func newObject() *object {
	return &object{accessCV: clockvector.New(), writeCV: clockvector.New()}
}

// objectTable is the address-keyed store of objects for one History.
type objectTable struct {
	cells sync.Map // uintptr -> *object
}

func newObjectTable() *objectTable {
	return &objectTable{}
}

// getOrCreate returns the object for addr, creating it on first
// access. Mirrors shadow_map.go's GetOrCreate: try Load first (the
// common case once an address has been touched once) before paying for
// LoadOrStore's allocation of the candidate value.
func (t *objectTable) getOrCreate(addr uintptr) *object {
	if v, ok := t.cells.Load(addr); ok {
		return v.(*object)
	}
	v, _ := t.cells.LoadOrStore(addr, newObject())
	return v.(*object)
}

// reset discards every object, matching shadow_map.go's Reset: replace
// the sync.Map wholesale rather than deleting keys one at a time.
func (t *objectTable) reset() {
	t.cells = sync.Map{}
}
