// Package transition implements the Transition value type: one
// shared-memory operation performed by one logical thread, together
// with everything needed to compute its result, decide whether it is
// runnable, and replay it later.
//
// Ported in meaning from original_source/transition.h and transition.cc.
// The C++ original reinterpret_casts a raw int8_t* to the operand
// width; this port uses unsafe.Pointer and a length switch over
// 1/2/4/8-byte loads/stores, which is the same mechanism spec.md §4.2
// describes ("Lengths 1/2/4/8 only").
package transition

import "unsafe"

// Type identifies the kind of shared-memory operation a Transition
// performs.
type Type int

const (
	// None is the zero value; never a valid Transition.
	None Type = iota
	// Write stores Arg0 to Address.
	Write
	// Read loads the current value at Address.
	Read
	// CAS compares the current value to Arg0 and, if equal, stores Arg1.
	CAS
	// ReadGE loads the current value and compares it against the
	// threshold Arg0, returning a boolean result.
	ReadGE
	// AtomicRMW performs a read-modify-write keyed by RMWOp (Arg0) with
	// operand Arg1.
	AtomicRMW
)

func (t Type) String() string {
	switch t {
	case Write:
		return "Write"
	case Read:
		return "Read"
	case CAS:
		return "CAS"
	case ReadGE:
		return "ReadGE"
	case AtomicRMW:
		return "AtomicRMW"
	default:
		return "None"
	}
}

// RMWOp identifies the sub-operation of an AtomicRMW transition.
type RMWOp int64

const (
	Xchg RMWOp = iota
	Add
	Sub
)

// Result is the outcome of executing a Transition against a current
// memory value: the value the program observes (Returned), and,
// optionally, the value written back to memory.
type Result struct {
	Returned   int64
	DoesWrite  bool
	Written    int64
}

// Transition is a copyable value describing one shared-memory
// operation.
type Transition struct {
	Type      Type
	Address   uintptr
	Length    int // one of 1, 2, 4, 8
	Arg0      int64
	Arg1      int64
	IsAtomic  bool

	HasRequired bool
	Required    int64

	Annotations []string
	Source      string
}

// New constructs a Transition with no operands (Read-shaped).
func New(typ Type, address uintptr, length int) Transition {
	return Transition{Type: typ, Address: address, Length: length}
}

// WithArg0 returns a copy of t with Arg0 set (Write's value, CAS's
// expected value, AtomicRMW's RMWOp, ReadGE's threshold).
func (t Transition) WithArg0(arg0 int64) Transition {
	t.Arg0 = arg0
	return t
}

// WithArg1 returns a copy of t with Arg1 set (CAS's replacement,
// AtomicRMW's operand).
func (t Transition) WithArg1(arg1 int64) Transition {
	t.Arg1 = arg1
	return t
}

// WithRequired attaches a required-result guard: the transition is
// only runnable if executing it would yield this value (spec.md §3).
func (t Transition) WithRequired(required int64) Transition {
	t.HasRequired = true
	t.Required = required
	return t
}

// WithAnnotations attaches free-form annotation strings, carried into
// the dumped trace alongside the transition they describe.
func (t Transition) WithAnnotations(annotations []string) Transition {
	t.Annotations = annotations
	return t
}

// DetermineResult computes the outcome of executing t against the
// current memory value, without performing any memory effect. Ported
// from transition.cc's DetermineResult switch.
func (t Transition) DetermineResult(value int64) Result {
	switch t.Type {
	case Read:
		return Result{Returned: value}
	case Write:
		return Result{Returned: 0, DoesWrite: true, Written: t.Arg0}
	case CAS:
		if value == t.Arg0 {
			return Result{Returned: value, DoesWrite: true, Written: t.Arg1}
		}
		return Result{Returned: value}
	case ReadGE:
		returned := int64(0)
		if value >= t.Arg0 {
			returned = 1
		}
		return Result{Returned: returned}
	case AtomicRMW:
		switch RMWOp(t.Arg0) {
		case Xchg:
			return Result{Returned: value, DoesWrite: true, Written: t.Arg1}
		case Add:
			return Result{Returned: value, DoesWrite: true, Written: value + t.Arg1}
		case Sub:
			return Result{Returned: value, DoesWrite: true, Written: value - t.Arg1}
		default:
			return Result{Returned: value}
		}
	default:
		return Result{Returned: value}
	}
}

// DetermineRunnable reports whether t is runnable given the current
// memory value: true unless a required-result guard is set and would
// not be satisfied.
func (t Transition) DetermineRunnable(value int64) bool {
	if !t.HasRequired {
		return true
	}
	return t.DetermineResult(value).Returned == t.Required
}

// ConflictsWith reports whether t and other address the same location
// and at least one of them writes.
func (t Transition) ConflictsWith(other Transition) bool {
	if t.Address != other.Address {
		return false
	}
	return t.CanWrite() || other.CanWrite()
}

// CanWrite reports whether t may perform a memory write (Write, CAS,
// or AtomicRMW -- Read and ReadGE never write).
func (t Transition) CanWrite() bool {
	switch t.Type {
	case Write, CAS, AtomicRMW:
		return true
	default:
		return false
	}
}

// Read performs the memory load described by t, honoring Length.
func (t Transition) Read() int64 {
	return readMemory(t.Address, t.Length)
}

// Write performs the memory store of value, honoring Length.
func (t Transition) Write(value int64) {
	writeMemory(t.Address, t.Length, value)
}

// Execute performs t's full memory effect: read the current value,
// determine the result, perform the write if any, and return the
// result the program observes.
func (t Transition) Execute() Result {
	current := t.Read()
	result := t.DetermineResult(current)
	if result.DoesWrite {
		t.Write(result.Written)
	}
	return result
}

func readMemory(address uintptr, length int) int64 {
	switch length {
	case 1:
		return int64(*(*int8)(unsafe.Pointer(address)))
	case 2:
		return int64(*(*int16)(unsafe.Pointer(address)))
	case 4:
		return int64(*(*int32)(unsafe.Pointer(address)))
	case 8:
		return *(*int64)(unsafe.Pointer(address))
	default:
		panic("transition: length must be one of 1, 2, 4, 8")
	}
}

func writeMemory(address uintptr, length int, value int64) {
	switch length {
	case 1:
		*(*int8)(unsafe.Pointer(address)) = int8(value)
	case 2:
		*(*int16)(unsafe.Pointer(address)) = int16(value)
	case 4:
		*(*int32)(unsafe.Pointer(address)) = int32(value)
	case 8:
		*(*int64)(unsafe.Pointer(address)) = value
	default:
		panic("transition: length must be one of 1, 2, 4, 8")
	}
}

// Format renders t as a short human-readable description: the name of
// its type only, e.g. "Write" (no thread, address or arguments).
func (t Transition) Format() string {
	return t.Type.String()
}

// Dump produces a structured record suitable for the data.py-style
// trace dump (spec.md §6), as a map ready for serialization.
func (t Transition) Dump(thread int, step int, value int64) map[string]any {
	return map[string]any{
		"thread":   thread,
		"step":     step,
		"type":     t.Type.String(),
		"address":  t.Address,
		"length":   t.Length,
		"value":    value,
		"atomic":   t.IsAtomic,
		"source":   t.Source,
	}
}
