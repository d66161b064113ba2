// Package stats implements the named-counter statistics registry used
// by every exploration strategy to publish run counters (leaves,
// dead-ends, states visited, and so on).
//
// Grounded on original_source/statistics.h and statistics.cc: a global
// registry of named mutable counters, each dumped only if its current
// value differs from its initial value (unless it was registered with
// outputInitial). The C++ original returns a raw reference to the
// counter's storage so call sites can do `counter++` inline; Go's
// equivalent is a *Counter[T] handle with an Add/Set method, which
// keeps the registry itself free of reflection while still allowing
// every strategy package to hold onto its own counters as fields.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Holder is the registry's view of one named counter: it can dump
// itself and report whether it is worth dumping.
type Holder interface {
	Dump() string
	ShouldDump() bool
	Reset()
}

// Counter is a registered named statistic of type T.
type Counter[T comparable] struct {
	mu            sync.Mutex
	initial       T
	value         T
	outputInitial bool
}

// Add adds delta to the counter's current value. T must support +; for
// the integer counters this registry is used for, callers pass the
// concrete numeric type.
func (c *Counter[T]) Add(delta T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = add(c.value, delta)
}

// Inc increments an integer-valued counter by one.
func (c *Counter[T]) Inc() {
	c.Add(one[T]())
}

// Set overwrites the counter's current value.
func (c *Counter[T]) Set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
}

// Value returns the counter's current value.
func (c *Counter[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Dump renders the current value.
func (c *Counter[T]) Dump() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%v", c.value)
}

// ShouldDump reports whether the counter departed from its initial
// value, or was registered to always dump.
func (c *Counter[T]) ShouldDump() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputInitial || c.value != c.initial
}

// Reset restores the counter to its registered initial value.
func (c *Counter[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = c.initial
}

func add[T comparable](a, b T) T {
	switch av := any(a).(type) {
	case int64:
		return any(av + any(b).(int64)).(T)
	case int:
		return any(av + any(b).(int)).(T)
	case float64:
		return any(av + any(b).(float64)).(T)
	default:
		panic("stats: unsupported counter type")
	}
}

func one[T comparable]() T {
	var zero T
	switch any(zero).(type) {
	case int64:
		return any(int64(1)).(T)
	case int:
		return any(1).(T)
	case float64:
		return any(float64(1)).(T)
	default:
		panic("stats: unsupported counter type")
	}
}

// Registry holds every counter registered for a run. chesscheck uses
// one package-level default registry (see Default), mirroring the
// original's single global `statistics` map, but a Registry can also be
// constructed directly for isolated tests.
type Registry struct {
	mu       sync.Mutex
	counters map[string]Holder
	order    []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]Holder)}
}

// RegisterInt64 registers (or re-registers) an int64 counter under
// name and returns a handle to it.
func RegisterInt64(r *Registry, name string, initial int64, outputInitial bool) *Counter[int64] {
	c := &Counter[int64]{initial: initial, value: initial, outputInitial: outputInitial}
	r.register(name, c)
	return c
}

// RegisterInt registers (or re-registers) an int counter under name.
func RegisterInt(r *Registry, name string, initial int, outputInitial bool) *Counter[int] {
	c := &Counter[int]{initial: initial, value: initial, outputInitial: outputInitial}
	r.register(name, c)
	return c
}

func (r *Registry) register(name string, holder Holder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.counters[name]; !exists {
		r.order = append(r.order, name)
	}
	r.counters[name] = holder
}

// ResetAll restores every registered counter to its initial value.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	names := append([]string(nil), r.order...)
	counters := make(map[string]Holder, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	r.mu.Unlock()

	for _, name := range names {
		counters[name].Reset()
	}
}

// Dump renders every counter that ShouldDump as a single
// Python-dict-literal-style line, matching the original's
// DumpStatisticsToStderr format ("{'name': value, ...}").
func (r *Registry) Dump() string {
	r.mu.Lock()
	names := append([]string(nil), r.order...)
	counters := make(map[string]Holder, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	r.mu.Unlock()

	sort.Strings(names)

	var parts []string
	for _, name := range names {
		c := counters[name]
		if !c.ShouldDump() {
			continue
		}
		parts = append(parts, fmt.Sprintf("'%s': %s", name, c.Dump()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Default is the package-level registry strategies register their
// counters against, mirroring the original's single global
// `statistics` map.
var Default = NewRegistry()
