package rtref

import (
	"fmt"
	"sync/atomic"
)

const errReleased = "rtref: use of released guard"

// CellRef is a shared borrow of a Cell's value.
//
// Release must be called once the borrow is no longer needed, typically with
// defer. Further calls to Release are no-ops.
type CellRef[T any] struct {
	state    *borrowState
	value    *T
	released atomic.Bool
}

// Get returns a copy of the borrowed value.
func (r *CellRef[T]) Get() T {
	r.mustLive()
	return *r.value
}

// Release ends the borrow.
func (r *CellRef[T]) Release() {
	if r.released.CompareAndSwap(false, true) {
		r.state.endShared()
	}
}

// Released reports whether Release has been called.
func (r *CellRef[T]) Released() bool {
	return r.released.Load()
}

// TryClone returns a second, independently released shared borrow of the
// same value. The original guard is unaffected on failure.
//
// Clones that are never released keep counting towards MaxShared; reaching
// it panics with RefOverflow.
func (r *CellRef[T]) TryClone() (*CellRef[T], error) {
	r.mustLive()
	if _, err := r.state.tryBeginShared(); err != nil {
		return nil, err
	}
	return &CellRef[T]{state: r.state, value: r.value}, nil
}

// Clone is TryClone that panics on failure.
func (r *CellRef[T]) Clone() *CellRef[T] {
	c, err := r.TryClone()
	if err != nil {
		panic(fmt.Sprintf("rtref: failed to clone CellRef: %v", err))
	}
	return c
}

// String renders the borrowed value.
func (r *CellRef[T]) String() string {
	if r.released.Load() {
		return "CellRef{<released>}"
	}
	return fmt.Sprintf("CellRef{%v}", *r.value)
}

func (r *CellRef[T]) mustLive() {
	if r.released.Load() {
		panic(errReleased)
	}
}

// MapRef narrows a shared borrow to a component of the value, such as a
// struct field or the target of a pointer.
//
// The borrow moves to the returned guard: r is marked released without
// ending the borrow, and releasing the result ends it.
func MapRef[T, U any](r *CellRef[T], fn func(*T) *U) *CellRef[U] {
	if !r.released.CompareAndSwap(false, true) {
		panic(errReleased)
	}
	return &CellRef[U]{state: r.state, value: fn(r.value)}
}
