package rtref

import (
	"fmt"
	"sync/atomic"
)

// CellRefMut is an exclusive borrow of a Cell's value.
//
// There is no way to clone it.
type CellRefMut[T any] struct {
	state    *borrowState
	value    *T
	released atomic.Bool
}

// Get returns a copy of the borrowed value.
func (w *CellRefMut[T]) Get() T {
	w.mustLive()
	return *w.value
}

// Ptr returns a pointer to the borrowed value.
// It must not be used after Release.
func (w *CellRefMut[T]) Ptr() *T {
	w.mustLive()
	return w.value
}

// Set overwrites the borrowed value.
func (w *CellRefMut[T]) Set(value T) {
	w.mustLive()
	*w.value = value
}

// Release ends the borrow. Further calls are no-ops.
func (w *CellRefMut[T]) Release() {
	if w.released.CompareAndSwap(false, true) {
		w.state.endExclusive()
	}
}

// Released reports whether Release has been called.
func (w *CellRefMut[T]) Released() bool {
	return w.released.Load()
}

// String renders the borrowed value.
func (w *CellRefMut[T]) String() string {
	if w.released.Load() {
		return "CellRefMut{<released>}"
	}
	return fmt.Sprintf("CellRefMut{%v}", *w.value)
}

func (w *CellRefMut[T]) mustLive() {
	if w.released.Load() {
		panic(errReleased)
	}
}

// MapRefMut narrows an exclusive borrow to a component of the value.
// The borrow moves to the returned guard, as with MapRef.
func MapRefMut[T, U any](w *CellRefMut[T], fn func(*T) *U) *CellRefMut[U] {
	if !w.released.CompareAndSwap(false, true) {
		panic(errReleased)
	}
	return &CellRefMut[U]{state: w.state, value: fn(w.value)}
}
