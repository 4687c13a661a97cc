package rtref

import "fmt"

// Borrowed is a shared borrow whose storage is hidden from the holder.
// Collections return it so callers do not depend on how values are stored.
type Borrowed[V any] interface {
	Get() V
	Release()
	String() string
}

// BorrowedMut is an exclusive borrow whose storage is hidden from the holder.
type BorrowedMut[V any] interface {
	Borrowed[V]
	Ptr() *V
	Set(V)
}

var (
	_ Borrowed[int]    = (*CellRef[int])(nil)
	_ Borrowed[int]    = (*Ref[int])(nil)
	_ BorrowedMut[int] = (*CellRefMut[int])(nil)
	_ BorrowedMut[int] = (*RefMut[int])(nil)
)

// Ref is a shared borrow handed out by a collection.
type Ref[V any] struct {
	inner *CellRef[V]
}

// NewRef wraps a shared guard.
func NewRef[V any](inner *CellRef[V]) *Ref[V] {
	return &Ref[V]{inner: inner}
}

// Get returns a copy of the borrowed value.
func (r *Ref[V]) Get() V {
	return r.inner.Get()
}

// Release ends the borrow. Further calls are no-ops.
func (r *Ref[V]) Release() {
	r.inner.Release()
}

// TryClone returns a second, independent Ref over the same value.
func (r *Ref[V]) TryClone() (*Ref[V], error) {
	c, err := r.inner.TryClone()
	if err != nil {
		return nil, err
	}
	return NewRef(c), nil
}

// Clone is TryClone that panics on failure.
func (r *Ref[V]) Clone() *Ref[V] {
	return NewRef(r.inner.Clone())
}

// String renders the borrowed value.
func (r *Ref[V]) String() string {
	if r.inner.Released() {
		return "Ref{<released>}"
	}
	return fmt.Sprintf("Ref{%v}", *r.inner.value)
}

// RefMut is an exclusive borrow handed out by a collection.
type RefMut[V any] struct {
	inner *CellRefMut[V]
}

// NewRefMut wraps an exclusive guard.
func NewRefMut[V any](inner *CellRefMut[V]) *RefMut[V] {
	return &RefMut[V]{inner: inner}
}

// Get returns a copy of the borrowed value.
func (w *RefMut[V]) Get() V {
	return w.inner.Get()
}

// Ptr returns a pointer to the borrowed value.
func (w *RefMut[V]) Ptr() *V {
	return w.inner.Ptr()
}

// Set overwrites the borrowed value.
func (w *RefMut[V]) Set(value V) {
	w.inner.Set(value)
}

// Release ends the borrow. Further calls are no-ops.
func (w *RefMut[V]) Release() {
	w.inner.Release()
}

// String renders the borrowed value.
func (w *RefMut[V]) String() string {
	if w.inner.Released() {
		return "RefMut{<released>}"
	}
	return fmt.Sprintf("RefMut{%v}", *w.inner.value)
}

// Equal reports whether two borrows currently see equal values.
func Equal[V comparable](a, b Borrowed[V]) bool {
	return a.Get() == b.Get()
}
