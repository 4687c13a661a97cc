package rtref

import (
	"fmt"
	"reflect"
)

// Cell is a RefCell-like container that may be shared between goroutines.
//
// A Cell must not be copied after first use.
type Cell[T any] struct {
	state borrowState
	value T
}

// New creates an unborrowed cell holding value.
func New[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

// TryBorrow returns a shared guard, or ErrBorrowWhileExclusive if the value
// is exclusively borrowed.
func (c *Cell[T]) TryBorrow() (*CellRef[T], error) {
	if _, err := c.state.tryBeginShared(); err != nil {
		return nil, err
	}
	return &CellRef[T]{state: &c.state, value: &c.value}, nil
}

// Borrow returns a shared guard.
//
// It panics if the value is exclusively borrowed. Use it where program logic
// already rules the conflict out.
func (c *Cell[T]) Borrow() *CellRef[T] {
	r, err := c.TryBorrow()
	if err != nil {
		panic(conflictPanic[T](err, "immutably", " mutably"))
	}
	return r
}

// TryBorrowMut returns an exclusive guard, or a BorrowFail describing the
// borrow already in place.
func (c *Cell[T]) TryBorrowMut() (*CellRefMut[T], error) {
	if err := c.state.tryBeginExclusive(); err != nil {
		return nil, err
	}
	return &CellRefMut[T]{state: &c.state, value: &c.value}, nil
}

// BorrowMut returns an exclusive guard. It panics if any borrow is live.
func (c *Cell[T]) BorrowMut() *CellRefMut[T] {
	w, err := c.TryBorrowMut()
	if err != nil {
		panic(conflictPanic[T](err, "mutably", ""))
	}
	return w
}

// TryView calls fn with the value while holding a shared borrow.
func (c *Cell[T]) TryView(fn func(T)) error {
	r, err := c.TryBorrow()
	if err != nil {
		return err
	}
	defer r.Release()

	fn(*r.value)
	return nil
}

// View is TryView that panics on conflict.
func (c *Cell[T]) View(fn func(T)) {
	r := c.Borrow()
	defer r.Release()

	fn(*r.value)
}

// TryUpdate calls fn with a pointer to the value while holding an exclusive
// borrow. The pointer must not be retained after fn returns.
func (c *Cell[T]) TryUpdate(fn func(*T)) error {
	w, err := c.TryBorrowMut()
	if err != nil {
		return err
	}
	defer w.Release()

	fn(w.value)
	return nil
}

// Update is TryUpdate that panics on conflict.
func (c *Cell[T]) Update(fn func(*T)) {
	w := c.BorrowMut()
	defer w.Release()

	fn(w.value)
}

// TryReplace stores value and returns the previous one.
func (c *Cell[T]) TryReplace(value T) (T, error) {
	w, err := c.TryBorrowMut()
	if err != nil {
		var zero T
		return zero, err
	}
	defer w.Release()

	old := *w.value
	*w.value = value
	return old, nil
}

// Replace is TryReplace that panics on conflict.
func (c *Cell[T]) Replace(value T) T {
	w := c.BorrowMut()
	defer w.Release()

	old := *w.value
	*w.value = value
	return old
}

// State returns a snapshot of the borrow state.
func (c *Cell[T]) State() BorrowSnapshot {
	return c.state.load()
}

// String renders the borrow state. The value is only rendered when built
// with the rtref_unsafe_debug tag.
func (c *Cell[T]) String() string {
	if unsafeDebug {
		return fmt.Sprintf("Cell{state: %s, value: %v}", c.state.load(), c.value)
	}
	return fmt.Sprintf("Cell{state: %s, value: ..}", c.state.load())
}

func conflictPanic[T any](err error, wanted, existing string) error {
	fail, _ := err.(BorrowFail)
	return &borrowPanic{
		msg: fmt.Sprintf("rtref: expected to borrow `%s` %s, but it was already borrowed%s",
			reflect.TypeFor[T](), wanted, existing),
		err: fail,
	}
}
