// Package rtref provides a thread-safe cell whose borrows are checked at run time.
//
// A Cell owns one value and hands out guards that grant access to it:
//
//   - Shared guards (CellRef, Ref) allow reads; any number may coexist.
//   - Exclusive guards (CellRefMut, RefMut) allow writes; at most one exists,
//     and never alongside a shared guard.
//
// Borrow attempts never block. They either succeed immediately or fail with a
// BorrowFail, and the caller decides whether to skip, retry, or report.
//
// Usage:
//
//	c := rtref.New(1)
//
//	w := c.BorrowMut()
//	*w.Ptr() += 2
//	w.Release()
//
//	r := c.Borrow()
//	defer r.Release()
//	fmt.Println(r.Get()) // 3
//
// Thread Safety:
//
// The borrow state of a cell is a single atomic word updated with
// compare-and-swap loops. No locks are taken and nothing is logged.
// A guard must be released exactly once; Release is idempotent, and any
// access through a released guard panics.
//
// Debug formatting:
//
// Building with the rtref_unsafe_debug tag makes Cell.String render the
// enclosed value. The read happens without a borrow, so it must not be
// enabled when the value's own formatting re-borrows the cell.
package rtref
