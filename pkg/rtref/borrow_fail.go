package rtref

import "fmt"

// BorrowFail describes why a borrow attempt was refused.
// It carries no payload and compares by value, so errors.Is works directly.
type BorrowFail uint8

const (
	// ErrExclusiveWhileShared is returned when exclusive access is requested
	// while at least one shared borrow is live.
	ErrExclusiveWhileShared BorrowFail = iota + 1

	// ErrBorrowWhileExclusive is returned when shared or exclusive access is
	// requested while an exclusive borrow is live.
	ErrBorrowWhileExclusive
)

// Error implements the error interface.
func (f BorrowFail) Error() string {
	switch f {
	case ErrExclusiveWhileShared:
		return "rtref: cannot borrow mutably, value is already borrowed immutably"
	case ErrBorrowWhileExclusive:
		return "rtref: cannot borrow, value is already borrowed mutably"
	default:
		return fmt.Sprintf("rtref: borrow failed (%d)", uint8(f))
	}
}

// RefOverflow is the panic value raised when a cell already has MaxShared
// live shared borrows and another one is requested.
//
// It is not part of the recoverable error set: wrapping the counter would make
// the shared and exclusive states indistinguishable.
type RefOverflow struct{}

// Error implements the error interface.
func (RefOverflow) Error() string {
	return fmt.Sprintf("rtref: shared borrow count exceeded %d", MaxShared)
}

// borrowPanic is the panic value of Cell.Borrow and Cell.BorrowMut.
// It unwraps to the BorrowFail that caused it.
type borrowPanic struct {
	msg string
	err BorrowFail
}

func (p *borrowPanic) Error() string { return p.msg }
func (p *borrowPanic) Unwrap() error { return p.err }
