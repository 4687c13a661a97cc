package rtref

import (
	"fmt"
	"math"
	"sync/atomic"
)

const (
	// exclusiveFlag is the state value of an exclusively borrowed cell.
	exclusiveFlag uint64 = math.MaxUint64

	// MaxShared is the largest number of live shared borrows a cell can track.
	// One more would be indistinguishable from an exclusive borrow, so
	// exceeding it panics with RefOverflow instead of returning an error.
	MaxShared = exclusiveFlag - 1
)

// borrowState is the aliasing state of one cell.
//
//	0              unborrowed
//	1..MaxShared   that many live shared borrows
//	exclusiveFlag  exclusively borrowed
type borrowState struct {
	flag atomic.Uint64
}

// tryBeginShared registers one more shared borrow and returns the new count.
func (s *borrowState) tryBeginShared() (uint64, error) {
	for {
		cur := s.flag.Load()
		switch cur {
		case exclusiveFlag:
			return 0, ErrBorrowWhileExclusive
		case MaxShared:
			panic(RefOverflow{})
		}
		if s.flag.CompareAndSwap(cur, cur+1) {
			return cur + 1, nil
		}
	}
}

// tryBeginExclusive moves an unborrowed state to exclusive.
func (s *borrowState) tryBeginExclusive() error {
	for {
		cur := s.flag.Load()
		switch cur {
		case 0:
		case exclusiveFlag:
			return ErrBorrowWhileExclusive
		default:
			return ErrExclusiveWhileShared
		}
		if s.flag.CompareAndSwap(0, exclusiveFlag) {
			return nil
		}
	}
}

func (s *borrowState) endShared() {
	for {
		cur := s.flag.Load()
		if cur == 0 || cur == exclusiveFlag {
			panic(fmt.Sprintf("rtref: release of shared borrow in state %s", snapshotOf(cur)))
		}
		if s.flag.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

func (s *borrowState) endExclusive() {
	if !s.flag.CompareAndSwap(exclusiveFlag, 0) {
		panic(fmt.Sprintf("rtref: release of exclusive borrow in state %s", s.load()))
	}
}

func (s *borrowState) load() BorrowSnapshot {
	return snapshotOf(s.flag.Load())
}

// BorrowSnapshot is a point-in-time view of a cell's borrow state.
// It may be stale as soon as it is returned.
type BorrowSnapshot struct {
	Shared    uint64
	Exclusive bool
}

func snapshotOf(flag uint64) BorrowSnapshot {
	if flag == exclusiveFlag {
		return BorrowSnapshot{Exclusive: true}
	}
	return BorrowSnapshot{Shared: flag}
}

// Free reports whether no borrow was live.
func (s BorrowSnapshot) Free() bool {
	return !s.Exclusive && s.Shared == 0
}

// String returns "free", "shared(N)" or "exclusive".
func (s BorrowSnapshot) String() string {
	switch {
	case s.Exclusive:
		return "exclusive"
	case s.Shared == 0:
		return "free"
	default:
		return fmt.Sprintf("shared(%d)", s.Shared)
	}
}
