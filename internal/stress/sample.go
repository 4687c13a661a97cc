package stress

import (
	"fmt"
	"sync/atomic"
)

// Sample is the value stored in every cell.
type Sample struct {
	A uint64
	B uint64
}

// Consistent reports whether no write was observed half done.
func (s Sample) Consistent() bool {
	return s.A == s.B
}

// witness tracks the goroutines that currently believe they hold a borrow
// of one cell. Counts move only while the borrow is held.
type witness struct {
	readers atomic.Int64
	writers atomic.Int64
}

func (w *witness) enterRead() (aliased bool) {
	w.readers.Add(1)
	return w.writers.Load() != 0
}

func (w *witness) exitRead() {
	w.readers.Add(-1)
}

func (w *witness) enterWrite() (aliasedWriter, aliasedReader bool) {
	n := w.writers.Add(1)
	return n != 1, w.readers.Load() != 0
}

func (w *witness) exitWrite() {
	w.writers.Add(-1)
}

func cellKey(i int) string {
	return fmt.Sprintf("cell-%04d", i)
}
