package rtmap

import "github.com/yndnr/rtcell-go/pkg/rtref"

// keys copies one shard's keys so callbacks run without the lock.
func (s *shard[K, V]) keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]K, 0, len(s.cells))
	for k := range s.cells {
		keys = append(keys, k)
	}
	return keys
}

// Range calls fn with a shared borrow of each value.
//
// Entries that are exclusively borrowed at the time are skipped, as are
// entries removed after the shard was listed. The borrow is released when
// fn returns. The callback returns false to stop iteration.
// Shards are visited one after another, so the view may not be consistent.
func (m *Map[K, V]) Range(fn func(key K, value rtref.Borrowed[V]) bool) {
	for _, shard := range m.shards {
		for _, key := range shard.keys() {
			var (
				r   *rtref.CellRef[V]
				err error
			)
			if !shard.lookup(key, func(c *rtref.Cell[V]) { r, err = c.TryBorrow() }) || err != nil {
				continue
			}
			ok := fn(key, rtref.NewRef(r))
			r.Release()
			if !ok {
				return
			}
		}
	}
}

// RangeMut calls fn with an exclusive borrow of each value.
// Entries with any live borrow are skipped.
func (m *Map[K, V]) RangeMut(fn func(key K, value rtref.BorrowedMut[V]) bool) {
	for _, shard := range m.shards {
		for _, key := range shard.keys() {
			var (
				w   *rtref.CellRefMut[V]
				err error
			)
			if !shard.lookup(key, func(c *rtref.Cell[V]) { w, err = c.TryBorrowMut() }) || err != nil {
				continue
			}
			ok := fn(key, rtref.NewRefMut(w))
			w.Release()
			if !ok {
				return
			}
		}
	}
}

// Keys returns all keys.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	for _, shard := range m.shards {
		keys = append(keys, shard.keys()...)
	}
	return keys
}

// ShardCount returns the number of shards.
func (m *Map[K, V]) ShardCount() int {
	return len(m.shards)
}

// ShardStats describes one shard.
type ShardStats struct {
	Index     int
	Count     int
	Shared    int
	Exclusive int
}

// Stats returns entry and borrow counts for every shard.
// Borrow counts are the number of entries in each state, not the number of guards.
func (m *Map[K, V]) Stats() []ShardStats {
	stats := make([]ShardStats, len(m.shards))
	for i, shard := range m.shards {
		st := ShardStats{Index: i}
		shard.mu.RLock()
		st.Count = len(shard.cells)
		for _, c := range shard.cells {
			switch s := c.State(); {
			case s.Exclusive:
				st.Exclusive++
			case s.Shared > 0:
				st.Shared++
			}
		}
		shard.mu.RUnlock()
		stats[i] = st
	}
	return stats
}

// BorrowStats sums Stats over all shards.
type BorrowStats struct {
	Entries   int
	Free      int
	Shared    int
	Exclusive int
}

// BorrowStats returns how many entries are free, shared or exclusively borrowed.
func (m *Map[K, V]) BorrowStats() BorrowStats {
	var total BorrowStats
	for _, st := range m.Stats() {
		total.Entries += st.Count
		total.Shared += st.Shared
		total.Exclusive += st.Exclusive
	}
	total.Free = total.Entries - total.Shared - total.Exclusive
	return total
}
