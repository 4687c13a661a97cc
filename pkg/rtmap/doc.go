// Package rtmap provides a concurrent map whose values are borrowed, not copied.
//
// Each value lives in an rtref.Cell. Lookups hand out rtref.Ref and
// rtref.RefMut guards, so many goroutines can read one entry while another
// entry is being mutated, and conflicting borrows of the same entry fail
// immediately instead of blocking.
//
// Features:
//
//   - Sharding: Configurable shard count, keys spread with murmur3
//   - Fine-grained Locking: Per-shard RWMutex guards the key set only
//   - Run-time Borrow Checking: Per-value shared/exclusive borrows
//
// Usage:
//
//	m := rtmap.New[string, int]()
//	m.Insert("a", 1)
//
//	w, _ := m.BorrowMut("a")
//	*w.Ptr() += 2
//	w.Release()
//
//	r, _ := m.Borrow("a")
//	defer r.Release()
//	fmt.Println(r.Get()) // 3
//
// Thread Safety:
//
// All operations are safe for concurrent use. Shard locks are held only while
// the key set is read or changed, never while a guard is alive.
package rtmap
