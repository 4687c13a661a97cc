package rtmap

import (
	"errors"
	"fmt"
	"hash/maphash"
	"math/rand/v2"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/rtcell-go/pkg/rtref"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// ErrKeyNotFound is returned when a key has no entry.
var ErrKeyNotFound = errors.New("rtmap: key not found")

// Map is a concurrent-safe sharded map of borrow-checked values.
type Map[K comparable, V any] struct {
	shards    []*shard[K, V]
	shardMask uint64
	seed      uint32
	keySeed   maphash.Seed
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	cells map[K]*rtref.Cell[V]
}

// New creates a new map with the default shard count.
func New[K comparable, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount)
}

// NewWithShards creates a new map with the specified shard count.
// shardCount must be a power of 2; other values fall back to the default.
func NewWithShards[K comparable, V any](shardCount int) *Map[K, V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}

	m := &Map[K, V]{
		shards:    make([]*shard[K, V], shardCount),
		shardMask: uint64(shardCount - 1),
		seed:      rand.Uint32(),
		keySeed:   maphash.MakeSeed(),
	}

	for i := 0; i < shardCount; i++ {
		m.shards[i] = &shard[K, V]{
			cells: make(map[K]*rtref.Cell[V]),
		}
	}

	return m
}

// getShard returns the shard for a key.
// Keys that compare equal always hash equally, including +0 and -0.
func (m *Map[K, V]) getShard(key K) *shard[K, V] {
	var h uint64
	if k, ok := any(key).(string); ok {
		h = murmur3.Sum64WithSeed([]byte(k), m.seed)
	} else {
		h = maphash.Comparable(m.keySeed, key)
	}
	return m.shards[h&m.shardMask]
}

// lookup calls fn with the cell stored under key while the shard read lock
// is held, so the cell cannot be removed or replaced before fn returns.
// It reports false if the key does not exist.
func (s *shard[K, V]) lookup(key K, fn func(c *rtref.Cell[V])) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cells[key]
	if !ok {
		return false
	}
	fn(c)
	return true
}

// TryInsert stores value under key.
// If the key exists, its value is replaced in place and the old value is
// returned; this fails with a BorrowFail while the entry is borrowed.
func (m *Map[K, V]) TryInsert(key K, value V) (V, bool, error) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if c, ok := shard.cells[key]; ok {
		old, err := c.TryReplace(value)
		if err != nil {
			return old, false, err
		}
		return old, true, nil
	}

	shard.cells[key] = rtref.New(value)
	var zero V
	return zero, false, nil
}

// Insert is TryInsert that panics if the existing entry is borrowed.
func (m *Map[K, V]) Insert(key K, value V) (V, bool) {
	old, replaced, err := m.TryInsert(key, value)
	if err != nil {
		panic(fmt.Sprintf("rtmap: insert %v: %v", key, err))
	}
	return old, replaced
}

// TryRemove deletes key and returns its value.
// It fails with ErrKeyNotFound, or with a BorrowFail while the entry is
// borrowed, in which case the entry is kept.
func (m *Map[K, V]) TryRemove(key K) (V, error) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	var zero V
	c, ok := shard.cells[key]
	if !ok {
		return zero, ErrKeyNotFound
	}

	w, err := c.TryBorrowMut()
	if err != nil {
		return zero, err
	}
	defer w.Release()

	delete(shard.cells, key)
	return w.Get(), nil
}

// Remove is TryRemove that panics if the entry is borrowed.
// It returns false if the key did not exist.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	val, err := m.TryRemove(key)
	switch {
	case err == nil:
		return val, true
	case errors.Is(err, ErrKeyNotFound):
		return val, false
	default:
		panic(fmt.Sprintf("rtmap: remove %v: %v", key, err))
	}
}

// TryBorrow returns a shared borrow of the value under key.
func (m *Map[K, V]) TryBorrow(key K) (*rtref.Ref[V], error) {
	var (
		r   *rtref.CellRef[V]
		err error
	)
	if !m.getShard(key).lookup(key, func(c *rtref.Cell[V]) { r, err = c.TryBorrow() }) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return rtref.NewRef(r), nil
}

// Borrow returns a shared borrow of the value under key, and false if the
// key does not exist. It panics if the value is exclusively borrowed.
func (m *Map[K, V]) Borrow(key K) (*rtref.Ref[V], bool) {
	var r *rtref.CellRef[V]
	if !m.getShard(key).lookup(key, func(c *rtref.Cell[V]) { r = c.Borrow() }) {
		return nil, false
	}
	return rtref.NewRef(r), true
}

// TryBorrowMut returns an exclusive borrow of the value under key.
func (m *Map[K, V]) TryBorrowMut(key K) (*rtref.RefMut[V], error) {
	var (
		w   *rtref.CellRefMut[V]
		err error
	)
	if !m.getShard(key).lookup(key, func(c *rtref.Cell[V]) { w, err = c.TryBorrowMut() }) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return rtref.NewRefMut(w), nil
}

// BorrowMut returns an exclusive borrow of the value under key, and false if
// the key does not exist. It panics if the value is borrowed.
func (m *Map[K, V]) BorrowMut(key K) (*rtref.RefMut[V], bool) {
	var w *rtref.CellRefMut[V]
	if !m.getShard(key).lookup(key, func(c *rtref.Cell[V]) { w = c.BorrowMut() }) {
		return nil, false
	}
	return rtref.NewRefMut(w), true
}

// Contains checks if a key exists.
func (m *Map[K, V]) Contains(key K) bool {
	return m.getShard(key).lookup(key, func(*rtref.Cell[V]) {})
}

// Len returns the total number of entries.
func (m *Map[K, V]) Len() int {
	count := 0
	for _, shard := range m.shards {
		shard.mu.RLock()
		count += len(shard.cells)
		shard.mu.RUnlock()
	}
	return count
}

// Clear removes all entries. Outstanding guards stay valid and keep
// referring to the detached values.
func (m *Map[K, V]) Clear() {
	for _, shard := range m.shards {
		shard.mu.Lock()
		shard.cells = make(map[K]*rtref.Cell[V])
		shard.mu.Unlock()
	}
}
