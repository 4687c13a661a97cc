package rtref

import (
	"fmt"
	"testing"
)

// BenchmarkBorrowRelease benchmarks an uncontended shared borrow.
func BenchmarkBorrowRelease(b *testing.B) {
	c := New(42)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r, err := c.TryBorrow()
		if err != nil {
			b.Fatalf("TryBorrow failed: %v", err)
		}
		_ = r.Get()
		r.Release()
	}
}

// BenchmarkBorrowMutRelease benchmarks an uncontended exclusive borrow.
func BenchmarkBorrowMutRelease(b *testing.B) {
	c := New(0)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		w, err := c.TryBorrowMut()
		if err != nil {
			b.Fatalf("TryBorrowMut failed: %v", err)
		}
		w.Set(i)
		w.Release()
	}
}

// BenchmarkUpdate benchmarks the scoped exclusive helper.
func BenchmarkUpdate(b *testing.B) {
	c := New(0)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Update(func(v *int) { *v++ })
	}
}

// BenchmarkSharedParallel benchmarks shared borrows of one cell from many goroutines.
func BenchmarkSharedParallel(b *testing.B) {
	for _, held := range []int{0, 1, 64} {
		b.Run(fmt.Sprintf("held_%d", held), func(b *testing.B) {
			c := New(7)
			guards := make([]*CellRef[int], held)
			for i := range guards {
				guards[i] = c.Borrow()
			}
			defer func() {
				for _, g := range guards {
					g.Release()
				}
			}()

			b.ResetTimer()
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					r, err := c.TryBorrow()
					if err != nil {
						b.Errorf("TryBorrow failed: %v", err)
						return
					}
					r.Release()
				}
			})
		})
	}
}

// BenchmarkExclusiveContended measures the failure path under contention.
func BenchmarkExclusiveContended(b *testing.B) {
	c := New(0)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if w, err := c.TryBorrowMut(); err == nil {
				w.Release()
			}
		}
	})
}
