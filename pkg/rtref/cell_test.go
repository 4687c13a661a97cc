package rtref

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCell_AllowMultipleReads(t *testing.T) {
	c := New(5)

	a := c.Borrow()
	b := c.Borrow()
	defer a.Release()
	defer b.Release()

	if got := a.Get() + b.Get(); got != 10 {
		t.Errorf("a + b = %d, want 10", got)
	}
	if got := c.State(); got.Shared != 2 {
		t.Errorf("State() = %s, want shared(2)", got)
	}
}

func TestCell_AllowCloneReads(t *testing.T) {
	c := New(5)

	a := c.Borrow()
	b := a.Clone()

	if got := a.Get() + b.Get(); got != 10 {
		t.Errorf("a + b = %d, want 10", got)
	}
	if got := c.State().Shared; got != 2 {
		t.Errorf("shared = %d, want 2", got)
	}

	a.Release()
	b.Release()
	if !c.State().Free() {
		t.Errorf("State() = %s, want free", c.State())
	}
}

func TestCell_AllowSingleWrite(t *testing.T) {
	c := New(5)

	w := c.BorrowMut()
	*w.Ptr() += 2
	*w.Ptr() += 3
	w.Release()

	r := c.Borrow()
	defer r.Release()
	if got := r.Get(); got != 10 {
		t.Errorf("Get() = %d, want 10", got)
	}
}

func TestCell_WriteThenRead(t *testing.T) {
	c := New(1)

	w := c.BorrowMut()
	w.Set(3)
	w.Release()

	r := c.Borrow()
	defer r.Release()
	if got := r.Get(); got != 3 {
		t.Errorf("Get() = %d, want 3", got)
	}
}

func TestCell_PanicWriteAndRead(t *testing.T) {
	c := New(int32(5))
	w := c.BorrowMut()
	defer w.Release()

	mustPanic(t, "expected to borrow `int32` immutably, but it was already borrowed mutably", func() {
		c.Borrow()
	})
}

func TestCell_PanicWriteAndWrite(t *testing.T) {
	c := New(int32(5))
	w := c.BorrowMut()
	defer w.Release()

	mustPanic(t, "expected to borrow `int32` mutably, but it was already borrowed", func() {
		c.BorrowMut()
	})
}

func TestCell_PanicReadAndWrite(t *testing.T) {
	c := New(int32(5))
	r := c.Borrow()
	defer r.Release()

	mustPanic(t, "expected to borrow `int32` mutably, but it was already borrowed", func() {
		c.BorrowMut()
	})
}

func TestCell_PanicMessage(t *testing.T) {
	tests := []struct {
		name string
		hold func(c *Cell[int32]) func()
		call func(c *Cell[int32])
		want string
	}{
		{
			name: "shared while exclusive",
			hold: func(c *Cell[int32]) func() { return c.BorrowMut().Release },
			call: func(c *Cell[int32]) { c.Borrow() },
			want: "rtref: expected to borrow `int32` immutably, but it was already borrowed mutably",
		},
		{
			name: "exclusive while shared",
			hold: func(c *Cell[int32]) func() { return c.Borrow().Release },
			call: func(c *Cell[int32]) { c.BorrowMut() },
			want: "rtref: expected to borrow `int32` mutably, but it was already borrowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(int32(1))
			release := tt.hold(c)
			defer release()

			defer func() {
				if got := fmt.Sprint(recover()); got != tt.want {
					t.Errorf("panic = %q, want %q", got, tt.want)
				}
			}()
			tt.call(c)
		})
	}
}

func TestCell_PanicUnwrapsBorrowFail(t *testing.T) {
	c := New("a")
	r := c.Borrow()
	defer r.Release()

	defer func() {
		err, ok := recover().(error)
		if !ok {
			t.Fatal("expected an error panic value")
		}
		if !errors.Is(err, ErrExclusiveWhileShared) {
			t.Errorf("panic = %v, want it to wrap %v", err, ErrExclusiveWhileShared)
		}
	}()
	c.BorrowMut()
}

func TestCell_TryBorrowConflicts(t *testing.T) {
	tests := []struct {
		name    string
		hold    func(c *Cell[int]) func()
		attempt func(c *Cell[int]) error
		want    error
	}{
		{
			name: "write then read",
			hold: func(c *Cell[int]) func() { return c.BorrowMut().Release },
			attempt: func(c *Cell[int]) error {
				_, err := c.TryBorrow()
				return err
			},
			want: ErrBorrowWhileExclusive,
		},
		{
			name: "write then write",
			hold: func(c *Cell[int]) func() { return c.BorrowMut().Release },
			attempt: func(c *Cell[int]) error {
				_, err := c.TryBorrowMut()
				return err
			},
			want: ErrBorrowWhileExclusive,
		},
		{
			name: "read then write",
			hold: func(c *Cell[int]) func() { return c.Borrow().Release },
			attempt: func(c *Cell[int]) error {
				_, err := c.TryBorrowMut()
				return err
			},
			want: ErrExclusiveWhileShared,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(5)
			release := tt.hold(c)
			before := c.State()

			if err := tt.attempt(c); !errors.Is(err, tt.want) {
				t.Errorf("attempt error = %v, want %v", err, tt.want)
			}
			if after := c.State(); after != before {
				t.Errorf("State() = %s after failed attempt, want %s", after, before)
			}

			release()
			if err := tt.attempt(c); err != nil {
				t.Errorf("attempt after release error = %v, want nil", err)
			}
		})
	}
}

func TestCell_SharedBlocksExclusiveUntilReleased(t *testing.T) {
	c := New(1)

	a, err := c.TryBorrow()
	if err != nil {
		t.Fatalf("TryBorrow() error = %v", err)
	}

	if _, err := c.TryBorrowMut(); !errors.Is(err, ErrExclusiveWhileShared) {
		t.Errorf("TryBorrowMut() error = %v, want %v", err, ErrExclusiveWhileShared)
	}

	a.Release()

	w, err := c.TryBorrowMut()
	if err != nil {
		t.Fatalf("TryBorrowMut() after release error = %v", err)
	}
	w.Release()
}

func TestCell_ExclusiveBlocksSharedUntilReleased(t *testing.T) {
	c := New(1)
	w := c.BorrowMut()

	done := make(chan error)
	go func() {
		_, err := c.TryBorrow()
		done <- err
	}()
	if err := <-done; !errors.Is(err, ErrBorrowWhileExclusive) {
		t.Errorf("TryBorrow() error = %v, want %v", err, ErrBorrowWhileExclusive)
	}

	w.Release()

	r, err := c.TryBorrow()
	if err != nil {
		t.Fatalf("TryBorrow() after release error = %v", err)
	}
	r.Release()
}

func TestCell_ClonedBorrowDoesNotAllowWrite(t *testing.T) {
	c := New(5)

	a := c.Borrow()
	b := a.Clone()
	a.Release()

	if _, err := c.TryBorrowMut(); !errors.Is(err, ErrExclusiveWhileShared) {
		t.Errorf("TryBorrowMut() error = %v, want %v", err, ErrExclusiveWhileShared)
	}
	if got := b.Get(); got != 5 {
		t.Errorf("b.Get() = %d, want 5", got)
	}
	b.Release()
}

func TestCell_ViewAndUpdate(t *testing.T) {
	c := New([]string{"a"})

	c.Update(func(v *[]string) {
		*v = append(*v, "b")
	})

	var got []string
	c.View(func(v []string) {
		got = v
	})
	if len(got) != 2 || got[1] != "b" {
		t.Errorf("View() saw %v, want [a b]", got)
	}
	if !c.State().Free() {
		t.Errorf("State() = %s after View/Update, want free", c.State())
	}
}

func TestCell_TryViewAndTryUpdateConflicts(t *testing.T) {
	c := New(1)

	r := c.Borrow()
	if err := c.TryUpdate(func(*int) { t.Error("update must not run") }); !errors.Is(err, ErrExclusiveWhileShared) {
		t.Errorf("TryUpdate() error = %v, want %v", err, ErrExclusiveWhileShared)
	}
	if err := c.TryView(func(int) {}); err != nil {
		t.Errorf("TryView() error = %v, want nil", err)
	}
	r.Release()

	w := c.BorrowMut()
	if err := c.TryView(func(int) { t.Error("view must not run") }); !errors.Is(err, ErrBorrowWhileExclusive) {
		t.Errorf("TryView() error = %v, want %v", err, ErrBorrowWhileExclusive)
	}
	w.Release()
}

func TestCell_UpdateReleasesOnPanic(t *testing.T) {
	c := New(1)

	func() {
		defer func() { _ = recover() }()
		c.Update(func(*int) { panic("boom") })
	}()

	if !c.State().Free() {
		t.Errorf("State() = %s after panicking update, want free", c.State())
	}
}

func TestCell_Replace(t *testing.T) {
	c := New("old")

	if got := c.Replace("new"); got != "old" {
		t.Errorf("Replace() = %q, want %q", got, "old")
	}

	r := c.Borrow()
	if _, err := c.TryReplace("newer"); !errors.Is(err, ErrExclusiveWhileShared) {
		t.Errorf("TryReplace() error = %v, want %v", err, ErrExclusiveWhileShared)
	}
	if got := r.Get(); got != "new" {
		t.Errorf("Get() = %q, want %q", got, "new")
	}
	r.Release()

	old, err := c.TryReplace("newer")
	if err != nil || old != "new" {
		t.Errorf("TryReplace() = (%q, %v), want (%q, nil)", old, err, "new")
	}
}

type pair struct {
	A, B uint64
}

func TestCell_ConcurrentNoTornState(t *testing.T) {
	c := New(pair{})
	deadline := time.Now().Add(100 * time.Millisecond)

	var (
		wg       sync.WaitGroup
		readers  atomic.Int64
		writers  atomic.Int64
		torn     atomic.Int64
		aliasing atomic.Int64
		writes   atomic.Uint64
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, seed))
			for time.Now().Before(deadline) {
				if rng.IntN(4) != 0 {
					r, err := c.TryBorrow()
					if err != nil {
						continue
					}
					readers.Add(1)
					if writers.Load() != 0 {
						aliasing.Add(1)
					}
					if v := r.Get(); v.A != v.B {
						torn.Add(1)
					}
					readers.Add(-1)
					r.Release()
					continue
				}

				w, err := c.TryBorrowMut()
				if err != nil {
					continue
				}
				if writers.Add(1) != 1 || readers.Load() != 0 {
					aliasing.Add(1)
				}
				n := writes.Add(1)
				w.Ptr().A = n
				runtime.Gosched()
				w.Ptr().B = n
				writers.Add(-1)
				w.Release()
			}
		}(uint64(i))
	}
	wg.Wait()

	if n := torn.Load(); n != 0 {
		t.Errorf("observed %d torn reads", n)
	}
	if n := aliasing.Load(); n != 0 {
		t.Errorf("observed %d aliasing violations", n)
	}
	if !c.State().Free() {
		t.Errorf("State() = %s after all guards released, want free", c.State())
	}
	t.Logf("completed %d writes", writes.Load())
}
