package stress

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/rtcell-go/internal/stress/config"
	"github.com/yndnr/rtcell-go/internal/telemetry/logger"
	"github.com/yndnr/rtcell-go/internal/telemetry/metric"
)

func quietLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Format: "json", Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l
}

func testConfig() config.StressSection {
	return config.StressSection{
		Workers:  4,
		Duration: 100 * time.Millisecond,
		Cells:    8,
		Shards:   4,
		Reads:    0.5,
	}
}

func TestRunner_Run(t *testing.T) {
	reg := metric.NewRegistry()
	r := New(testConfig(), WithLogger(quietLogger(t)), WithMetrics(reg), WithSeed(42))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !report.OK() {
		t.Errorf("Violations = %+v, want none", report.Violations)
	}
	if report.Ops == 0 {
		t.Error("Ops = 0, want > 0")
	}
	if report.Reads == 0 || report.Writes == 0 {
		t.Errorf("Reads = %d, Writes = %d, want both > 0", report.Reads, report.Writes)
	}
	accounted := report.Reads + report.Writes + report.Conflicts.Shared + report.Conflicts.Exclusive
	if accounted != report.Ops {
		t.Errorf("reads+writes+conflicts = %d, want Ops %d", accounted, report.Ops)
	}
	if len(report.RunID) != 26 {
		t.Errorf("RunID = %q, want a 26 character ULID", report.RunID)
	}
	if report.Workers != 4 || report.Cells != 8 {
		t.Errorf("Workers, Cells = %d, %d, want 4, 8", report.Workers, report.Cells)
	}
	if report.Elapsed < 100*time.Millisecond {
		t.Errorf("Elapsed = %v, want >= 100ms", report.Elapsed)
	}

	if got := testutil.ToFloat64(reg.WorkerOps); got != float64(report.Ops) {
		t.Errorf("worker ops metric = %v, want %d", got, report.Ops)
	}
	if got := testutil.ToFloat64(reg.ActiveWorkers); got != 0 {
		t.Errorf("active workers = %v, want 0 after run", got)
	}
	if got := testutil.ToFloat64(reg.Violations.WithLabelValues(ViolationTornRead)); got != 0 {
		t.Errorf("torn read metric = %v, want 0", got)
	}
}

func TestRunner_Run_WithHold(t *testing.T) {
	cfg := testConfig()
	cfg.Reads = 0.9
	cfg.Cells = 2
	cfg.Hold = 100 * time.Microsecond

	report, err := New(cfg, WithLogger(quietLogger(t))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Two hot cells and held writes make conflicts certain.
	if report.Conflicts.Shared+report.Conflicts.Exclusive == 0 {
		t.Error("expected borrow conflicts on two contended cells")
	}
}

func TestRunner_Run_Twice(t *testing.T) {
	r := New(testConfig(), WithLogger(quietLogger(t)))

	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	second, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if first.RunID == second.RunID {
		t.Error("run IDs should differ between runs")
	}
}

func TestRunner_Run_Cancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Duration = 0

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan struct{})
	var report *Report
	var err error
	go func() {
		report, err = New(cfg, WithLogger(quietLogger(t))).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if err != nil {
		t.Errorf("Run() error = %v, want nil on cancellation", err)
	}
	if report == nil || report.Ops == 0 {
		t.Error("expected a report with some operations")
	}
}

func TestRunner_Run_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 2
	cfg.Rate = 50
	cfg.Duration = 200 * time.Millisecond

	report, err := New(cfg, WithLogger(quietLogger(t))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// 2 workers * (50/s * 0.2s + burst 1) = 22, with slack for timing.
	if report.Ops > 40 {
		t.Errorf("Ops = %d, want <= 40 under rate limit", report.Ops)
	}
}

func TestRunner_Progress(t *testing.T) {
	var calls atomic.Int32
	var last atomic.Uint64

	r := New(testConfig(),
		WithLogger(quietLogger(t)),
		WithProgress(func(p Progress) {
			calls.Add(1)
			last.Store(p.Ops)
			if p.Total != 100*time.Millisecond {
				t.Errorf("Progress.Total = %v, want 100ms", p.Total)
			}
		}, 10*time.Millisecond),
	)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls.Load() == 0 {
		t.Error("progress callback was never called")
	}
	if last.Load() > report.Ops {
		t.Errorf("progress ops %d exceeds final ops %d", last.Load(), report.Ops)
	}
}

func TestRunner_Report_DetectsLeakAndLostUpdate(t *testing.T) {
	r := New(testConfig(), WithLogger(quietLogger(t)))
	r.reset()

	// A write that bypassed the counters looks like a lost update.
	w, ok := r.Map().BorrowMut(cellKey(0))
	if !ok {
		t.Fatal("BorrowMut(cell-0) failed")
	}
	w.Set(Sample{A: 3, B: 3})
	w.Release()

	// A guard that is never released is a leaked borrow.
	held, ok := r.Map().Borrow(cellKey(1))
	if !ok {
		t.Fatal("Borrow(cell-1) failed")
	}
	defer held.Release()

	rep := r.report("test", time.Now(), time.Second)
	if rep.Violations.LostUpdates != 3 {
		t.Errorf("LostUpdates = %d, want 3", rep.Violations.LostUpdates)
	}
	if rep.Violations.LeakedBorrows != 1 {
		t.Errorf("LeakedBorrows = %d, want 1", rep.Violations.LeakedBorrows)
	}
	if rep.OK() {
		t.Error("OK() = true, want false")
	}
}

func TestRunner_Report_DetectsTornValue(t *testing.T) {
	reg := metric.NewRegistry()
	r := New(testConfig(), WithLogger(quietLogger(t)), WithMetrics(reg))
	r.reset()

	w, _ := r.Map().BorrowMut(cellKey(2))
	w.Set(Sample{A: 1, B: 0})
	w.Release()
	r.stats.writes.Store(1)

	rep := r.report("test", time.Now(), time.Second)
	if rep.Violations.TornReads != 1 {
		t.Errorf("TornReads = %d, want 1", rep.Violations.TornReads)
	}
	if rep.Violations.LostUpdates != 0 {
		t.Errorf("LostUpdates = %d, want 0", rep.Violations.LostUpdates)
	}
	if got := testutil.ToFloat64(reg.Violations.WithLabelValues(ViolationTornRead)); got != 1 {
		t.Errorf("torn_read violations metric = %v, want 1", got)
	}
}

func TestWitness(t *testing.T) {
	var w witness

	if w.enterRead() {
		t.Error("reader alone should not be aliased")
	}
	if w.enterRead() {
		t.Error("two readers should not be aliased")
	}
	if aw, ar := w.enterWrite(); aw || !ar {
		t.Errorf("writer with readers: aliasedWriter, aliasedReader = %v, %v, want false, true", aw, ar)
	}
	w.exitRead()
	w.exitRead()

	if aw, ar := w.enterWrite(); !aw || ar {
		t.Errorf("second writer: aliasedWriter, aliasedReader = %v, %v, want true, false", aw, ar)
	}
	if !w.enterRead() {
		t.Error("reader with writers should be aliased")
	}
}

func TestViolationError(t *testing.T) {
	err := error(&ViolationError{RunID: "01abc", Violations: Violations{TornReads: 2, LostUpdates: 1}})

	var ve *ViolationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As(*ViolationError) = false")
	}
	if ve.Violations.Total() != 3 {
		t.Errorf("Total() = %d, want 3", ve.Violations.Total())
	}
	for _, want := range []string{"01abc", "3 invariant violations", "torn_reads=2", "lost_updates=1"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Error() = %q, want it to contain %q", err.Error(), want)
		}
	}
}

func TestReport_OpsPerSecond(t *testing.T) {
	tests := []struct {
		ops     uint64
		elapsed time.Duration
		want    float64
	}{
		{100, time.Second, 100},
		{100, 500 * time.Millisecond, 200},
		{100, 0, 0},
	}
	for _, tt := range tests {
		r := &Report{Ops: tt.ops, Elapsed: tt.elapsed}
		if got := r.OpsPerSecond(); got != tt.want {
			t.Errorf("OpsPerSecond(%d, %v) = %v, want %v", tt.ops, tt.elapsed, got, tt.want)
		}
	}
}

func TestSample_Consistent(t *testing.T) {
	if !(Sample{A: 4, B: 4}).Consistent() {
		t.Error("equal halves should be consistent")
	}
	if (Sample{A: 4, B: 3}).Consistent() {
		t.Error("unequal halves should not be consistent")
	}
}
