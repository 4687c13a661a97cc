package stress

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yndnr/rtcell-go/internal/stress/config"
	"github.com/yndnr/rtcell-go/internal/telemetry/logger"
	"github.com/yndnr/rtcell-go/internal/telemetry/metric"
	"github.com/yndnr/rtcell-go/pkg/rtmap"
	"github.com/yndnr/rtcell-go/pkg/rtref"
)

// DefaultProgressInterval is how often the progress callback fires.
const DefaultProgressInterval = 250 * time.Millisecond

// Progress is passed to the progress callback while a run is active.
type Progress struct {
	Elapsed time.Duration
	// Total is zero for runs bounded only by cancellation.
	Total time.Duration
	Ops   uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records borrow outcomes in reg.
func WithMetrics(reg *metric.Registry) Option {
	return func(r *Runner) {
		r.metrics = reg
	}
}

// WithLogger sets the logger used for run lifecycle events.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithProgress calls fn every interval while workers are running.
func WithProgress(fn func(Progress), interval time.Duration) Option {
	return func(r *Runner) {
		r.progress = fn
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithSeed fixes the seed of the per-worker random sources.
func WithSeed(seed uint64) Option {
	return func(r *Runner) {
		r.seed = seed
	}
}

type counters struct {
	ops            atomic.Uint64
	reads          atomic.Uint64
	writes         atomic.Uint64
	sharedFails    atomic.Uint64
	exclusiveFails atomic.Uint64
	tornReads      atomic.Uint64
	aliasedReaders atomic.Uint64
	aliasedWriters atomic.Uint64
	reported       atomic.Bool
}

// Runner executes stress runs against one shared map.
type Runner struct {
	cfg       config.StressSection
	cells     *rtmap.Map[string, Sample]
	keys      []string
	witnesses []witness

	metrics  *metric.Registry
	logger   logger.Logger
	progress func(Progress)
	interval time.Duration
	seed     uint64

	stats *counters
}

// New creates a Runner. cfg is expected to have passed config.Verify.
func New(cfg config.StressSection, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		cells:     rtmap.NewWithShards[string, Sample](cfg.Shards),
		keys:      make([]string, cfg.Cells),
		witnesses: make([]witness, cfg.Cells),
		interval:  DefaultProgressInterval,
		seed:      mrand.Uint64(),
		stats:     &counters{},
	}
	for i := range r.keys {
		r.keys[i] = cellKey(i)
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		r.metrics = metric.NewRegistry()
	}
	if r.logger == nil {
		r.logger = logger.Default()
	}
	return r
}

// Map returns the shared map so callers can register collectors on it.
func (r *Runner) Map() *rtmap.Map[string, Sample] {
	return r.cells
}

// Run starts the workers and blocks until the configured duration elapses,
// ctx is cancelled, or a worker fails. Cancellation of ctx ends the run
// early without error. A run that observed violations returns its report
// together with a *ViolationError.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID, err := newRunID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	ctx = logger.WithRunID(logger.WithLogger(ctx, r.logger), runID)
	log := logger.L(ctx)

	r.reset()

	var cancel context.CancelFunc
	if r.cfg.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	log.Info("stress run started",
		"workers", r.cfg.Workers,
		"cells", r.cfg.Cells,
		"shards", r.cells.ShardCount(),
		"reads", r.cfg.Reads,
		"rate", r.cfg.Rate,
		"duration", r.cfg.Duration,
	)

	started := time.Now()
	stopProgress := r.startProgress(started)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Workers; i++ {
		id := i
		g.Go(func() error {
			return r.worker(gctx, id)
		})
	}
	werr := g.Wait()
	stopProgress()

	report := r.report(runID, started, time.Since(started))
	if werr != nil {
		log.Error("stress run aborted", "error", werr)
		return report, werr
	}

	if !report.OK() {
		log.Error("stress run found invariant violations",
			"violations", report.Violations.Total(),
			"ops", report.Ops,
		)
		return report, &ViolationError{RunID: runID, Violations: report.Violations}
	}

	log.Info("stress run finished",
		"ops", report.Ops,
		"reads", report.Reads,
		"writes", report.Writes,
		"conflicts_shared", report.Conflicts.Shared,
		"conflicts_exclusive", report.Conflicts.Exclusive,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

// reset refills the map with zeroed samples and clears all counters.
func (r *Runner) reset() {
	r.cells.Clear()
	for _, k := range r.keys {
		r.cells.Insert(k, Sample{})
	}
	for i := range r.witnesses {
		r.witnesses[i].readers.Store(0)
		r.witnesses[i].writers.Store(0)
	}
	r.stats = &counters{}
}

func (r *Runner) startProgress(started time.Time) (stop func()) {
	if r.progress == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.progress(Progress{
					Elapsed: time.Since(started),
					Total:   r.cfg.Duration,
					Ops:     r.stats.ops.Load(),
				})
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func (r *Runner) worker(ctx context.Context, id int) (err error) {
	r.metrics.ActiveWorkers.Inc()
	defer r.metrics.ActiveWorkers.Dec()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("worker %d panicked: %v", id, p)
		}
	}()

	rng := mrand.New(mrand.NewPCG(r.seed, uint64(id)))

	var limiter *rate.Limiter
	if r.cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.cfg.Rate), 1)
	}

	for ctx.Err() == nil {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		idx := rng.IntN(len(r.keys))
		var opErr error
		if rng.Float64() < r.cfg.Reads {
			opErr = r.read(idx)
		} else {
			opErr = r.write(idx)
		}
		if opErr != nil {
			return fmt.Errorf("worker %d: %w", id, opErr)
		}

		r.stats.ops.Add(1)
		r.metrics.WorkerOps.Inc()
	}
	return nil
}

func (r *Runner) read(idx int) error {
	ref, err := r.cells.TryBorrow(r.keys[idx])
	r.metrics.ObserveBorrow(metric.KindShared, err)
	if err != nil {
		if errors.Is(err, rtmap.ErrKeyNotFound) {
			return err
		}
		r.stats.sharedFails.Add(1)
		return nil
	}

	start := time.Now()
	w := &r.witnesses[idx]
	if w.enterRead() {
		r.violation(ViolationAliasedReader, idx)
	}
	if !ref.Get().Consistent() {
		r.violation(ViolationTornRead, idx)
	}
	w.exitRead()
	ref.Release()

	r.metrics.ObserveHeld(metric.KindShared, time.Since(start).Seconds())
	r.stats.reads.Add(1)
	return nil
}

func (r *Runner) write(idx int) error {
	ref, err := r.cells.TryBorrowMut(r.keys[idx])
	r.metrics.ObserveBorrow(metric.KindExclusive, err)
	if err != nil {
		if errors.Is(err, rtmap.ErrKeyNotFound) {
			return err
		}
		r.stats.exclusiveFails.Add(1)
		return nil
	}

	start := time.Now()
	w := &r.witnesses[idx]
	aliasedWriter, aliasedReader := w.enterWrite()
	if aliasedWriter {
		r.violation(ViolationAliasedWriter, idx)
	}
	if aliasedReader {
		r.violation(ViolationAliasedReader, idx)
	}

	s := ref.Ptr()
	next := s.A + 1
	s.A = next
	r.pause()
	s.B = next

	w.exitWrite()
	ref.Release()

	r.metrics.ObserveHeld(metric.KindExclusive, time.Since(start).Seconds())
	r.stats.writes.Add(1)
	return nil
}

func (r *Runner) pause() {
	if r.cfg.Hold > 0 {
		time.Sleep(r.cfg.Hold)
		return
	}
	runtime.Gosched()
}

func (r *Runner) violation(typ string, idx int) {
	switch typ {
	case ViolationTornRead:
		r.stats.tornReads.Add(1)
	case ViolationAliasedReader:
		r.stats.aliasedReaders.Add(1)
	case ViolationAliasedWriter:
		r.stats.aliasedWriters.Add(1)
	}
	r.metrics.IncViolation(typ)

	// Only the first violation is logged; the rest are counted.
	if r.stats.reported.CompareAndSwap(false, true) {
		r.logger.Error("invariant violation", "type", typ, "key", r.keys[idx])
	}
}

// report collects counters and checks the final state of the map.
// It must run after all workers have returned.
func (r *Runner) report(runID string, started time.Time, elapsed time.Duration) *Report {
	rep := &Report{
		RunID:     runID,
		StartedAt: started,
		Elapsed:   elapsed,
		Workers:   r.cfg.Workers,
		Cells:     r.cfg.Cells,
		Ops:       r.stats.ops.Load(),
		Reads:     r.stats.reads.Load(),
		Writes:    r.stats.writes.Load(),
		Conflicts: Conflicts{
			Shared:    r.stats.sharedFails.Load(),
			Exclusive: r.stats.exclusiveFails.Load(),
		},
		Violations: Violations{
			TornReads:      r.stats.tornReads.Load(),
			AliasedReaders: r.stats.aliasedReaders.Load(),
			AliasedWriters: r.stats.aliasedWriters.Load(),
		},
	}

	bs := r.cells.BorrowStats()
	rep.Violations.LeakedBorrows = uint64(bs.Shared + bs.Exclusive)
	if rep.Violations.LeakedBorrows > 0 {
		r.metrics.Violations.WithLabelValues(ViolationLeakedBorrow).Add(float64(rep.Violations.LeakedBorrows))
	}

	var sum uint64
	r.cells.Range(func(_ string, v rtref.Borrowed[Sample]) bool {
		s := v.Get()
		sum += s.A
		if !s.Consistent() {
			rep.Violations.TornReads++
			r.metrics.IncViolation(ViolationTornRead)
		}
		return true
	})
	if sum != rep.Writes {
		if sum > rep.Writes {
			rep.Violations.LostUpdates = sum - rep.Writes
		} else {
			rep.Violations.LostUpdates = rep.Writes - sum
		}
		r.metrics.Violations.WithLabelValues(ViolationLostUpdate).Add(float64(rep.Violations.LostUpdates))
	}

	return rep
}

func newRunID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return strings.ToLower(id.String()), nil
}
