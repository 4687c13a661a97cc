package metric

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/rtcell-go/pkg/rtmap"
	"github.com/yndnr/rtcell-go/pkg/rtref"
)

const namespace = "rtcell"

// Borrow kinds used as the "kind" label.
const (
	KindShared    = "shared"
	KindExclusive = "exclusive"
)

// Conflict reasons used as the "reason" label.
const (
	ReasonSharedHeld    = "shared_held"
	ReasonExclusiveHeld = "exclusive_held"
	ReasonNotFound      = "not_found"
	ReasonOther         = "other"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	BorrowAttempts  *prometheus.CounterVec
	BorrowConflicts *prometheus.CounterVec
	BorrowDuration  *prometheus.HistogramVec
	Violations      *prometheus.CounterVec
	WorkerOps       prometheus.Counter
	ActiveWorkers   prometheus.Gauge
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus the borrow metrics.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		BorrowAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "borrow",
			Name:      "attempts_total",
			Help:      "Borrow attempts by kind",
		}, []string{"kind"}),
		BorrowConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "borrow",
			Name:      "conflicts_total",
			Help:      "Borrow attempts rejected by the run-time borrow check",
		}, []string{"kind", "reason"}),
		BorrowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "borrow",
			Name:      "held_seconds",
			Help:      "Time a successful borrow was held before release",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
		}, []string{"kind"}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Aliasing or torn-read violations observed by workers",
		}, []string{"type"}),
		WorkerOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "ops_total",
			Help:      "Operations completed by stress workers",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "active",
			Help:      "Number of running stress workers",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.BorrowAttempts,
		r.BorrowConflicts,
		r.BorrowDuration,
		r.Violations,
		r.WorkerOps,
		r.ActiveWorkers,
	)

	return r
}

// Register adds a custom collector to the registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Unregister removes a collector added with Register.
func (r *Registry) Unregister(c prometheus.Collector) bool {
	return r.registry.Unregister(c)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

// ObserveBorrow records one borrow attempt and, if err is non-nil, the
// conflict that rejected it.
func (r *Registry) ObserveBorrow(kind string, err error) {
	r.BorrowAttempts.WithLabelValues(kind).Inc()
	if err != nil {
		r.BorrowConflicts.WithLabelValues(kind, ConflictReason(err)).Inc()
	}
}

// ObserveHeld records how long a borrow was held, in seconds.
func (r *Registry) ObserveHeld(kind string, seconds float64) {
	r.BorrowDuration.WithLabelValues(kind).Observe(seconds)
}

// IncViolation records one invariant violation of the given type.
func (r *Registry) IncViolation(typ string) {
	r.Violations.WithLabelValues(typ).Inc()
}

// ConflictReason maps a borrow error onto a "reason" label value.
func ConflictReason(err error) string {
	var fail rtref.BorrowFail
	if errors.As(err, &fail) {
		switch fail {
		case rtref.ErrExclusiveWhileShared:
			return ReasonSharedHeld
		case rtref.ErrBorrowWhileExclusive:
			return ReasonExclusiveHeld
		}
	}
	if errors.Is(err, rtmap.ErrKeyNotFound) {
		return ReasonNotFound
	}
	return ReasonOther
}
