package stress

import (
	"fmt"
	"time"
)

// Violation types, also used as the "type" metric label.
const (
	ViolationTornRead      = "torn_read"
	ViolationAliasedReader = "aliased_reader"
	ViolationAliasedWriter = "aliased_writer"
	ViolationLostUpdate    = "lost_update"
	ViolationLeakedBorrow  = "leaked_borrow"
)

// Conflicts counts borrow attempts rejected by the borrow check.
type Conflicts struct {
	Shared    uint64 `json:"shared" yaml:"shared"`
	Exclusive uint64 `json:"exclusive" yaml:"exclusive"`
}

// Violations counts broken invariants. All fields must be zero.
type Violations struct {
	TornReads      uint64 `json:"torn_reads" yaml:"torn_reads"`
	AliasedReaders uint64 `json:"aliased_readers" yaml:"aliased_readers"`
	AliasedWriters uint64 `json:"aliased_writers" yaml:"aliased_writers"`
	LostUpdates    uint64 `json:"lost_updates" yaml:"lost_updates"`
	LeakedBorrows  uint64 `json:"leaked_borrows" yaml:"leaked_borrows"`
}

// Total returns the sum of all violations.
func (v Violations) Total() uint64 {
	return v.TornReads + v.AliasedReaders + v.AliasedWriters + v.LostUpdates + v.LeakedBorrows
}

// Report summarises one run.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
	Workers   int           `json:"workers" yaml:"workers"`
	Cells     int           `json:"cells" yaml:"cells"`

	Ops        uint64     `json:"ops" yaml:"ops"`
	Reads      uint64     `json:"reads" yaml:"reads"`
	Writes     uint64     `json:"writes" yaml:"writes"`
	Conflicts  Conflicts  `json:"conflicts" yaml:"conflicts"`
	Violations Violations `json:"violations" yaml:"violations"`
}

// OK reports whether the run observed no violations.
func (r *Report) OK() bool {
	return r.Violations.Total() == 0
}

// OpsPerSecond returns the throughput of the run.
func (r *Report) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// ViolationError is returned by Run when invariants were broken.
type ViolationError struct {
	RunID      string
	Violations Violations
}

func (e *ViolationError) Error() string {
	v := e.Violations
	return fmt.Sprintf("stress run %s: %d invariant violations (torn_reads=%d aliased_readers=%d aliased_writers=%d lost_updates=%d leaked_borrows=%d)",
		e.RunID, v.Total(), v.TornReads, v.AliasedReaders, v.AliasedWriters, v.LostUpdates, v.LeakedBorrows)
}
