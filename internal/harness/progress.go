package harness

import (
	"sync/atomic"

	"go-eval-harness/internal/model"
)

// Progress counts completed units. It is shared by all workers and never gates scheduling.
type Progress struct {
	total     atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewProgress returns a counter for total units.
func NewProgress(total int64) *Progress {
	p := &Progress{}
	p.total.Store(total)
	return p
}

// Inc records one finished unit. failed marks units that did not pass.
func (p *Progress) Inc(failed bool) {
	if failed {
		p.failed.Add(1)
	}
	p.completed.Add(1)
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() model.ProgressSnapshot {
	return model.ProgressSnapshot{
		Total:     p.total.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}
