package model

import "time"

// RunStatus is the lifecycle state of a run in the ledger.
type RunStatus string

const (
	RunStatusPending     RunStatus = "pending"
	RunStatusLoading     RunStatus = "loading"
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusInterrupted RunStatus = "interrupted"
	RunStatusFailed      RunStatus = "failed"
)

// ProgressSnapshot is a point-in-time copy of the progress counters.
type ProgressSnapshot struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Summary describes how a run ended.
type Summary struct {
	RunID        string        `json:"run_id"`
	OutputPath   string        `json:"output_path"`
	Total        int64         `json:"total"`
	Completed    int64         `json:"completed"`
	Failed       int64         `json:"failed"`
	WorkerFaults int           `json:"worker_faults"`
	Interrupted  bool          `json:"interrupted"`
	Duration     time.Duration `json:"duration"`
}

// Status maps a summary onto the ledger lifecycle.
func (s Summary) Status() RunStatus {
	if s.Interrupted {
		return RunStatusInterrupted
	}
	return RunStatusCompleted
}

// ErrorDetail represents an error recorded against a run
type ErrorDetail struct {
	Stage     string    `json:"stage"` // "load", "unit", "worker"
	UnitID    string    `json:"unit_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RunInfo is a run as recorded in the ledger.
type RunInfo struct {
	ID           string     `json:"id"`
	Status       RunStatus  `json:"status"`
	Config       *RunConfig `json:"config,omitempty"`
	Total        int64      `json:"total"`
	Completed    int64      `json:"completed"`
	Failed       int64      `json:"failed"`
	WorkerFaults int        `json:"worker_faults"`
	OutputPath   string     `json:"output_path,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
