package model

import "time"

// EvalStatus represents the outcome of one unit.
type EvalStatus string

const (
	// EvalStatusPassed means the evaluator accepted the evaluatee's output.
	EvalStatusPassed EvalStatus = "passed"
	// EvalStatusFailed means the evaluator rejected the evaluatee's output.
	EvalStatusFailed EvalStatus = "failed"
	// EvalStatusNotEvaluated means the evaluator could not judge the output.
	EvalStatusNotEvaluated EvalStatus = "not_evaluated"
	// EvalStatusError means the evaluatee or evaluator call failed.
	EvalStatusError EvalStatus = "error"
)

// Verdict is what the evaluatee+evaluator pipeline produces for a unit.
type Verdict struct {
	Output    string     `json:"output"`
	Status    EvalStatus `json:"status"`
	Score     float64    `json:"score"`
	Rationale string     `json:"rationale,omitempty"`
}

// Result is the record appended to the result sink once per completed unit.
type Result struct {
	RunID      string     `json:"run_id"`
	UnitID     string     `json:"unit_id"`
	Dataset    string     `json:"dataset"`
	Index      int        `json:"index"`
	Repetition int        `json:"repetition"`
	Criteria   string     `json:"criteria"`
	Item       Record     `json:"item"`
	Output     string     `json:"output,omitempty"`
	Status     EvalStatus `json:"status"`
	Score      float64    `json:"score"`
	Rationale  string     `json:"rationale,omitempty"`
	Error      string     `json:"error,omitempty"`
	Attempts   int        `json:"attempts"`
	WorkerID   int        `json:"worker_id"`
	StartedAt  time.Time  `json:"started_at"`
	DurationMs int64      `json:"duration_ms"`
}

// Failed reports whether the unit ended without a passing verdict.
func (r Result) Failed() bool {
	return r.Status != EvalStatusPassed
}
