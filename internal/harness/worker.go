package harness

import (
	"context"
	"errors"
	"time"

	"go-eval-harness/internal/metrics"
	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/logging"
)

// Pipeline evaluates one unit: it invokes the evaluatee and scores its output.
type Pipeline interface {
	Evaluate(ctx context.Context, unit model.Unit) (model.Verdict, error)
}

// Sink receives exactly one result per completed unit. Implementations must be safe for concurrent use.
type Sink interface {
	Append(result model.Result) error
}

// worker pulls units from the shared queue until it drains or shutdown is raised.
type worker struct {
	id       int
	runID    string
	queue    *Queue
	shutdown *Shutdown
	progress *Progress
	pipeline Pipeline
	sink     Sink
	ledger   Ledger
	metrics  *metrics.Recorder
	retry    retryPolicy
	poll     time.Duration
}

// run is the worker loop. ctx bounds evaluation calls; takeCtx additionally ends when
// shutdown is raised so a waiting Take wakes immediately.
func (w *worker) run(ctx, takeCtx context.Context) {
	processed := 0
	defer func() {
		logging.Default.Debugf("Worker %d exiting after %d units", w.id, processed)
	}()

	for {
		if w.shutdown.IsSet() || ctx.Err() != nil {
			return
		}

		unit, err := w.queue.Take(takeCtx, w.poll)
		switch {
		case err == nil:
		case errors.Is(err, ErrQueueEmpty):
			continue
		case errors.Is(err, ErrQueueClosed):
			return
		default:
			return
		}

		result := w.process(ctx, unit)
		if err := w.sink.Append(result); err != nil {
			logging.Default.Errorf("Worker %d failed to record result for %s: %v", w.id, unit.ID, err)
			w.saveError("sink", unit.ID, err)
		}
		w.progress.Inc(result.Failed())
		w.metrics.ObserveUnit(string(result.Status), time.Duration(result.DurationMs)*time.Millisecond)
		processed++
	}
}

// process evaluates a unit and turns any evaluation error into a recorded outcome.
func (w *worker) process(ctx context.Context, unit model.Unit) model.Result {
	w.metrics.InFlight(1)
	defer w.metrics.InFlight(-1)

	start := time.Now()
	verdict, attempts, err := w.retry.do(ctx, func(ctx context.Context) (model.Verdict, error) {
		return w.pipeline.Evaluate(ctx, unit)
	})

	result := model.Result{
		RunID:      w.runID,
		UnitID:     unit.ID,
		Dataset:    unit.Dataset,
		Index:      unit.Index,
		Repetition: unit.Repetition,
		Criteria:   unit.Criteria.Name,
		Item:       unit.Item,
		Attempts:   attempts,
		WorkerID:   w.id,
		StartedAt:  start.UTC(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		logging.Default.Warnf("Worker %d: evaluation of %s failed after %d attempt(s): %v", w.id, unit.ID, attempts, err)
		result.Status = model.EvalStatusError
		result.Error = err.Error()
		result.Output = verdict.Output
		w.saveError("unit", unit.ID, err)
		return result
	}

	result.Output = verdict.Output
	result.Status = verdict.Status
	result.Score = verdict.Score
	result.Rationale = verdict.Rationale
	if result.Status == "" {
		result.Status = model.EvalStatusNotEvaluated
	}
	return result
}

func (w *worker) saveError(stage, unitID string, err error) {
	if w.ledger == nil {
		return
	}
	detail := model.ErrorDetail{
		Stage:     stage,
		UnitID:    unitID,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
	if e := w.ledger.SaveRunError(w.runID, detail); e != nil {
		logging.Default.Warnf("Failed to save error for run %s: %v", w.runID, e)
	}
}
