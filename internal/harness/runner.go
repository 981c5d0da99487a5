package harness

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"go-eval-harness/internal/config"
	"go-eval-harness/internal/metrics"
	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/logging"
)

// Runner loads samples and drains them with a fixed number of concurrent workers.
type Runner struct {
	runID    string
	cfg      model.RunConfig
	pipeline Pipeline
	sink     Sink
	ledger   Ledger
	display  Display
	metrics  *metrics.Recorder
	interval time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLedger persists run status and progress.
func WithLedger(l Ledger) Option {
	return func(r *Runner) { r.ledger = l }
}

// WithDisplay renders progress while the run is in flight.
func WithDisplay(d Display) Option {
	return func(r *Runner) { r.display = d }
}

// WithMetrics records prometheus metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithProgressInterval sets how often progress is rendered and persisted.
func WithProgressInterval(d time.Duration) Option {
	return func(r *Runner) { r.interval = d }
}

// NewRunner creates a runner for one run.
func NewRunner(runID string, cfg model.RunConfig, pipeline Pipeline, sink Sink, opts ...Option) *Runner {
	r := &Runner{
		runID:    runID,
		cfg:      cfg,
		pipeline: pipeline,
		sink:     sink,
		interval: time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run gathers every sample, then launches max_concurrency workers against the shared queue
// and waits for all of them. A load error aborts the run before any worker starts. Worker
// panics are logged and do not fail the run; shutdown ends the run early but cleanly.
func (r *Runner) Run(ctx context.Context, shutdown *Shutdown) (model.Summary, error) {
	start := time.Now()
	summary := model.Summary{RunID: r.runID}
	if p, ok := r.sink.(interface{ Path() string }); ok {
		summary.OutputPath = p.Path()
	}

	if r.ledger != nil {
		if err := r.ledger.CreateRun(r.runID, r.cfg); err != nil {
			return summary, fmt.Errorf("create run %s: %w", r.runID, err)
		}
	}
	r.setStatus(model.RunStatusLoading)
	logging.Default.Info("Gathering evaluation samples...")

	queue := NewQueue()
	if _, err := LoadSamples(ctx, queue, r.cfg.Datasets, r.cfg.NumRepetitions); err != nil {
		r.saveError("load", "", err)
		r.setStatus(model.RunStatusFailed)
		return summary, err
	}
	queue.Close()

	total := queue.Len()
	logging.Default.Infof("Gathered %d samples for evaluation", total)
	r.metrics.SetQueued(total)

	progress := NewProgress(int64(total))
	t := newTracker(r.runID, progress, r.display, r.ledger, r.interval)

	r.setStatus(model.RunStatusRunning)
	t.start()
	faults, err := r.dispatch(ctx, queue, shutdown, progress)
	t.stop()
	logging.Default.Info("Shutting down evaluator...")

	snap := progress.Snapshot()
	summary.Total = snap.Total
	summary.Completed = snap.Completed
	summary.Failed = snap.Failed
	summary.WorkerFaults = faults
	summary.Interrupted = (shutdown.IsSet() || ctx.Err() != nil) && snap.Completed < snap.Total
	summary.Duration = time.Since(start)

	if err != nil {
		r.saveError("worker", "", err)
		r.setStatus(model.RunStatusFailed)
		return summary, err
	}
	if r.ledger != nil {
		if err := r.ledger.FinishRun(r.runID, summary); err != nil {
			logging.Default.Warnf("Failed to finish run %s in ledger: %v", r.runID, err)
		}
	}
	return summary, nil
}

// dispatch runs exactly max_concurrency worker loops on a pool of that size and waits for all.
// It returns the number of workers lost to panics.
func (r *Runner) dispatch(ctx context.Context, queue *Queue, shutdown *Shutdown, progress *Progress) (int, error) {
	n := r.cfg.MaxConcurrency
	if n < 1 {
		return 0, fmt.Errorf("max_concurrency must be >= 1, got %d", n)
	}

	pool, err := ants.NewPool(n)
	if err != nil {
		return 0, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	takeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-shutdown.Done():
			cancel()
		case <-takeCtx.Done():
		}
	}()

	initial, max := config.Backoff(r.cfg)
	policy := newRetryPolicy(r.cfg.Worker.MaxAttempts, initial, max)
	poll := config.PollInterval(r.cfg)

	var (
		wg     sync.WaitGroup
		faults atomic.Int32
	)
	for i := 0; i < n; i++ {
		w := &worker{
			id:       i,
			runID:    r.runID,
			queue:    queue,
			shutdown: shutdown,
			progress: progress,
			pipeline: r.pipeline,
			sink:     r.sink,
			ledger:   r.ledger,
			metrics:  r.metrics,
			retry:    policy,
			poll:     poll,
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					faults.Add(1)
					r.metrics.WorkerFault()
					logging.Default.Errorf("Worker %d crashed: %v\n%s", w.id, p, debug.Stack())
					r.saveError("worker", "", fmt.Errorf("worker-%d panic: %v", w.id, p))
				}
			}()
			w.run(ctx, takeCtx)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			faults.Add(1)
			logging.Default.Errorf("Failed to start worker %d: %v", i, err)
		}
	}
	wg.Wait()
	return int(faults.Load()), nil
}

func (r *Runner) setStatus(status model.RunStatus) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.UpdateRunStatus(r.runID, status); err != nil {
		logging.Default.Warnf("Failed to update run %s to %s: %v", r.runID, status, err)
	}
}

func (r *Runner) saveError(stage, unitID string, err error) {
	if r.ledger == nil {
		return
	}
	detail := model.ErrorDetail{Stage: stage, UnitID: unitID, Message: err.Error(), Timestamp: time.Now().UTC()}
	if e := r.ledger.SaveRunError(r.runID, detail); e != nil {
		logging.Default.Warnf("Failed to save error for run %s: %v", r.runID, e)
	}
}
