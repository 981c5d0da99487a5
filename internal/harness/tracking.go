package harness

import (
	"context"
	"sync"
	"time"

	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/logging"
)

// Ledger persists run lifecycle and progress. Implemented by store.Store.
type Ledger interface {
	CreateRun(runID string, cfg model.RunConfig) error
	UpdateRunStatus(runID string, status model.RunStatus) error
	UpdateRunProgress(runID string, snap model.ProgressSnapshot) error
	SaveRunError(runID string, detail model.ErrorDetail) error
	FinishRun(runID string, summary model.Summary) error
}

// tracker periodically pushes progress to the display and the ledger.
type tracker struct {
	runID    string
	progress *Progress
	display  Display
	ledger   Ledger
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newTracker(runID string, p *Progress, display Display, ledger Ledger, interval time.Duration) *tracker {
	if interval <= 0 {
		interval = time.Second
	}
	return &tracker{
		runID:    runID,
		progress: p,
		display:  display,
		ledger:   ledger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (t *tracker) start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.loop(ctx)
}

func (t *tracker) loop(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.flush(false)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.flush(false)
		}
	}
}

// stop halts the loop and emits the final state.
func (t *tracker) stop() {
	t.once.Do(func() {
		if t.cancel != nil {
			t.cancel()
			<-t.done
		}
		t.flush(true)
	})
}

func (t *tracker) flush(final bool) {
	snap := t.progress.Snapshot()
	if t.display != nil {
		if final {
			t.display.Finish(snap)
		} else {
			t.display.Render(snap)
		}
	}
	if t.ledger != nil {
		if err := t.ledger.UpdateRunProgress(t.runID, snap); err != nil {
			logging.Default.Warnf("Failed to save progress for run %s: %v", t.runID, err)
		}
	}
}
