package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/logging"
)

// LoadError reports a dataset that could not be read, parsed or decoded.
type LoadError struct {
	Dataset string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Dataset, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadSamples reads every dataset in declared order and enqueues each constructed unit
// reps times consecutively. Each enqueued copy owns its data. Every dataset is parsed before
// the first Put, so a failing dataset aborts the load with nothing enqueued.
func LoadSamples(ctx context.Context, q *Queue, sources []model.DatasetConfig, reps int) (int, error) {
	if reps < 1 {
		return 0, fmt.Errorf("num_repetitions must be >= 1, got %d", reps)
	}

	var staged []model.Unit
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		logging.Default.Debugf("Gathering samples from dataset: %s", src.Name)

		records, err := readDataset(src.Name)
		if err != nil {
			return 0, &LoadError{Dataset: src.Name, Err: err}
		}
		units := ConstructSamples(src.Name, records)
		logging.Default.Debugf("Gathered %d samples from dataset %s", len(units), src.Name)
		staged = append(staged, units...)
	}

	enqueued := 0
	for _, unit := range staged {
		for rep := 0; rep < reps; rep++ {
			cp := unit.Clone()
			cp.Repetition = rep
			cp.ID = fmt.Sprintf("%s/%d", unit.ID, rep)
			if err := q.Put(cp); err != nil {
				return enqueued, err
			}
			enqueued++
		}
	}
	return enqueued, nil
}

// readDataset reads a file holding a JSON array of records.
func readDataset(path string) ([]model.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("decode JSON array: %w", err)
	}

	records := make([]model.Record, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &records[i]); err != nil {
			var fe *model.FieldError
			if errors.As(err, &fe) {
				fe.Index = i
				return nil, fe
			}
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}
