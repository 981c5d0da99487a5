package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-eval-harness/internal/model"
)

func TestAggregateByRecordPoolsRepetitions(t *testing.T) {
	rows := []Row{
		{Dataset: "a", Index: 0, Repetition: 0, Status: model.EvalStatusPassed, Score: 1, DurationMs: 10},
		{Dataset: "a", Index: 0, Repetition: 1, Status: model.EvalStatusFailed, Score: 0.2, DurationMs: 30},
		{Dataset: "a", Index: 1, Repetition: 0, Status: model.EvalStatusNotEvaluated},
		{Dataset: "a", Index: 1, Repetition: 1, Status: model.EvalStatusError},
	}

	groups, err := Aggregate(rows, GroupByRecord)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	first := groups[0]
	assert.Equal(t, "a#0", first.GroupValue)
	assert.Equal(t, 2, first.RecordCount)
	assert.InDelta(t, 0.5, first.PassRate, 1e-9)
	assert.InDelta(t, 0.6, first.MeanScore, 1e-9)
	assert.Equal(t, 0.2, first.MinScore)
	assert.Equal(t, 1.0, first.MaxScore)
	assert.Equal(t, 20.0, first.MeanLatencyMs)

	second := groups[1]
	assert.Equal(t, 1, second.StatusCounts[model.EvalStatusError])
	assert.Equal(t, 1, second.StatusCounts[model.EvalStatusNotEvaluated])
	assert.Zero(t, second.PassRate)
	assert.Zero(t, second.MinScore)
}

func TestAggregateByDataset(t *testing.T) {
	rows := []Row{
		{Dataset: "b", Status: model.EvalStatusPassed, Score: 1},
		{Dataset: "a", Status: model.EvalStatusPassed, Score: 1},
		{Dataset: "b", Status: model.EvalStatusFailed},
	}
	groups, err := Aggregate(rows, "Dataset")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[0].GroupValue)
	assert.Equal(t, 2, groups[1].RecordCount)
}

func TestAggregateUnknownGroup(t *testing.T) {
	_, err := Aggregate(nil, "color")
	assert.Error(t, err)
}

func TestReadResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.jsonl")
	content := `{"unit_id":"a#0/0","dataset":"a","index":0,"status":"passed","score":1,"item":{"status":"ACTIVE"}}

{"unit_id":"a#0/1","dataset":"a","index":0,"repetition":1,"status":"error","error":"timeout"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadResults(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.EvalStatusError, rows[1].Status)
	assert.Equal(t, 1, rows[1].Repetition)

	require.NoError(t, os.WriteFile(path, []byte("{broken\n"), 0o644))
	_, err = ReadResults(path)
	assert.ErrorContains(t, err, ":1:")
}
