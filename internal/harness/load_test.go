package harness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-eval-harness/internal/model"
)

func writeDataset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drain(t *testing.T, q *Queue) []model.Unit {
	t.Helper()
	q.Close()
	var units []model.Unit
	for {
		u, err := q.Take(context.Background(), time.Millisecond)
		if errors.Is(err, ErrQueueClosed) {
			return units
		}
		require.NoError(t, err)
		units = append(units, u)
	}
}

func TestLoadSamplesScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeDataset(t, dir, "ds.json", `[
		{"status":"ACTIVE","expected_output":"42","attachments":[]},
		{"status":"ARCHIVED","expected_output":"x"}
	]`)

	q := NewQueue()
	n, err := LoadSamples(context.Background(), q, []model.DatasetConfig{{Name: path}}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	units := drain(t, q)
	require.Len(t, units, 2)
	for i, u := range units {
		assert.Equal(t, 0, u.Index)
		assert.Equal(t, i, u.Repetition)
		assert.Equal(t, "42", u.Item.ExpectedOutput)
		assert.Equal(t, model.CriteriaWithReference, u.Criteria)
	}
	assert.NotEqual(t, units[0].ID, units[1].ID)
}

func TestLoadSamplesRepetitionsAreIndependent(t *testing.T) {
	dir := t.TempDir()
	path := writeDataset(t, dir, "ds.json", `[
		{"status":"ACTIVE","expected_output":{"rows":[1,2]},"attachments":["a.csv"]},
		{"status":"ACTIVE","expected_output":"b"},
		{"status":"ACTIVE","expected_output":""}
	]`)

	q := NewQueue()
	n, err := LoadSamples(context.Background(), q, []model.DatasetConfig{{Name: path}}, 3)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	units := drain(t, q)
	require.Len(t, units, 9)

	// consecutive repetitions of the first record
	units[0].Attachments[0] = "mutated.csv"
	units[0].Item.Fields["status"] = "MUTATED"
	units[0].Item.ExpectedOutput.(map[string]interface{})["rows"] = nil

	for _, u := range units[1:3] {
		assert.Equal(t, 0, u.Index)
		assert.Equal(t, "a.csv", u.Attachments[0])
		assert.Equal(t, "ACTIVE", u.Item.Fields["status"])
		assert.Equal(t, []interface{}{float64(1), float64(2)}, u.Item.ExpectedOutput.(map[string]interface{})["rows"])
	}
	assert.Equal(t, 1, units[3].Index)
	assert.Equal(t, 2, units[8].Index)
}

func TestLoadSamplesDatasetsInDeclaredOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeDataset(t, dir, "a.json", `[{"status":"ACTIVE","expected_output":"a"}]`)
	b := writeDataset(t, dir, "b.json", `[{"status":"ACTIVE","expected_output":"b"}]`)

	q := NewQueue()
	_, err := LoadSamples(context.Background(), q, []model.DatasetConfig{{Name: b}, {Name: a}}, 1)
	require.NoError(t, err)

	units := drain(t, q)
	require.Len(t, units, 2)
	assert.Equal(t, b, units[0].Dataset)
	assert.Equal(t, a, units[1].Dataset)
}

func TestLoadSamplesArchivedWithoutReference(t *testing.T) {
	path := writeDataset(t, t.TempDir(), "ds.json", `[{"status":"ACTIVE","expected_output":"42"},{"status":"ARCHIVED"}]`)

	q := NewQueue()
	n, err := LoadSamples(context.Background(), q, []model.DatasetConfig{{Name: path}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	units := drain(t, q)
	require.Len(t, units, 1)
	assert.Equal(t, 0, units[0].Index)
	assert.Equal(t, "42", units[0].Item.ExpectedOutput)
}

func TestLoadSamplesErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeDataset(t, dir, "good.json", `[{"status":"ACTIVE","expected_output":"a"}]`)
	malformed := writeDataset(t, dir, "bad.json", `[{"status":"ACTIVE",`)
	notArray := writeDataset(t, dir, "obj.json", `{"status":"ACTIVE","expected_output":"a"}`)
	missing := writeDataset(t, dir, "missing.json", `[{"status":"ACTIVE","expected_output":"a"},{"status":"ACTIVE"}]`)

	tests := []struct {
		name   string
		source string
		check  func(t *testing.T, err error)
	}{
		{"malformed JSON", malformed, nil},
		{"not an array", notArray, nil},
		{"file missing", filepath.Join(dir, "nope.json"), func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, os.ErrNotExist))
		}},
		{"missing field", missing, func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, model.ErrMissingField))
			var fe *model.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, 1, fe.Index)
			assert.Equal(t, "expected_output", fe.Field)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue()
			_, err := LoadSamples(context.Background(), q, []model.DatasetConfig{{Name: good}, {Name: tt.source}}, 1)
			require.Error(t, err)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.source, le.Dataset)
			assert.Zero(t, q.Len())
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestLoadSamplesRejectsZeroRepetitions(t *testing.T) {
	_, err := LoadSamples(context.Background(), NewQueue(), nil, 0)
	assert.Error(t, err)
}
