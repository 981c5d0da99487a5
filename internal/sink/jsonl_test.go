package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-eval-harness/internal/model"
)

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestOpenNamesFileByRunAndStart(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "run-7", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, filepath.Join(dir, "run-7", "eval_run_20260102_030405.jsonl"), s.Path())
}

func TestJSONLConcurrentAppend(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "results.jsonl"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(model.Result{
				RunID:  "run",
				UnitID: fmt.Sprintf("ds#%d/0", i),
				Index:  i,
				Status: model.EvalStatusPassed,
			}))
		}(i)
	}
	wg.Wait()
	require.NoError(t, s.Close())
	assert.Equal(t, 100, s.Count())

	lines := readLines(t, s.Path())
	require.Len(t, lines, 100)
	seen := make(map[string]bool)
	for _, l := range lines {
		seen[l["unit_id"].(string)] = true
		assert.Equal(t, "passed", l["status"])
	}
	assert.Len(t, seen, 100)
}

func TestJSONLKeepsItemFields(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "results.jsonl"))
	require.NoError(t, err)

	var rec model.Record
	require.NoError(t, json.Unmarshal([]byte(`{"status":"ACTIVE","expected_output":"42","input":"q"}`), &rec))
	require.NoError(t, s.Append(model.Result{UnitID: "u", Item: rec, Status: model.EvalStatusError, Error: "timeout"}))
	require.NoError(t, s.Close())

	lines := readLines(t, s.Path())
	require.Len(t, lines, 1)
	item := lines[0]["item"].(map[string]interface{})
	assert.Equal(t, "q", item["input"])
	assert.Equal(t, "timeout", lines[0]["error"])
}

func TestJSONLClose(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "results.jsonl"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Append(model.Result{UnitID: "late"}), ErrClosed)
}
