// Package report aggregates result files into per-group statistics.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"go-eval-harness/internal/model"
)

// Group-by keys understood by Aggregate.
const (
	GroupByDataset  = "dataset"
	GroupByCriteria = "criteria"
	GroupByRecord   = "record" // dataset + record index, pooling repetitions
	GroupByWorker   = "worker"
)

// Row is the subset of a result line used for aggregation.
type Row struct {
	UnitID     string           `json:"unit_id"`
	Dataset    string           `json:"dataset"`
	Index      int              `json:"index"`
	Repetition int              `json:"repetition"`
	Criteria   string           `json:"criteria"`
	Status     model.EvalStatus `json:"status"`
	Score      float64          `json:"score"`
	WorkerID   int              `json:"worker_id"`
	DurationMs int64            `json:"duration_ms"`
}

// AggregatedResult holds the statistics of one group.
type AggregatedResult struct {
	GroupKey      string                   `json:"group_key"`
	GroupValue    string                   `json:"group_value"`
	RecordCount   int                      `json:"record_count"`
	StatusCounts  map[model.EvalStatus]int `json:"status_counts"`
	PassRate      float64                  `json:"pass_rate"`
	MeanScore     float64                  `json:"mean_score"`
	MinScore      float64                  `json:"min_score"`
	MaxScore      float64                  `json:"max_score"`
	MeanLatencyMs float64                  `json:"mean_latency_ms"`

	scoreSum, latencySum float64
	scored               int
}

// ReadResults reads a JSONL result file.
func ReadResults(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []Row
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		if len(strings.TrimSpace(sc.Text())) == 0 {
			continue
		}
		var row Row
		if err := json.Unmarshal(sc.Bytes(), &row); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		rows = append(rows, row)
	}
	return rows, sc.Err()
}

// Aggregate groups rows by groupBy and computes per-group statistics, sorted by group value.
// Units that were not evaluated or errored do not contribute to score statistics.
func Aggregate(rows []Row, groupBy string) ([]AggregatedResult, error) {
	keyOf, err := groupKeyFunc(groupBy)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*AggregatedResult)
	for _, row := range rows {
		value := keyOf(row)
		result, exists := groups[value]
		if !exists {
			result = &AggregatedResult{
				GroupKey:     groupBy,
				GroupValue:   value,
				StatusCounts: make(map[model.EvalStatus]int),
				MinScore:     math.Inf(1),
				MaxScore:     math.Inf(-1),
			}
			groups[value] = result
		}
		updateMetrics(result, row)
	}

	out := make([]AggregatedResult, 0, len(groups))
	for _, result := range groups {
		finalize(result)
		out = append(out, *result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupValue < out[j].GroupValue })
	return out, nil
}

func groupKeyFunc(groupBy string) (func(Row) string, error) {
	switch strings.ToLower(groupBy) {
	case GroupByDataset:
		return func(r Row) string { return r.Dataset }, nil
	case GroupByCriteria:
		return func(r Row) string { return r.Criteria }, nil
	case GroupByRecord:
		return func(r Row) string { return fmt.Sprintf("%s#%d", r.Dataset, r.Index) }, nil
	case GroupByWorker:
		return func(r Row) string { return fmt.Sprintf("worker-%d", r.WorkerID) }, nil
	default:
		return nil, fmt.Errorf("unknown group-by %q", groupBy)
	}
}

func updateMetrics(result *AggregatedResult, row Row) {
	result.RecordCount++
	result.StatusCounts[row.Status]++
	result.latencySum += float64(row.DurationMs)

	if row.Status != model.EvalStatusPassed && row.Status != model.EvalStatusFailed {
		return
	}
	result.scored++
	result.scoreSum += row.Score
	result.MinScore = math.Min(result.MinScore, row.Score)
	result.MaxScore = math.Max(result.MaxScore, row.Score)
}

func finalize(result *AggregatedResult) {
	if result.RecordCount > 0 {
		result.MeanLatencyMs = result.latencySum / float64(result.RecordCount)
	}
	if result.scored == 0 {
		result.MinScore, result.MaxScore = 0, 0
		return
	}
	result.MeanScore = result.scoreSum / float64(result.scored)
	result.PassRate = float64(result.StatusCounts[model.EvalStatusPassed]) / float64(result.scored)
}
