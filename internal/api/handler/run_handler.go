package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go-eval-harness/internal/model"
	"go-eval-harness/internal/store"
	"go-eval-harness/pkg/logging"
)

const runsPrefix = "/api/v1/runs/"

// RunReader is the read side of the run ledger.
type RunReader interface {
	ListRuns(limit int) ([]model.RunInfo, error)
	GetRun(runID string) (model.RunInfo, error)
	ListRunErrors(runID string) ([]model.ErrorDetail, error)
}

// RunHandler serves the run ledger over HTTP.
type RunHandler struct {
	Runs RunReader
}

// ListRuns retrieves recorded evaluation runs
// @Summary List runs
// @Description Get recorded evaluation runs, newest first
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum number of runs"
// @Success 200 {array} model.RunInfo "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.Runs.ListRuns(limit)
	if err != nil {
		logging.Default.Errorf("List runs: %v", err)
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// GetRun retrieves a specific run
// @Summary Get run
// @Description Retrieve status, counters and configuration of a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunInfo "Run details"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r.URL.Path, "")
	if !ok {
		return
	}
	run, ok := h.lookup(w, runID)
	if !ok {
		return
	}
	writeJSON(w, run)
}

// GetRunErrors retrieves errors recorded for a run
// @Summary Get run errors
// @Description Retrieve load, unit and worker errors recorded during a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run errors"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/errors [get]
func (h *RunHandler) GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r.URL.Path, "/errors")
	if !ok {
		return
	}
	if _, ok := h.lookup(w, runID); !ok {
		return
	}

	details, err := h.Runs.ListRunErrors(runID)
	if err != nil {
		logging.Default.Errorf("List errors for run %s: %v", runID, err)
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"run_id": runID,
		"errors": details,
		"count":  len(details),
	})
}

// DownloadResults serves the JSONL result file of a finished run
// @Summary Download run results
// @Description Download the JSONL result file written by a run
// @Tags runs
// @Produce application/x-ndjson
// @Param id path string true "Run ID"
// @Success 200 {file} file "Result file"
// @Failure 404 {object} map[string]interface{} "Run or file not found"
// @Router /runs/{id}/results [get]
func (h *RunHandler) DownloadResults(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r.URL.Path, "/results")
	if !ok {
		return
	}
	run, ok := h.lookup(w, runID)
	if !ok {
		return
	}
	if run.OutputPath == "" {
		http.Error(w, "Run has no result file", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(run.OutputPath); os.IsNotExist(err) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(run.OutputPath)))
	w.Header().Set("Content-Type", "application/x-ndjson")
	http.ServeFile(w, r, run.OutputPath)
}

func (h *RunHandler) lookup(w http.ResponseWriter, runID string) (model.RunInfo, bool) {
	run, err := h.Runs.GetRun(runID)
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return model.RunInfo{}, false
	}
	if err != nil {
		logging.Default.Errorf("Get run %s: %v", runID, err)
		http.Error(w, "Failed to retrieve run", http.StatusInternalServerError)
		return model.RunInfo{}, false
	}
	return run, true
}

// runIDFromPath extracts the id from /api/v1/runs/{id}<suffix>.
func runIDFromPath(w http.ResponseWriter, path, suffix string) (string, bool) {
	if !strings.HasPrefix(path, runsPrefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}
	runID := path[len(runsPrefix) : len(path)-len(suffix)]
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return "", false
	}
	return runID, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default.Warnf("Encode response: %v", err)
	}
}
