package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ResultFileLayout is the timestamp layout used in result file names.
const ResultFileLayout = "20060102_150405"

// OutputManager handles output file organization and path management
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	if baseOutputDir == "" {
		baseOutputDir = "outputs"
	}
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// CreateRunOutputDir creates the directory holding a run's outputs
func (om *OutputManager) CreateRunOutputDir(runID string) (string, error) {
	runDir := filepath.Join(om.BaseOutputDir, filepath.Base(runID))

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run output directory: %w", err)
	}
	return runDir, nil
}

// ResultFilePath returns <base>/<run_id>/eval_run_<UTC start>.jsonl, creating the run directory.
func (om *OutputManager) ResultFilePath(runID string, startedAt time.Time) (string, error) {
	runDir, err := om.CreateRunOutputDir(runID)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("eval_run_%s.jsonl", startedAt.UTC().Format(ResultFileLayout))
	return filepath.Join(runDir, name), nil
}

// GetFileSize returns the size of a file in bytes
func (om *OutputManager) GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}
