// Package sink writes evaluation results to disk.
package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/logging"
	"go-eval-harness/pkg/utils"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("sink closed")

// JSONL appends one JSON object per line. Safe for concurrent use.
type JSONL struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	w     *bufio.Writer
	count int
}

// Open creates the result file for a run under outputDir.
func Open(outputDir, runID string, startedAt time.Time) (*JSONL, error) {
	path, err := utils.NewOutputManager(outputDir).ResultFilePath(runID, startedAt)
	if err != nil {
		return nil, err
	}
	return OpenFile(path)
}

// OpenFile appends to path, creating it if needed.
func OpenFile(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open result file: %w", err)
	}
	logging.Default.Infof("Writing results to %s", path)
	return &JSONL{path: path, file: f, w: bufio.NewWriter(f)}, nil
}

// Append writes a result as one line and flushes it.
func (s *JSONL) Append(result model.Result) error {
	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", result.UnitID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ErrClosed
	}
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write result %s: %w", result.UnitID, err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush result %s: %w", result.UnitID, err)
	}
	s.count++
	return nil
}

// Path returns the result file path.
func (s *JSONL) Path() string { return s.path }

// Count returns the number of lines written.
func (s *JSONL) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close flushes and closes the file. It is safe to call more than once.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
