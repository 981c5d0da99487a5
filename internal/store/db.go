package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-eval-harness/internal/model"
)

// ErrRunNotFound is returned when a run id is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// Store is the sqlite run ledger.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the ledger at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// workers write errors concurrently; a single connection serializes them
	db.SetMaxOpenConns(1)

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		config TEXT,
		status TEXT,
		total INTEGER DEFAULT 0,
		completed INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		worker_faults INTEGER DEFAULT 0,
		output_path TEXT DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME,
		finished_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stage TEXT,
		unit_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, errorTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create ledger tables: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun stores a new pending run
func (s *Store) CreateRun(runID string, cfg model.RunConfig) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(`INSERT INTO runs (id, config, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, cfgJSON, model.RunStatusPending, now, now)
	return err
}

// UpdateRunStatus updates run status
func (s *Store) UpdateRunStatus(runID string, status model.RunStatus) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// UpdateRunProgress records the latest counters.
func (s *Store) UpdateRunProgress(runID string, snap model.ProgressSnapshot) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE runs SET total = ?, completed = ?, failed = ?, updated_at = ? WHERE id = ?`,
		snap.Total, snap.Completed, snap.Failed, now, runID)
	return err
}

// SaveRunError records an error for a run
func (s *Store) SaveRunError(runID string, detail model.ErrorDetail) error {
	ts := detail.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO run_errors (run_id, stage, unit_id, error_message, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, detail.Stage, detail.UnitID, detail.Message, ts)
	return err
}

// FinishRun stores the final counters and status.
func (s *Store) FinishRun(runID string, summary model.Summary) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE runs SET status = ?, total = ?, completed = ?, failed = ?, worker_faults = ?,
		output_path = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		summary.Status(), summary.Total, summary.Completed, summary.Failed, summary.WorkerFaults,
		summary.OutputPath, now, now, runID)
	return err
}

// ListRuns returns the most recent runs first. limit <= 0 returns all of them.
func (s *Store) ListRuns(limit int) ([]model.RunInfo, error) {
	query := `SELECT id, status, total, completed, failed, worker_faults, output_path, created_at, updated_at, finished_at
		FROM runs ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.RunInfo{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run with its config
func (s *Store) GetRun(runID string) (model.RunInfo, error) {
	row := s.db.QueryRow(`SELECT id, status, total, completed, failed, worker_faults, output_path, created_at, updated_at, finished_at, config
		FROM runs WHERE id = ?`, runID)

	var cfgJSON string
	run, err := scanRun(row, &cfgJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunInfo{}, ErrRunNotFound
	}
	if err != nil {
		return model.RunInfo{}, err
	}

	var cfg model.RunConfig
	if err := json.Unmarshal([]byte(cfgJSON), &cfg); err != nil {
		return model.RunInfo{}, fmt.Errorf("decode run config: %w", err)
	}
	run.Config = &cfg
	return run, nil
}

// ListRunErrors returns the errors recorded for a run, oldest first.
func (s *Store) ListRunErrors(runID string) ([]model.ErrorDetail, error) {
	rows, err := s.db.Query(`SELECT stage, unit_id, error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []model.ErrorDetail{}
	for rows.Next() {
		var d model.ErrorDetail
		if err := rows.Scan(&d.Stage, &d.UnitID, &d.Message, &d.Timestamp); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner, extra ...interface{}) (model.RunInfo, error) {
	var (
		run      model.RunInfo
		status   string
		finished sql.NullTime
	)
	dest := []interface{}{&run.ID, &status, &run.Total, &run.Completed, &run.Failed, &run.WorkerFaults,
		&run.OutputPath, &run.CreatedAt, &run.UpdatedAt, &finished}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return model.RunInfo{}, err
	}
	run.Status = model.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}
