// Package state persists run history in a project-local SQLite
// database (.loom/loom.db): one row per run, one row per node result.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loomwork/loom/pkg/models"
)

// Store wraps the SQLite connection with loom's run-history operations.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// DBPath returns the project-local database path.
func DBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".loom", "loom.db")
}

// Open opens the database at path, creating parent directories and
// applying migrations. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// OpenProject opens the project-local database under projectRoot.
func OpenProject(projectRoot string) (*Store, error) {
	return Open(DBPath(projectRoot))
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		stmts   []string
	}{
		{
			version: 1,
			stmts: []string{
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					query TEXT NOT NULL DEFAULT '',
					plan_path TEXT NOT NULL DEFAULT '',
					started_at DATETIME NOT NULL,
					finished_at DATETIME,
					succeeded INTEGER,
					rounds INTEGER NOT NULL DEFAULT 0,
					tokens_in INTEGER NOT NULL DEFAULT 0,
					tokens_out INTEGER NOT NULL DEFAULT 0,
					cost_usd REAL NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE IF NOT EXISTS results (
					run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					node_id TEXT NOT NULL,
					success INTEGER NOT NULL,
					output TEXT NOT NULL DEFAULT '',
					error TEXT NOT NULL DEFAULT '',
					profile TEXT NOT NULL DEFAULT '',
					attempts INTEGER NOT NULL DEFAULT 0,
					duration_ms INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (run_id, node_id)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id)`,
			},
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := s.conn.Exec(stmt); err != nil {
				return fmt.Errorf("migration %d: %w", m.version, err)
			}
		}
		if _, err := s.conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// RunRecord is one row of run history.
type RunRecord struct {
	ID         string
	Query      string
	PlanPath   string
	StartedAt  time.Time
	FinishedAt *time.Time
	Succeeded  *bool
	Rounds     int
	TokensIn   int64
	TokensOut  int64
	CostUSD    float64
}

// StartRun records the beginning of a run.
func (s *Store) StartRun(runID, query, planPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		"INSERT INTO runs (id, query, plan_path, started_at) VALUES (?, ?, ?, ?)",
		runID, query, planPath, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// FinishRun records a run's terminal state and accounting totals.
func (s *Store) FinishRun(runID string, succeeded bool, rounds int, tokensIn, tokensOut int64, costUSD float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		`UPDATE runs SET finished_at = ?, succeeded = ?, rounds = ?,
			tokens_in = ?, tokens_out = ?, cost_usd = ? WHERE id = ?`,
		time.Now().UTC(), succeeded, rounds, tokensIn, tokensOut, costUSD, runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// SaveResults records every node result for a run in one transaction.
func (s *Store) SaveResults(runID string, results map[string]*models.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin results transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO results
		(run_id, node_id, success, output, error, profile, attempts, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare results insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.Exec(
			runID, r.NodeID, r.Success, r.Output, r.Error,
			r.Profile, r.Attempts, r.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("insert result for %s: %w", r.NodeID, err)
		}
	}
	return tx.Commit()
}

// Run returns one run record by ID.
func (s *Store) Run(runID string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.conn.QueryRow(
		`SELECT id, query, plan_path, started_at, finished_at, succeeded,
			rounds, tokens_in, tokens_out, cost_usd FROM runs WHERE id = ?`, runID)

	var r RunRecord
	var finished sql.NullTime
	var succeeded sql.NullBool
	if err := row.Scan(&r.ID, &r.Query, &r.PlanPath, &r.StartedAt, &finished,
		&succeeded, &r.Rounds, &r.TokensIn, &r.TokensOut, &r.CostUSD); err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	if succeeded.Valid {
		r.Succeeded = &succeeded.Bool
	}
	return &r, nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(
		`SELECT id, query, plan_path, started_at, finished_at, succeeded,
			rounds, tokens_in, tokens_out, cost_usd
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		var r RunRecord
		var finished sql.NullTime
		var succeeded sql.NullBool
		if err := rows.Scan(&r.ID, &r.Query, &r.PlanPath, &r.StartedAt, &finished,
			&succeeded, &r.Rounds, &r.TokensIn, &r.TokensOut, &r.CostUSD); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		if succeeded.Valid {
			r.Succeeded = &succeeded.Bool
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Results loads every node result recorded for a run.
func (s *Store) Results(runID string) (map[string]*models.ExecutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(
		`SELECT node_id, success, output, error, profile, attempts, duration_ms
		FROM results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("load results for %s: %w", runID, err)
	}
	defer rows.Close()

	out := make(map[string]*models.ExecutionResult)
	for rows.Next() {
		var r models.ExecutionResult
		var durationMS int64
		if err := rows.Scan(&r.NodeID, &r.Success, &r.Output, &r.Error,
			&r.Profile, &r.Attempts, &durationMS); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out[r.NodeID] = &r
	}
	return out, rows.Err()
}
