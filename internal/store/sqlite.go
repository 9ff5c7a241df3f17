// Package store archives finished runs and their reach ledgers in SQLite
// so runs with different strategies and seeds can be compared later.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/skovsen/D2D_CleanerLogic/internal/monitor"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

// fixed width so started_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run describes one simulation run
type Run struct {
	ID       string
	Scenario string
	Strategy string
	Seed     int64
	Robots   int
	// Duration is the simulated time the run lasted
	Duration  time.Duration
	StartedAt time.Time
}

// RunSummary is a run with its ledger aggregated
type RunSummary struct {
	Run
	Total     int
	Reached   int
	LastReach time.Duration
}

// SQLiteStore keeps runs in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStore opens or creates the database at path.
// Parent directories are created if needed.
func NewSQLiteStore(path string, log zerolog.Logger) (*SQLiteStore, error) {
	log = log.With().Str("component", "store").Logger()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("SQLite store initialized")
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			strategy TEXT NOT NULL,
			seed INTEGER NOT NULL,
			robots INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			started_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reaches (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			initial_owner TEXT NOT NULL,
			reached_by TEXT,
			reached_ms INTEGER,
			PRIMARY KEY (run_id, seq),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its ledger in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, entries []monitor.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, strategy, seed, robots, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Scenario, run.Strategy, run.Seed, run.Robots,
		run.Duration.Milliseconds(), run.StartedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reaches (run_id, seq, x, y, initial_owner, reached_by, reached_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing reach insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		var by, ms any
		if e.Reached() {
			by, ms = e.ReachedBy, e.ReachedAt.Milliseconds()
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, e.Position.X(), e.Position.Y(), e.InitialOwner, by, ms); err != nil {
			return fmt.Errorf("inserting reach %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	s.log.Info().Str("run", run.ID).Int("entries", len(entries)).Msg("run archived")
	return nil
}

// Entries returns the ledger of a run in its original order.
func (s *SQLiteStore) Entries(ctx context.Context, runID string) ([]monitor.Entry, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT x, y, initial_owner, reached_by, reached_ms
		FROM reaches
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying reaches: %w", err)
	}
	defer rows.Close()

	var entries []monitor.Entry
	for rows.Next() {
		var e monitor.Entry
		var x, y float64
		var by sql.NullString
		var ms sql.NullInt64
		if err := rows.Scan(&x, &y, &e.InitialOwner, &by, &ms); err != nil {
			return nil, fmt.Errorf("scanning reach row: %w", err)
		}
		e.Position[0], e.Position[1] = x, y
		if by.Valid {
			e.ReachedBy = by.String
			e.ReachedAt = time.Duration(ms.Int64) * time.Millisecond
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reach rows: %w", err)
	}
	return entries, nil
}

// GetRun returns a single run.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, strategy, seed, robots, duration_ms, started_at
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RunSummaries aggregates every run, newest first. A limit of zero returns all runs.
func (s *SQLiteStore) RunSummaries(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT r.id, r.scenario, r.strategy, r.seed, r.robots, r.duration_ms, r.started_at,
			COUNT(c.seq),
			COUNT(c.reached_by),
			COALESCE(MAX(c.reached_ms), 0)
		FROM runs r
		LEFT JOIN reaches c ON c.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var sum RunSummary
		var lastMs int64
		run, err := scanRun(func(dest ...any) error {
			return rows.Scan(append(dest, &sum.Total, &sum.Reached, &lastMs)...)
		})
		if err != nil {
			return nil, err
		}
		sum.Run = *run
		sum.LastReach = time.Duration(lastMs) * time.Millisecond
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return out, nil
}

// DeleteRun removes a run and its ledger.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// foreign_keys is per connection, do not rely on the cascade
	if _, err := tx.ExecContext(ctx, "DELETE FROM reaches WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("deleting reaches: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

func scanRun(scan func(dest ...any) error) (*Run, error) {
	var run Run
	var durationMs int64
	var startedAt string
	if err := scan(&run.ID, &run.Scenario, &run.Strategy, &run.Seed, &run.Robots, &durationMs, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run row: %w", err)
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond

	var err error
	run.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing run started_at: %w", err)
	}
	return &run, nil
}
