// Package sqlite provides a SQLite-backed store.Store using the
// github.com/mattn/go-sqlite3 driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/mizan/core"
	"github.com/hupe1980/mizan/runner"
	"github.com/hupe1980/mizan/store"
)

// Compile-time assertion.
var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	task_id     TEXT NOT NULL,
	model_name  TEXT NOT NULL,
	language    TEXT NOT NULL,
	status      TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	generations INTEGER NOT NULL DEFAULT 0,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_task_id ON runs (task_id, started_at);
CREATE TABLE IF NOT EXISTS turns (
	run_id      TEXT NOT NULL REFERENCES runs (run_id) ON DELETE CASCADE,
	idx         INTEGER NOT NULL,
	prompt      TEXT NOT NULL,
	response    TEXT NOT NULL,
	reference   TEXT,
	scored      INTEGER NOT NULL DEFAULT 0,
	scores      TEXT,
	score_error TEXT NOT NULL DEFAULT '',
	duration_ns INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, idx)
);`

// Store implements store.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dsn and applies the schema.
// The dsn can be a file path or ":memory:" for an in-memory database.
func New(dsn string) (*Store, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an open SQLite handle and applies the schema. The store
// takes ownership of db.
func NewWithDB(db *sql.DB) (*Store, error) {
	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts or replaces the run and its turns in a single transaction.
func (s *Store) Save(ctx context.Context, res *runner.Result) (err error) {
	if res == nil || res.RunID == "" {
		return fmt.Errorf("save: run id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM turns WHERE run_id = ?`, res.RunID); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
			(run_id, task_id, model_name, language, status, reason, error, generations, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.TaskID, res.ModelName, res.Language, string(res.Status), string(res.Reason),
		res.ErrorMessage(), res.Generations, res.StartedAt.UnixNano(), res.FinishedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, tr := range res.Turns {
		var scores sql.NullString
		if tr.Scores != nil {
			b, mErr := json.Marshal(tr.Scores)
			if mErr != nil {
				err = fmt.Errorf("failed to encode scores: %w", mErr)
				return err
			}
			scores = sql.NullString{String: string(b), Valid: true}
		}
		var reference sql.NullString
		if tr.Reference != nil {
			reference = sql.NullString{String: *tr.Reference, Valid: true}
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO turns
				(run_id, idx, prompt, response, reference, scored, scores, score_error, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, tr.Index, tr.Prompt, tr.Response, reference, tr.Scored, scores, tr.ScoreError, int64(tr.Duration),
		); err != nil {
			return fmt.Errorf("failed to save turn %d: %w", tr.Index, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Get loads a run and its turns.
func (s *Store) Get(ctx context.Context, runID string) (*runner.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, task_id, model_name, language, status, reason, error, generations, started_at, finished_at
		FROM runs WHERE run_id = ?`, runID)

	res, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	if err := s.loadTurns(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// List returns the runs of taskID ordered by start time.
func (s *Store) List(ctx context.Context, taskID string) ([]*runner.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, task_id, model_name, language, status, reason, error, generations, started_at, finished_at
		FROM runs WHERE ? = '' OR task_id = ? ORDER BY started_at, run_id`, taskID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var out []*runner.Result
	for rows.Next() {
		res, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	rows.Close()

	for _, res := range out {
		if err := s.loadTurns(ctx, res); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*runner.Result, error) {
	var (
		res                   runner.Result
		status, reason, msg   string
		startedAt, finishedAt int64
	)
	if err := row.Scan(&res.RunID, &res.TaskID, &res.ModelName, &res.Language,
		&status, &reason, &msg, &res.Generations, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	res.Status = runner.Status(status)
	res.Reason = runner.Reason(reason)
	if msg != "" {
		res.Err = errors.New(msg)
	}
	res.StartedAt = time.Unix(0, startedAt).UTC()
	res.FinishedAt = time.Unix(0, finishedAt).UTC()
	return &res, nil
}

func (s *Store) loadTurns(ctx context.Context, res *runner.Result) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, prompt, response, reference, scored, scores, score_error, duration_ns
		FROM turns WHERE run_id = ? ORDER BY idx`, res.RunID)
	if err != nil {
		return fmt.Errorf("failed to load turns of %s: %w", res.RunID, err)
	}
	defer rows.Close()

	history := core.NewHistory()
	for rows.Next() {
		var (
			tr         runner.TurnResult
			reference  sql.NullString
			scores     sql.NullString
			durationNS int64
		)
		if err := rows.Scan(&tr.Index, &tr.Prompt, &tr.Response, &reference, &tr.Scored,
			&scores, &tr.ScoreError, &durationNS); err != nil {
			return fmt.Errorf("failed to scan turn: %w", err)
		}
		if reference.Valid {
			ref := reference.String
			tr.Reference = &ref
		}
		if scores.Valid {
			if err := json.Unmarshal([]byte(scores.String), &tr.Scores); err != nil {
				return fmt.Errorf("failed to decode scores: %w", err)
			}
		}
		tr.Duration = time.Duration(durationNS)
		res.Turns = append(res.Turns, tr)
		history = history.Append(tr.Prompt, tr.Response)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load turns of %s: %w", res.RunID, err)
	}
	res.History = history
	return nil
}
