package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/triage/pkg/triage/eval"
	"github.com/cognicore/triage/pkg/triage/internalerr"
	"github.com/cognicore/triage/pkg/triage/model"
	"github.com/cognicore/triage/pkg/triage/store"
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS pipelines (
	name TEXT PRIMARY KEY,
	format_version INTEGER NOT NULL,
	payload BLOB NOT NULL,
	saved_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	artifact TEXT,
	train_size INTEGER NOT NULL,
	test_size INTEGER NOT NULL,
	accuracy REAL NOT NULL,
	iterations INTEGER NOT NULL,
	converged INTEGER NOT NULL,
	metrics_json TEXT
);

CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SavePipeline inserts or replaces the named pipeline
func (s *sqliteStore) SavePipeline(ctx context.Context, name string, p *model.Pipeline) error {
	payload, err := p.MarshalJSON()
	if err != nil {
		return err
	}

	const stmt = `
INSERT INTO pipelines (name, format_version, payload, saved_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	format_version=excluded.format_version,
	payload=excluded.payload,
	saved_at=excluded.saved_at;
`
	_, err = s.db.ExecContext(ctx, stmt, name, model.FormatVersion, payload, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("save pipeline %s: %w", name, err)
	}
	return nil
}

// LoadPipeline reads back the named pipeline
func (s *sqliteStore) LoadPipeline(ctx context.Context, name string) (*model.Pipeline, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM pipelines WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pipeline %s: %w", name, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return model.Decode(payload)
}

// RecordRun appends a run to the history
func (s *sqliteStore) RecordRun(ctx context.Context, r store.Run) error {
	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return err
	}

	const stmt = `
INSERT INTO runs (id, started_at, duration_ms, artifact, train_size, test_size, accuracy, iterations, converged, metrics_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = s.db.ExecContext(ctx, stmt,
		r.ID,
		r.StartedAt.UTC().Format(timeFormat),
		r.Duration.Milliseconds(),
		r.Artifact,
		r.TrainSize,
		r.TestSize,
		r.Accuracy,
		r.Iterations,
		boolToInt(r.Converged),
		string(metrics),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, duration_ms, artifact, train_size, test_size, accuracy, iterations, converged, metrics_json
FROM runs
ORDER BY started_at DESC, id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		var (
			r          store.Run
			startedAt  string
			durationMS int64
			artifact   sql.NullString
			converged  int
			metrics    sql.NullString
		)
		if err := rows.Scan(&r.ID, &startedAt, &durationMS, &artifact, &r.TrainSize, &r.TestSize,
			&r.Accuracy, &r.Iterations, &converged, &metrics); err != nil {
			return nil, err
		}

		r.StartedAt, err = time.Parse(timeFormat, startedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", r.ID, err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.Artifact = artifact.String
		r.Converged = converged != 0
		if metrics.Valid && metrics.String != "" {
			r.Metrics = make(map[string]eval.ClassMetrics)
			if err := json.Unmarshal([]byte(metrics.String), &r.Metrics); err != nil {
				return nil, fmt.Errorf("run %s: bad metrics: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
