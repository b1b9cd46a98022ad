package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/kpbench/pkg/kpbench/store"
)

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

	// Enable WAL mode for concurrent writers from the work pool
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

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
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	corpus TEXT,
	started_at TEXT,
	finished_at TEXT,
	processed INTEGER DEFAULT 0,
	failed INTEGER DEFAULT 0,
	config TEXT
);

CREATE TABLE IF NOT EXISTS keyphrases (
	run_id TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	rank INTEGER NOT NULL,
	form TEXT NOT NULL,
	score REAL NOT NULL,
	PRIMARY KEY(run_id, doc_id, rank)
);

CREATE TABLE IF NOT EXISTS measures (
	run_id TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	evaluator TEXT NOT NULL,
	cutoff INTEGER NOT NULL,
	precision REAL NOT NULL,
	recall REAL NOT NULL,
	f1 REAL NOT NULL,
	ap REAL NOT NULL,
	PRIMARY KEY(run_id, doc_id, evaluator, cutoff)
);

CREATE TABLE IF NOT EXISTS failures (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	stage TEXT,
	error TEXT,
	at TEXT
);

CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertRun inserts or updates a run
func (s *sqliteStore) UpsertRun(ctx context.Context, r store.Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, name, corpus, started_at, finished_at, processed, failed, config)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	corpus=excluded.corpus,
	started_at=excluded.started_at,
	finished_at=excluded.finished_at,
	processed=excluded.processed,
	failed=excluded.failed,
	config=excluded.config`,
		r.ID, r.Name, r.Corpus, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.Processed, r.Failed, r.Config)
	return err
}

// GetRun returns a run by ID
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, corpus, started_at, finished_at, processed, failed, config FROM runs WHERE id=?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return r, true, nil
}

// ListRuns returns all runs ordered by start time
func (s *sqliteStore) ListRuns(ctx context.Context) ([]store.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, corpus, started_at, finished_at, processed, failed, config FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (store.Run, error) {
	var r store.Run
	var corpus, started, finished, config sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &corpus, &started, &finished, &r.Processed, &r.Failed, &config); err != nil {
		return store.Run{}, err
	}
	r.Corpus = corpus.String
	r.StartedAt = parseTime(started.String)
	r.FinishedAt = parseTime(finished.String)
	r.Config = config.String
	return r, nil
}

// PutKeyphrases replaces the keyphrases of a document
func (s *sqliteStore) PutKeyphrases(ctx context.Context, runID, docID string, kps []store.Keyphrase) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM keyphrases WHERE run_id=? AND doc_id=?`, runID, docID); err != nil {
		return err
	}
	if len(kps) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO keyphrases (run_id, doc_id, rank, form, score) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, kp := range kps {
			if _, err := stmt.ExecContext(ctx, runID, docID, kp.Rank, kp.Form, kp.Score); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetKeyphrases returns the keyphrases of a document in rank order
func (s *sqliteStore) GetKeyphrases(ctx context.Context, runID, docID string) ([]store.Keyphrase, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT rank, form, score FROM keyphrases WHERE run_id=? AND doc_id=? ORDER BY rank`, runID, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Keyphrase
	for rows.Next() {
		var kp store.Keyphrase
		if err := rows.Scan(&kp.Rank, &kp.Form, &kp.Score); err != nil {
			return nil, err
		}
		out = append(out, kp)
	}
	return out, rows.Err()
}

// PutMeasures replaces the measures of a document
func (s *sqliteStore) PutMeasures(ctx context.Context, runID, docID string, ms []store.Measure) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM measures WHERE run_id=? AND doc_id=?`, runID, docID); err != nil {
		return err
	}
	if len(ms) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO measures (run_id, doc_id, evaluator, cutoff, precision, recall, f1, ap) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, m := range ms {
			if _, err := stmt.ExecContext(ctx, runID, docID, m.Evaluator, m.Cutoff, m.Precision, m.Recall, m.F1, m.AP); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetMeasures returns the measures of a document
func (s *sqliteStore) GetMeasures(ctx context.Context, runID, docID string) ([]store.Measure, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT evaluator, cutoff, precision, recall, f1, ap FROM measures
WHERE run_id=? AND doc_id=? ORDER BY evaluator, cutoff = 0, cutoff`, runID, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Measure
	for rows.Next() {
		var m store.Measure
		if err := rows.Scan(&m.Evaluator, &m.Cutoff, &m.Precision, &m.Recall, &m.F1, &m.AP); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddFailure records a failure
func (s *sqliteStore) AddFailure(ctx context.Context, f store.Failure) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO failures (id, run_id, doc_id, stage, error, at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.RunID, f.DocID, f.Stage, f.Error, formatTime(f.At))
	return err
}

// Failures returns the failures of a run ordered by document
func (s *sqliteStore) Failures(ctx context.Context, runID string) ([]store.Failure, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, run_id, doc_id, stage, error, at FROM failures WHERE run_id=? ORDER BY doc_id, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Failure
	for rows.Next() {
		var f store.Failure
		var stage, msg, at sql.NullString
		if err := rows.Scan(&f.ID, &f.RunID, &f.DocID, &stage, &msg, &at); err != nil {
			return nil, err
		}
		f.Stage, f.Error, f.At = stage.String, msg.String, parseTime(at.String)
		out = append(out, f)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
