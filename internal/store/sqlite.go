package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the local JobStore used by the CLI. Jobs live in a jobs
// table with one column per queryable field; variant payloads are stored as
// JSON since nothing filters on their contents.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens or creates the job database at path and applies the
// schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id           TEXT PRIMARY KEY,
	profile_id       TEXT NOT NULL,
	video_key        TEXT NOT NULL DEFAULT '',
	source_duration  REAL NOT NULL,
	max_duration     REAL NOT NULL,
	mode             TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	stage            TEXT NOT NULL DEFAULT '',
	warnings         TEXT NOT NULL DEFAULT '[]',
	error            TEXT NOT NULL DEFAULT '',
	cancel_requested INTEGER NOT NULL DEFAULT 0,
	created_at       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS variants (
	job_id  TEXT NOT NULL,
	seq     INTEGER NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY (job_id, seq),
	FOREIGN KEY (job_id) REFERENCES jobs(job_id)
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// PutJob creates or replaces a job row.
func (s *SQLiteStore) PutJob(ctx context.Context, job *JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	warnings, err := json.Marshal(job.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO jobs (job_id, profile_id, video_key, source_duration, max_duration,
	mode, status, stage, warnings, error, cancel_requested, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(job_id) DO UPDATE SET
	profile_id = excluded.profile_id,
	video_key = excluded.video_key,
	source_duration = excluded.source_duration,
	max_duration = excluded.max_duration,
	mode = excluded.mode,
	status = excluded.status,
	stage = excluded.stage,
	warnings = excluded.warnings,
	error = excluded.error,
	cancel_requested = excluded.cancel_requested,
	created_at = excluded.created_at`,
		job.ID, job.ProfileID, job.VideoKey, job.SourceDuration, job.MaxDuration,
		job.Mode, job.Status, job.Stage, string(warnings), job.Error,
		boolToInt(job.CancelRequested), job.CreatedAt)
	if err != nil {
		return fmt.Errorf("put job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob retrieves a job row. Returns ErrNotFound for unknown IDs.
func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
SELECT job_id, profile_id, video_key, source_duration, max_duration,
	mode, status, stage, warnings, error, cancel_requested, created_at
FROM jobs WHERE job_id = ?`, jobID)

	var (
		job       JobRecord
		warnings  string
		cancelInt int
	)
	err := row.Scan(&job.ID, &job.ProfileID, &job.VideoKey, &job.SourceDuration,
		&job.MaxDuration, &job.Mode, &job.Status, &job.Stage, &warnings,
		&job.Error, &cancelInt, &job.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if warnings != "" && warnings != "[]" {
		if err := json.Unmarshal([]byte(warnings), &job.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings for %s: %w", jobID, err)
		}
	}
	job.CancelRequested = cancelInt != 0
	return &job, nil
}

// UpdateJobStatus updates status and stage without touching other fields.
func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID, status, stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, stage = ? WHERE job_id = ?`, status, stage, jobID)
	if err != nil {
		return fmt.Errorf("update job %s status: %w", jobID, err)
	}
	return requireRow(res, jobID)
}

// RequestCancel marks a job for cancellation.
func (s *SQLiteStore) RequestCancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET cancel_requested = 1 WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("request cancel for %s: %w", jobID, err)
	}
	return requireRow(res, jobID)
}

// PutVariant creates or replaces one variant row for a job.
func (s *SQLiteStore) PutVariant(ctx context.Context, jobID string, v *VariantRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal variant %s/%d: %w", jobID, v.Seq, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO variants (job_id, seq, payload) VALUES (?, ?, ?)
ON CONFLICT(job_id, seq) DO UPDATE SET payload = excluded.payload`,
		jobID, v.Seq, string(payload))
	if err != nil {
		return fmt.Errorf("put variant %s/%d: %w", jobID, v.Seq, err)
	}
	return nil
}

// GetVariants retrieves all variants for a job ordered by sequence.
func (s *SQLiteStore) GetVariants(ctx context.Context, jobID string) ([]*VariantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, payload FROM variants WHERE job_id = ? ORDER BY seq`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query variants for %s: %w", jobID, err)
	}
	defer rows.Close()

	var variants []*VariantRecord
	for rows.Next() {
		var (
			seq     int
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("scan variant for %s: %w", jobID, err)
		}
		var v VariantRecord
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, fmt.Errorf("decode variant %s/%d: %w", jobID, seq, err)
		}
		v.Seq = seq
		variants = append(variants, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants for %s: %w", jobID, err)
	}
	return variants, nil
}

func requireRow(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", jobID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
