package journal

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"
)

// Run is one recorded solve. Value is NaN when the run did not reach an
// optimal status; it is stored as NULL.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Problem     string
	Fingerprint string
	Dims        string
	Solver      string
	Status      string
	Value       float64
	Iterations  int
	Runtime     time.Duration
	Message     string
}

// Record inserts a run. An empty ID is assigned from the journal's ID
// source and a zero CreatedAt is stamped with the current time; both are
// written back to r. Re-recording an existing ID is a silent no-op.
func (j *Journal) Record(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = j.ids.NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = j.now().UTC()
	}

	var value any
	if !math.IsNaN(r.Value) {
		value = r.Value
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, problem, fingerprint, dims, solver, status, value, iterations, runtime_ms, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
		r.Problem,
		r.Fingerprint,
		r.Dims,
		r.Solver,
		r.Status,
		value,
		r.Iterations,
		r.Runtime.Milliseconds(),
		r.Message,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first. limit <= 0 means no
// limit.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, created_at, problem, fingerprint, dims, solver, status, value, iterations, runtime_ms, message
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ByFingerprint returns every run of one cone program, newest first.
func (j *Journal) ByFingerprint(ctx context.Context, fingerprint string) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, created_at, problem, fingerprint, dims, solver, status, value, iterations, runtime_ms, message
		FROM runs
		WHERE fingerprint = ?
		ORDER BY id DESC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("runs by fingerprint: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var out []Run
	for rows.Next() {
		var (
			r         Run
			createdAt string
			value     *float64
			runtimeMS int64
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.Problem, &r.Fingerprint, &r.Dims, &r.Solver, &r.Status, &value, &r.Iterations, &runtimeMS, &r.Message); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan run %s: bad created_at %q: %w", r.ID, createdAt, err)
		}
		r.CreatedAt = t
		if value != nil {
			r.Value = *value
		} else {
			r.Value = math.NaN()
		}
		r.Runtime = time.Duration(runtimeMS) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return out, nil
}
