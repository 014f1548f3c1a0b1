package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storyreel/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository. Superseded jobs stay in
// the table for audit; the active mapping is the set of rows with an empty
// superseded_by.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new render job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.RenderJob) error {
	query := `
INSERT INTO render_jobs (id, session_id, shot_index, mode, status, result_uri, error_message, superseded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.SessionID,
		job.ShotIndex,
		job.Mode,
		job.Status,
		job.ResultURI,
		job.ErrorMessage,
		job.SupersededBy,
	)
	return err
}

// GetByID fetches a job by its provider identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.RenderJob, error) {
	query := `
SELECT id, session_id, shot_index, mode, status, result_uri, error_message, superseded_by, created_at, updated_at
FROM render_jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// UpdateStatus records a job state transition.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, resultURI, errMsg string) error {
	query := `
UPDATE render_jobs
SET status = $2,
    result_uri = $3,
    error_message = $4,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, jobID, status, resultURI, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Supersede marks oldID as replaced by newID. The old row stays for audit.
func (r *JobRepositoryPG) Supersede(ctx context.Context, oldID, newID string) error {
	query := `
UPDATE render_jobs
SET superseded_by = $2,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, oldID, newID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ActiveBySession returns the non-superseded jobs keyed by shot index.
func (r *JobRepositoryPG) ActiveBySession(ctx context.Context, sessionID string) (map[int]*domain.RenderJob, error) {
	query := `
SELECT id, session_id, shot_index, mode, status, result_uri, error_message, superseded_by, created_at, updated_at
FROM render_jobs
WHERE session_id = $1 AND superseded_by = '';
`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	active := map[int]*domain.RenderJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		active[job.ShotIndex] = job
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return active, nil
}

// DeleteForShot drops the active mapping for a deleted shot and shifts the
// remaining active jobs down, mirroring the storyboard renumbering. Both
// steps happen in one transaction.
func (r *JobRepositoryPG) DeleteForShot(ctx context.Context, sessionID string, shotIndex int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
DELETE FROM render_jobs
WHERE session_id = $1 AND shot_index = $2 AND superseded_by = '';
`, sessionID, shotIndex); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
UPDATE render_jobs
SET shot_index = shot_index - 1,
    updated_at = NOW()
WHERE session_id = $1 AND shot_index > $2 AND superseded_by = '';
`, sessionID, shotIndex)
		return err
	})
}

func scanJob(row pgx.Row) (*domain.RenderJob, error) {
	var job domain.RenderJob
	if err := row.Scan(
		&job.ID,
		&job.SessionID,
		&job.ShotIndex,
		&job.Mode,
		&job.Status,
		&job.ResultURI,
		&job.ErrorMessage,
		&job.SupersededBy,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
