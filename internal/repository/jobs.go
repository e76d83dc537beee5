package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// JobsRepository is the Postgres-backed enrichment queue.
type JobsRepository struct {
	db DBTX
}

const jobColumns = `id, kind, payload, status, attempts, last_error, run_after`

// Enqueue stores a pending job runnable immediately.
func (r *JobsRepository) Enqueue(ctx context.Context, kind domain.JobKind, payload []byte) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx, `
        INSERT INTO enrichment_jobs (id, kind, payload)
        VALUES ($1,$2,$3)
    `, id, string(kind), payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue %s job: %w", kind, err)
	}
	return id, nil
}

// Claim atomically marks up to limit runnable jobs as running and returns
// them. Jobs left running for longer than staleAfter are claimed again.
func (r *JobsRepository) Claim(ctx context.Context, limit int, staleAfter time.Duration) ([]domain.EnrichmentJob, error) {
	query := fmt.Sprintf(`
        UPDATE enrichment_jobs
        SET status = 'running', attempts = attempts + 1, locked_at = now(), updated_at = now()
        WHERE id IN (
            SELECT id FROM enrichment_jobs
            WHERE (status = 'pending' AND run_after <= now())
               OR (status = 'running' AND locked_at < now() - make_interval(secs => $2))
            ORDER BY run_after, created_at
            LIMIT $1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING %s
    `, jobColumns)

	rows, err := r.db.Query(ctx, query, limit, staleAfter.Seconds())
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.EnrichmentJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Complete marks a job done.
func (r *JobsRepository) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
        UPDATE enrichment_jobs
        SET status = 'done', last_error = NULL, locked_at = NULL, updated_at = now()
        WHERE id = $1
    `, id)
	return err
}

// Retry puts a job back to pending with its error recorded, runnable at runAfter.
func (r *JobsRepository) Retry(ctx context.Context, id uuid.UUID, lastErr string, runAfter time.Time) error {
	_, err := r.db.Exec(ctx, `
        UPDATE enrichment_jobs
        SET status = 'pending', last_error = $2, run_after = $3, locked_at = NULL, updated_at = now()
        WHERE id = $1
    `, id, lastErr, runAfter)
	return err
}

// Fail marks a job permanently failed.
func (r *JobsRepository) Fail(ctx context.Context, id uuid.UUID, lastErr string) error {
	_, err := r.db.Exec(ctx, `
        UPDATE enrichment_jobs
        SET status = 'failed', last_error = $2, locked_at = NULL, updated_at = now()
        WHERE id = $1
    `, id, lastErr)
	return err
}

// RetryFailed resets every failed job to pending with a fresh attempt budget.
func (r *JobsRepository) RetryFailed(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE enrichment_jobs
        SET status = 'pending', attempts = 0, run_after = now(), updated_at = now()
        WHERE status = 'failed'
    `)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Get fetches a job by identifier.
func (r *JobsRepository) Get(ctx context.Context, id uuid.UUID) (domain.EnrichmentJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrichment_jobs WHERE id = $1`, jobColumns)
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.EnrichmentJob{}, notFound(err)
	}
	return job, nil
}

// CountByStatus reports how many jobs sit in each status.
func (r *JobsRepository) CountByStatus(ctx context.Context) (map[domain.JobStatus]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM enrichment_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.JobStatus]int64)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[domain.JobStatus(status)] = count
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (domain.EnrichmentJob, error) {
	var (
		job    domain.EnrichmentJob
		kind   string
		status string
	)
	if err := row.Scan(&job.ID, &kind, &job.Payload, &status, &job.Attempts, &job.LastError, &job.RunAfter); err != nil {
		return domain.EnrichmentJob{}, err
	}
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	return job, nil
}
