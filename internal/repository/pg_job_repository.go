package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// Compile-time interface verification.
var _ JobRepository = (*PgJobRepository)(nil)

// PgJobRepository is a PostgreSQL implementation of JobRepository.
// Request, outcomes, papers, and summary are stored as JSONB documents;
// the job status lives in its own enum column so transitions can be
// enforced with a guarded UPDATE.
type PgJobRepository struct {
	db DBTX
}

// NewPgJobRepository creates a new PostgreSQL job repository.
func NewPgJobRepository(db DBTX) *PgJobRepository {
	return &PgJobRepository{db: db}
}

// jobColumns is the column list shared by all job SELECTs.
const jobColumns = `id, request, status, outcomes, papers, summary,
	error_message, created_at, updated_at, started_at, completed_at`

// Create inserts a new research job.
func (r *PgJobRepository) Create(ctx context.Context, job *domain.ResearchJob) error {
	if job == nil {
		return domain.NewValidationError("job", "job cannot be nil")
	}
	if job.ID == uuid.Nil {
		return domain.NewValidationError("id", "job ID is required")
	}

	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	query := `
		INSERT INTO research_jobs (
			id, request, status, error_message,
			created_at, updated_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := time.Now().UTC()
	_, err = r.db.Exec(ctx, query,
		job.ID, requestJSON, job.Status, job.ErrorMessage,
		job.CreatedAt, now, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("job", job.ID.String())
		}
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

// GetByID retrieves a research job by its ID.
func (r *PgJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ResearchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM research_jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("job", id.String())
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return job, nil
}

// List retrieves jobs ordered by creation time, newest first.
func (r *PgJobRepository) List(ctx context.Context, limit, offset int) ([]*domain.ResearchJob, int64, error) {
	limit, offset = normalizePagination(limit, offset)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM research_jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + `
		FROM research_jobs
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.ResearchJob, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, total, nil
}

// MarkStarted transitions a pending job to in_progress. A job that is
// already in_progress is left untouched so that a retried workflow
// activity can resume processing.
func (r *PgJobRepository) MarkStarted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE research_jobs
		SET status = $1, started_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := r.db.Exec(ctx, query,
		domain.JobStatusInProgress, time.Now().UTC(), id, domain.JobStatusPending)
	if err != nil {
		return fmt.Errorf("marking job started: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err := r.transitionFailure(ctx, id, domain.JobStatusInProgress)
		if errors.Is(err, errAlreadyInProgress) {
			return nil
		}
		return err
	}
	return nil
}

// MarkCompleted transitions an in_progress job to completed with its results.
func (r *PgJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, outcomes []domain.ProviderOutcome, papers []domain.Paper, report domain.SummaryReport) error {
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("marshaling outcomes: %w", err)
	}
	papersJSON, err := json.Marshal(papers)
	if err != nil {
		return fmt.Errorf("marshaling papers: %w", err)
	}
	summaryJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	query := `
		UPDATE research_jobs
		SET status = $1, outcomes = $2, papers = $3, summary = $4,
			completed_at = $5, updated_at = $5
		WHERE id = $6 AND status = $7`

	tag, err := r.db.Exec(ctx, query,
		domain.JobStatusCompleted, outcomesJSON, papersJSON, summaryJSON,
		time.Now().UTC(), id, domain.JobStatusInProgress)
	if err != nil {
		return fmt.Errorf("marking job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionFailure(ctx, id, domain.JobStatusCompleted)
	}
	return nil
}

// MarkFailed transitions a pending or in_progress job to failed.
func (r *PgJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, outcomes []domain.ProviderOutcome, errorMessage string) error {
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("marshaling outcomes: %w", err)
	}

	query := `
		UPDATE research_jobs
		SET status = $1, outcomes = $2, error_message = $3,
			completed_at = $4, updated_at = $4
		WHERE id = $5 AND status IN ($6, $7)`

	tag, err := r.db.Exec(ctx, query,
		domain.JobStatusFailed, outcomesJSON, errorMessage,
		time.Now().UTC(), id,
		domain.JobStatusPending, domain.JobStatusInProgress)
	if err != nil {
		return fmt.Errorf("marking job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionFailure(ctx, id, domain.JobStatusFailed)
	}
	return nil
}

// Delete removes a job and its stored results.
func (r *PgJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM research_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("job", id.String())
	}
	return nil
}

// errAlreadyInProgress signals a no-op MarkStarted on an in_progress job.
var errAlreadyInProgress = errors.New("job already in progress")

// transitionFailure distinguishes a missing job from a disallowed status
// transition after a guarded UPDATE matched no rows.
func (r *PgJobRepository) transitionFailure(ctx context.Context, id uuid.UUID, target domain.JobStatus) error {
	var current domain.JobStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM research_jobs WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("job", id.String())
		}
		return fmt.Errorf("checking job status: %w", err)
	}
	if current == domain.JobStatusInProgress && target == domain.JobStatusInProgress {
		return errAlreadyInProgress
	}
	return fmt.Errorf("transition %s -> %s: %w", current, target, domain.ErrTerminalState)
}

// scanJob scans one job row. The JSONB documents are unmarshaled into
// their domain types; absent documents stay nil.
func scanJob(row pgx.Row) (*domain.ResearchJob, error) {
	var (
		job          domain.ResearchJob
		requestJSON  []byte
		outcomesJSON []byte
		papersJSON   []byte
		summaryJSON  []byte
		updatedAt    time.Time
	)

	err := row.Scan(
		&job.ID, &requestJSON, &job.Status, &outcomesJSON, &papersJSON,
		&summaryJSON, &job.ErrorMessage, &job.CreatedAt, &updatedAt,
		&job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(requestJSON, &job.Request); err != nil {
		return nil, fmt.Errorf("unmarshaling request: %w", err)
	}
	if len(outcomesJSON) > 0 {
		if err := json.Unmarshal(outcomesJSON, &job.Outcomes); err != nil {
			return nil, fmt.Errorf("unmarshaling outcomes: %w", err)
		}
	}
	if len(papersJSON) > 0 {
		if err := json.Unmarshal(papersJSON, &job.Papers); err != nil {
			return nil, fmt.Errorf("unmarshaling papers: %w", err)
		}
	}
	if len(summaryJSON) > 0 {
		var report domain.SummaryReport
		if err := json.Unmarshal(summaryJSON, &report); err != nil {
			return nil, fmt.Errorf("unmarshaling summary: %w", err)
		}
		job.Summary = &report
	}
	return &job, nil
}
