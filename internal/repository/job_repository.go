package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// JobRepository handles research job persistence and lifecycle management.
// Status transitions are enforced at the persistence layer: a job can only
// move along pending -> in_progress -> completed/failed, and terminal
// states never change again.
type JobRepository interface {
	// Create inserts a new research job. The job must have a valid ID.
	// Returns domain.ErrAlreadyExists if a job with the same ID exists.
	Create(ctx context.Context, job *domain.ResearchJob) error

	// GetByID retrieves a research job by its ID.
	// Returns domain.ErrNotFound if no matching job exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ResearchJob, error)

	// List retrieves jobs ordered by creation time, newest first, along
	// with the total job count for pagination.
	List(ctx context.Context, limit, offset int) ([]*domain.ResearchJob, int64, error)

	// MarkStarted transitions a pending job to in_progress and records
	// the start time. Calling it again on an in_progress job is a no-op,
	// so a retried workflow activity can resume. Returns
	// domain.ErrNotFound if the job does not exist and
	// domain.ErrTerminalState on a disallowed transition.
	MarkStarted(ctx context.Context, id uuid.UUID) error

	// MarkCompleted transitions an in_progress job to completed, storing
	// the provider outcomes, final paper set, and summary report.
	// Returns domain.ErrNotFound if the job does not exist and
	// domain.ErrTerminalState on a disallowed transition.
	MarkCompleted(ctx context.Context, id uuid.UUID, outcomes []domain.ProviderOutcome, papers []domain.Paper, report domain.SummaryReport) error

	// MarkFailed transitions an in_progress or pending job to failed,
	// storing the provider outcomes and the failure message.
	// Returns domain.ErrNotFound if the job does not exist and
	// domain.ErrTerminalState on a disallowed transition.
	MarkFailed(ctx context.Context, id uuid.UUID, outcomes []domain.ProviderOutcome, errorMessage string) error

	// Delete removes a job and its stored results.
	// Returns domain.ErrNotFound if no matching job exists.
	Delete(ctx context.Context, id uuid.UUID) error
}
