// Package activities defines the Temporal activities that drive the
// aggregation pipeline.
package activities

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/temporal"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// Application error types attached to non-retryable failures so workflow
// code can distinguish them without string matching.
const (
	ErrTypeJobNotFound   = "JobNotFound"
	ErrTypeTerminalState = "JobTerminalState"
	ErrTypeNoProviders   = "NoProvidersAvailable"
)

// JobProcessor runs the aggregation pipeline for one job.
type JobProcessor interface {
	Run(ctx context.Context, jobID uuid.UUID) error
}

// JobReader loads job state for result reporting.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ResearchJob, error)
}

// ProcessJobInput identifies the job to process.
type ProcessJobInput struct {
	JobID uuid.UUID
}

// ProcessJobResult summarizes the outcome of a pipeline run.
type ProcessJobResult struct {
	JobID           uuid.UUID
	Status          domain.JobStatus
	PaperCount      int
	FailedProviders []domain.SourceType
	ErrorMessage    string
}

// AggregationActivities holds the dependencies for pipeline activities.
type AggregationActivities struct {
	processor JobProcessor
	jobs      JobReader
	logger    zerolog.Logger
}

// NewAggregationActivities creates the activity set.
func NewAggregationActivities(processor JobProcessor, jobs JobReader, logger zerolog.Logger) *AggregationActivities {
	return &AggregationActivities{
		processor: processor,
		jobs:      jobs,
		logger:    logger.With().Str("component", "activities").Logger(),
	}
}

// ProcessResearchJob runs the full aggregation pipeline for one job and
// reports the final job state. Errors that cannot be cured by retrying
// (missing job, terminal job, every provider failing) are returned as
// non-retryable application errors.
func (a *AggregationActivities) ProcessResearchJob(ctx context.Context, input ProcessJobInput) (*ProcessJobResult, error) {
	logger := a.logger.With().Str("job_id", input.JobID.String()).Logger()
	logger.Info().Msg("processing research job")

	runErr := a.processor.Run(ctx, input.JobID)
	if runErr != nil {
		switch {
		case errors.Is(runErr, domain.ErrNotFound):
			return nil, temporal.NewNonRetryableApplicationError(
				"job not found", ErrTypeJobNotFound, runErr)
		case errors.Is(runErr, domain.ErrTerminalState):
			return nil, temporal.NewNonRetryableApplicationError(
				"job already in a terminal state", ErrTypeTerminalState, runErr)
		case errors.Is(runErr, domain.ErrNoProvidersAvailable):
			// The job record is already marked failed; retrying would
			// only trip the terminal-state guard.
			return nil, temporal.NewNonRetryableApplicationError(
				"no providers produced results", ErrTypeNoProviders, runErr)
		default:
			return nil, runErr
		}
	}

	job, err := a.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}

	result := &ProcessJobResult{
		JobID:           job.ID,
		Status:          job.Status,
		PaperCount:      len(job.Papers),
		FailedProviders: job.FailedProviders(),
		ErrorMessage:    job.ErrorMessage,
	}

	logger.Info().
		Str("status", string(job.Status)).
		Int("papers", result.PaperCount).
		Msg("research job processed")
	return result, nil
}
