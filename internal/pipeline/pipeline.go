package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/research-aggregation-service/internal/dedup"
	"github.com/helixir/research-aggregation-service/internal/domain"
	"github.com/helixir/research-aggregation-service/internal/observability"
	"github.com/helixir/research-aggregation-service/internal/rank"
	"github.com/helixir/research-aggregation-service/internal/summary"
)

// JobStore is the persistence surface the processor needs. The repository
// package provides the Postgres implementation.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ResearchJob, error)
	MarkStarted(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, outcomes []domain.ProviderOutcome, papers []domain.Paper, report domain.SummaryReport) error
	MarkFailed(ctx context.Context, id uuid.UUID, outcomes []domain.ProviderOutcome, errorMessage string) error
}

// EventPublisher emits job lifecycle transitions. The events package
// provides the Kafka implementation; a nil publisher disables events.
type EventPublisher interface {
	PublishTransition(ctx context.Context, jobID uuid.UUID, from, to domain.JobStatus) error
}

// ProcessorConfig controls end-to-end job processing.
type ProcessorConfig struct {
	// GlobalTimeout bounds the whole dispatch phase of one job.
	GlobalTimeout time.Duration

	// DefaultMaxResults caps the final paper set when the request does
	// not specify a limit.
	DefaultMaxResults int
}

// applyDefaults sets default values for unset configuration fields.
func (c *ProcessorConfig) applyDefaults() {
	if c.GlobalTimeout == 0 {
		c.GlobalTimeout = 2 * time.Minute
	}
	if c.DefaultMaxResults == 0 {
		c.DefaultMaxResults = 20
	}
}

// Processor executes research jobs: it fans the query out through the
// dispatcher, then normalizes, deduplicates, filters, ranks, and
// summarizes the results, persisting the job's state transitions along
// the way.
type Processor struct {
	dispatcher *Dispatcher
	store      JobStore
	events     EventPublisher
	config     ProcessorConfig
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewProcessor creates a job processor.
func NewProcessor(dispatcher *Dispatcher, store JobStore, events EventPublisher, cfg ProcessorConfig, logger zerolog.Logger, metrics *observability.Metrics) *Processor {
	cfg.applyDefaults()
	return &Processor{
		dispatcher: dispatcher,
		store:      store,
		events:     events,
		config:     cfg,
		logger:     logger.With().Str("component", "processor").Logger(),
		metrics:    metrics,
	}
}

// Run executes one job to a terminal state. Provider failures are
// tolerated as long as at least one provider delivers records; the job
// fails only on total dispatch failure or an internal error before any
// papers were assembled.
func (p *Processor) Run(ctx context.Context, jobID uuid.UUID) error {
	logger := p.logger.With().Str("job_id", jobID.String()).Logger()
	start := time.Now()

	job, err := p.store.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}

	if err := p.store.MarkStarted(ctx, jobID); err != nil {
		return fmt.Errorf("marking job started: %w", err)
	}
	p.publishTransition(ctx, jobID, domain.JobStatusPending, domain.JobStatusInProgress)
	if p.metrics != nil {
		p.metrics.RecordJobStarted()
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, p.config.GlobalTimeout)
	defer cancel()

	records, outcomes, err := p.dispatcher.Dispatch(dispatchCtx, job.Request)
	if err != nil {
		return p.fail(ctx, jobID, outcomes, err, start, logger)
	}

	papers := NormalizeAll(records)
	merged := dedup.Merge(papers)
	if p.metrics != nil {
		p.metrics.RecordPapers(len(merged), len(papers)-len(merged))
	}

	final := rank.Score(rank.Filter(merged, job.Request.Filters), job.Request.Query)

	maxResults := job.Request.MaxResults
	if maxResults <= 0 {
		maxResults = p.config.DefaultMaxResults
	}
	if len(final) > maxResults {
		final = final[:maxResults]
	}

	report := summary.Build(final)

	if err := p.store.MarkCompleted(ctx, jobID, outcomes, final, report); err != nil {
		return p.fail(ctx, jobID, outcomes, fmt.Errorf("persisting result: %w", err), start, logger)
	}
	p.publishTransition(ctx, jobID, domain.JobStatusInProgress, domain.JobStatusCompleted)
	if p.metrics != nil {
		p.metrics.RecordJobCompleted(time.Since(start).Seconds())
	}

	logger.Info().
		Int("raw_records", len(records)).
		Int("unique_papers", len(merged)).
		Int("final_papers", len(final)).
		Dur("duration", time.Since(start)).
		Msg("job completed")
	return nil
}

// fail moves the job to its failed terminal state and records metrics.
func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, outcomes []domain.ProviderOutcome, cause error, start time.Time, logger zerolog.Logger) error {
	if err := p.store.MarkFailed(ctx, jobID, outcomes, cause.Error()); err != nil {
		logger.Error().Err(err).Msg("marking job failed")
	}
	p.publishTransition(ctx, jobID, domain.JobStatusInProgress, domain.JobStatusFailed)
	if p.metrics != nil {
		p.metrics.RecordJobFailed(time.Since(start).Seconds())
	}

	logger.Error().Err(cause).Dur("duration", time.Since(start)).Msg("job failed")
	return cause
}

// publishTransition emits a lifecycle event when a publisher is wired.
// Publish failures are logged, never propagated.
func (p *Processor) publishTransition(ctx context.Context, jobID uuid.UUID, from, to domain.JobStatus) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishTransition(ctx, jobID, from, to); err != nil {
		p.logger.Warn().
			Err(err).
			Str("job_id", jobID.String()).
			Str("to", string(to)).
			Msg("publishing job transition failed")
		if p.metrics != nil {
			p.metrics.RecordEventFailed()
		}
		return
	}
	if p.metrics != nil {
		p.metrics.RecordEventPublished()
	}
}
