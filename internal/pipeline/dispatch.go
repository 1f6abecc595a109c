package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-aggregation-service/internal/domain"
	"github.com/helixir/research-aggregation-service/internal/observability"
	"github.com/helixir/research-aggregation-service/internal/papersources"
)

// DispatcherConfig controls fan-out behavior.
type DispatcherConfig struct {
	// MaxConcurrentProviders bounds the number of provider calls in
	// flight at once. Zero means no bound beyond the provider count.
	MaxConcurrentProviders int

	// ProviderTimeout is the deadline applied to each provider call when
	// the dispatch context carries none.
	ProviderTimeout time.Duration

	// SafetyMargin is subtracted from the dispatch deadline before it is
	// handed to providers, leaving room to assemble partial results.
	SafetyMargin time.Duration
}

// applyDefaults sets default values for unset configuration fields.
func (c *DispatcherConfig) applyDefaults() {
	if c.ProviderTimeout == 0 {
		c.ProviderTimeout = 60 * time.Second
	}
	if c.SafetyMargin == 0 {
		c.SafetyMargin = 2 * time.Second
	}
}

// Dispatcher fans a research request out to every enabled provider and
// collects raw records plus one outcome per provider. Provider failures
// are recorded, not propagated: a dispatch only fails when no provider
// produced anything.
type Dispatcher struct {
	registry *papersources.Registry
	config   DispatcherConfig
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewDispatcher creates a dispatcher over the given provider registry.
func NewDispatcher(registry *papersources.Registry, cfg DispatcherConfig, logger zerolog.Logger, metrics *observability.Metrics) *Dispatcher {
	cfg.applyDefaults()
	return &Dispatcher{
		registry: registry,
		config:   cfg,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		metrics:  metrics,
	}
}

// Dispatch queries every enabled provider concurrently and returns the
// combined raw records with per-provider outcomes. Records and outcomes
// are ordered by provider name, so identical provider responses always
// assemble into identical results. The returned error is non-nil only
// when no provider is enabled or every provider call failed; outcomes are
// returned either way.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.ResearchRequest) ([]papersources.RawRecord, []domain.ProviderOutcome, error) {
	sources := d.registry.EnabledSources(req.EnabledProviders())
	if len(sources) == 0 {
		return nil, nil, domain.ErrNoProvidersAvailable
	}

	params := papersources.SearchParams{
		Query:        req.Query,
		MaxResults:   req.MaxResults,
		YearFrom:     req.Filters.YearFrom,
		YearTo:       req.Filters.YearTo,
		MinCitations: req.Filters.MinCitations,
	}

	maxConcurrent := d.config.MaxConcurrentProviders
	if maxConcurrent <= 0 || maxConcurrent > len(sources) {
		maxConcurrent = len(sources)
	}
	sem := make(chan struct{}, maxConcurrent)

	// Indexed slices keep assembly order independent of completion order.
	results := make([]*papersources.SearchResult, len(sources))
	outcomes := make([]domain.ProviderOutcome, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(i int, source papersources.PaperSource) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i], outcomes[i] = d.search(ctx, source, params)
		}(i, source)
	}
	wg.Wait()

	records := make([]papersources.RawRecord, 0)
	succeeded := 0
	for _, result := range results {
		if result == nil {
			continue
		}
		succeeded++
		records = append(records, result.Records...)
	}

	if succeeded == 0 {
		d.logger.Error().
			Str("query", req.Query).
			Int("providers", len(sources)).
			Msg("all providers failed")
		return nil, outcomes, fmt.Errorf("%d providers: %w", len(sources), domain.ErrNoProvidersAvailable)
	}

	d.logger.Info().
		Str("query", req.Query).
		Int("providers", len(sources)).
		Int("succeeded", succeeded).
		Int("records", len(records)).
		Msg("dispatch complete")
	return records, outcomes, nil
}

// search runs a single provider call under its own deadline and classifies
// the outcome.
func (d *Dispatcher) search(ctx context.Context, source papersources.PaperSource, params papersources.SearchParams) (*papersources.SearchResult, domain.ProviderOutcome) {
	sourceType := source.SourceType()

	callCtx, cancel := context.WithTimeout(ctx, d.providerDeadline(ctx))
	defer cancel()

	if d.metrics != nil {
		d.metrics.RecordSearchStarted(string(sourceType))
	}

	start := time.Now()
	result, err := source.Search(callCtx, params)
	elapsed := time.Since(start)

	outcome := domain.ProviderOutcome{
		Provider: sourceType,
		Duration: elapsed,
	}

	if err != nil {
		outcome.Status = classifyError(err)
		outcome.Error = err.Error()

		if d.metrics != nil {
			d.metrics.RecordSearchFailed(string(sourceType), string(outcome.Status), elapsed.Seconds())
			if outcome.Status == domain.OutcomeRateLimited {
				d.metrics.RecordSourceRateLimited(string(sourceType))
			}
		}
		d.logger.Warn().
			Err(err).
			Str("source", string(sourceType)).
			Str("outcome", string(outcome.Status)).
			Dur("duration", elapsed).
			Msg("provider search failed")
		return nil, outcome
	}

	outcome.Status = domain.OutcomeOK
	outcome.RecordCount = len(result.Records)

	if d.metrics != nil {
		d.metrics.RecordSearchCompleted(string(sourceType), elapsed.Seconds(), len(result.Records))
	}
	d.logger.Debug().
		Str("source", string(sourceType)).
		Int("records", len(result.Records)).
		Dur("duration", elapsed).
		Msg("provider search complete")
	return result, outcome
}

// providerDeadline derives the per-call timeout: the dispatch deadline
// minus the safety margin when one is set, the configured provider timeout
// otherwise.
func (d *Dispatcher) providerDeadline(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return d.config.ProviderTimeout
	}

	remaining := time.Until(deadline) - d.config.SafetyMargin
	if remaining <= 0 {
		// Deadline already inside the margin; let the call fail fast.
		return time.Millisecond
	}
	return remaining
}

// classifyError maps a provider error onto an outcome status.
func classifyError(err error) domain.OutcomeStatus {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.OutcomeTimeout
	case errors.Is(err, domain.ErrRateLimited):
		return domain.OutcomeRateLimited
	default:
		return domain.OutcomeError
	}
}
