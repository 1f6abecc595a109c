// Package chaos provides fault injection tests for the research aggregation
// workflow.
//
// Unlike the workflow unit tests, these run the real activity, processor,
// and dispatcher inside the Temporal test environment, injecting failures
// at the provider and storage layers: provider outages, rate limiting,
// slow providers, and storage flakes during completion. No external
// services are required.
package chaos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/helixir/research-aggregation-service/internal/domain"
	"github.com/helixir/research-aggregation-service/internal/papersources"
	"github.com/helixir/research-aggregation-service/internal/pipeline"
	"github.com/helixir/research-aggregation-service/internal/temporal/activities"
	"github.com/helixir/research-aggregation-service/internal/temporal/workflows"
)

// stubSource is a scriptable provider for fault injection.
type stubSource struct {
	source     domain.SourceType
	searchFunc func(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error)
}

func (s *stubSource) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	return s.searchFunc(ctx, params)
}

func (s *stubSource) SourceType() domain.SourceType { return s.source }
func (s *stubSource) Name() string                  { return string(s.source) }
func (s *stubSource) IsEnabled() bool               { return true }

// recordsFor builds one raw record per title for the given provider.
func recordsFor(source domain.SourceType, titles ...string) *papersources.SearchResult {
	result := &papersources.SearchResult{Source: source}
	for i, title := range titles {
		result.Records = append(result.Records, papersources.RawRecord{
			Provider:      source,
			Title:         title,
			Year:          "2022",
			CitationCount: 10 * (i + 1),
			DOI:           fmt.Sprintf("10.1/%s-%d", source, i),
		})
	}
	result.TotalResults = len(result.Records)
	return result
}

func healthySource(source domain.SourceType, titles ...string) *stubSource {
	return &stubSource{
		source: source,
		searchFunc: func(_ context.Context, _ papersources.SearchParams) (*papersources.SearchResult, error) {
			return recordsFor(source, titles...), nil
		},
	}
}

// memJobStore is an in-memory JobStore with injectable storage flakes. It
// enforces the same lifecycle rules as the Postgres repository, including
// idempotent MarkStarted for retried activities.
type memJobStore struct {
	mu             sync.Mutex
	job            *domain.ResearchJob
	completeFlakes int // MarkCompleted calls to fail before succeeding
	failFlakes     int // MarkFailed calls to fail before succeeding
	completeCalls  int
}

func newMemJobStore(job *domain.ResearchJob) *memJobStore {
	return &memJobStore{job: job}
}

func (s *memJobStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ResearchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil || s.job.ID != id {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	copied := *s.job
	return &copied, nil
}

func (s *memJobStore) MarkStarted(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil || s.job.ID != id {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	switch s.job.Status {
	case domain.JobStatusPending:
		now := time.Now().UTC()
		s.job.Status = domain.JobStatusInProgress
		s.job.StartedAt = &now
		return nil
	case domain.JobStatusInProgress:
		return nil
	default:
		return fmt.Errorf("transition %s -> in_progress: %w", s.job.Status, domain.ErrTerminalState)
	}
}

func (s *memJobStore) MarkCompleted(_ context.Context, id uuid.UUID, outcomes []domain.ProviderOutcome, papers []domain.Paper, report domain.SummaryReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeCalls++
	if s.completeFlakes > 0 {
		s.completeFlakes--
		return errors.New("storage flake")
	}
	if s.job == nil || s.job.ID != id {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if s.job.Status != domain.JobStatusInProgress {
		return fmt.Errorf("transition %s -> completed: %w", s.job.Status, domain.ErrTerminalState)
	}
	now := time.Now().UTC()
	s.job.Status = domain.JobStatusCompleted
	s.job.Outcomes = outcomes
	s.job.Papers = papers
	s.job.Summary = &report
	s.job.CompletedAt = &now
	return nil
}

func (s *memJobStore) MarkFailed(_ context.Context, id uuid.UUID, outcomes []domain.ProviderOutcome, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFlakes > 0 {
		s.failFlakes--
		return errors.New("storage flake")
	}
	if s.job == nil || s.job.ID != id {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if !s.job.Status.IsTerminal() {
		now := time.Now().UTC()
		s.job.Status = domain.JobStatusFailed
		s.job.Outcomes = outcomes
		s.job.ErrorMessage = errorMessage
		s.job.CompletedAt = &now
		return nil
	}
	return fmt.Errorf("transition %s -> failed: %w", s.job.Status, domain.ErrTerminalState)
}

// newChaosStack wires a real activity over stub providers and the given
// store, ready for registration in a workflow test environment.
func newChaosStack(store *memJobStore, sources ...papersources.PaperSource) *activities.AggregationActivities {
	registry := papersources.NewRegistry()
	for _, source := range sources {
		registry.Register(source)
	}

	dispatcher := pipeline.NewDispatcher(registry, pipeline.DispatcherConfig{
		ProviderTimeout: 100 * time.Millisecond,
		SafetyMargin:    time.Millisecond,
	}, zerolog.Nop(), nil)

	processor := pipeline.NewProcessor(dispatcher, store, nil, pipeline.ProcessorConfig{
		GlobalTimeout: 2 * time.Second,
	}, zerolog.Nop(), nil)

	return activities.NewAggregationActivities(processor, store, zerolog.Nop())
}

func newChaosJob(providers ...domain.SourceType) *domain.ResearchJob {
	return domain.NewResearchJob(domain.ResearchRequest{
		Query:      "chaos test query",
		MaxResults: 20,
		Providers:  providers,
	})
}

func runWorkflow(t *testing.T, acts *activities.AggregationActivities, jobID uuid.UUID) (*testsuite.TestWorkflowEnvironment, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.ResearchAggregationWorkflow)
	env.RegisterActivity(acts.ProcessResearchJob)

	env.ExecuteWorkflow(workflows.ResearchAggregationWorkflow,
		workflows.ResearchWorkflowInput{JobID: jobID})

	require.True(t, env.IsWorkflowCompleted())
	return env, env.GetWorkflowError()
}

func TestChaos_TotalProviderOutage(t *testing.T) {
	outage := func(_ context.Context, _ papersources.SearchParams) (*papersources.SearchResult, error) {
		return nil, errors.New("connection refused")
	}
	job := newChaosJob(domain.SourceTypeArXiv, domain.SourceTypeCrossref)
	store := newMemJobStore(job)
	acts := newChaosStack(store,
		&stubSource{source: domain.SourceTypeArXiv, searchFunc: outage},
		&stubSource{source: domain.SourceTypeCrossref, searchFunc: outage},
	)

	_, err := runWorkflow(t, acts, job.ID)
	require.Error(t, err)

	var appErr *sdktemporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, activities.ErrTypeNoProviders, appErr.Type())

	// The job record reached its failed terminal state with both outcomes.
	final, getErr := store.GetByID(context.Background(), job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.JobStatusFailed, final.Status)
	require.Len(t, final.Outcomes, 2)
	for _, outcome := range final.Outcomes {
		assert.Equal(t, domain.OutcomeError, outcome.Status)
	}
}

func TestChaos_PartialOutageStillCompletes(t *testing.T) {
	job := newChaosJob(domain.SourceTypeArXiv, domain.SourceTypeCrossref, domain.SourceTypePubMed)
	store := newMemJobStore(job)
	acts := newChaosStack(store,
		healthySource(domain.SourceTypeArXiv, "Surviving Paper A", "Surviving Paper B"),
		&stubSource{
			source: domain.SourceTypeCrossref,
			searchFunc: func(_ context.Context, _ papersources.SearchParams) (*papersources.SearchResult, error) {
				return nil, errors.New("upstream 503")
			},
		},
		&stubSource{
			source: domain.SourceTypePubMed,
			searchFunc: func(_ context.Context, _ papersources.SearchParams) (*papersources.SearchResult, error) {
				return nil, domain.ErrRateLimited
			},
		},
	)

	env, err := runWorkflow(t, acts, job.ID)
	require.NoError(t, err)

	var result workflows.ResearchWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, domain.JobStatusCompleted, result.Status)
	assert.Equal(t, 2, result.PaperCount)
	assert.ElementsMatch(t,
		[]domain.SourceType{domain.SourceTypeCrossref, domain.SourceTypePubMed},
		result.FailedProviders)

	final, getErr := store.GetByID(context.Background(), job.ID)
	require.NoError(t, getErr)
	require.Len(t, final.Outcomes, 3)
	statusByProvider := map[domain.SourceType]domain.OutcomeStatus{}
	for _, outcome := range final.Outcomes {
		statusByProvider[outcome.Provider] = outcome.Status
	}
	assert.Equal(t, domain.OutcomeOK, statusByProvider[domain.SourceTypeArXiv])
	assert.Equal(t, domain.OutcomeError, statusByProvider[domain.SourceTypeCrossref])
	assert.Equal(t, domain.OutcomeRateLimited, statusByProvider[domain.SourceTypePubMed])
}

func TestChaos_SlowProviderTimesOut(t *testing.T) {
	job := newChaosJob(domain.SourceTypeArXiv, domain.SourceTypeSemanticScholar)
	store := newMemJobStore(job)
	acts := newChaosStack(store,
		healthySource(domain.SourceTypeArXiv, "Fast Paper"),
		&stubSource{
			source: domain.SourceTypeSemanticScholar,
			searchFunc: func(ctx context.Context, _ papersources.SearchParams) (*papersources.SearchResult, error) {
				// Hangs until the per-provider deadline fires.
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
	)

	env, err := runWorkflow(t, acts, job.ID)
	require.NoError(t, err)

	var result workflows.ResearchWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, domain.JobStatusCompleted, result.Status)
	assert.Equal(t, []domain.SourceType{domain.SourceTypeSemanticScholar}, result.FailedProviders)

	final, getErr := store.GetByID(context.Background(), job.ID)
	require.NoError(t, getErr)
	statusByProvider := map[domain.SourceType]domain.OutcomeStatus{}
	for _, outcome := range final.Outcomes {
		statusByProvider[outcome.Provider] = outcome.Status
	}
	assert.Equal(t, domain.OutcomeTimeout, statusByProvider[domain.SourceTypeSemanticScholar])
}

func TestChaos_CompletionFlakeRecoversOnRetry(t *testing.T) {
	job := newChaosJob(domain.SourceTypeArXiv)
	store := newMemJobStore(job)
	// First MarkCompleted and the subsequent MarkFailed both flake, leaving
	// the job in_progress so the retried activity can finish it.
	store.completeFlakes = 1
	store.failFlakes = 1
	acts := newChaosStack(store, healthySource(domain.SourceTypeArXiv, "Durable Paper"))

	env, err := runWorkflow(t, acts, job.ID)
	require.NoError(t, err)

	var result workflows.ResearchWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, domain.JobStatusCompleted, result.Status)
	assert.Equal(t, 1, result.PaperCount)

	assert.Equal(t, 2, store.completeCalls, "completion should have been attempted twice")

	final, getErr := store.GetByID(context.Background(), job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.JobStatusCompleted, final.Status)
	require.NotNil(t, final.Summary)
	assert.Equal(t, 1, final.Summary.TotalPapers)
}
