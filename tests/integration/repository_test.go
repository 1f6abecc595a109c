//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-aggregation-service/internal/domain"
	"github.com/helixir/research-aggregation-service/internal/repository"
)

func newIntegrationJob(query string) *domain.ResearchJob {
	job := domain.NewResearchJob(domain.ResearchRequest{
		Query:      query,
		MaxResults: 25,
		Providers:  []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeCrossref},
		Language:   "en",
	})
	job.CreatedAt = job.CreatedAt.Truncate(time.Microsecond)
	return job
}

func TestPgJobRepository_Integration(t *testing.T) {
	cleanTable(t, "research_jobs")
	repo := repository.NewPgJobRepository(testPool)
	ctx := context.Background()

	t.Run("Create and Get roundtrip", func(t *testing.T) {
		job := newIntegrationJob("graph neural networks")
		require.NoError(t, repo.Create(ctx, job))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, job.Request.Query, got.Request.Query)
		assert.Equal(t, job.Request.Providers, got.Request.Providers)
		assert.Equal(t, domain.JobStatusPending, got.Status)
		assert.Nil(t, got.StartedAt)
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("Create duplicate returns already exists", func(t *testing.T) {
		job := newIntegrationJob("duplicate job")
		require.NoError(t, repo.Create(ctx, job))

		err := repo.Create(ctx, job)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("Get missing job returns not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("full lifecycle pending to completed", func(t *testing.T) {
		job := newIntegrationJob("lifecycle test")
		require.NoError(t, repo.Create(ctx, job))

		require.NoError(t, repo.MarkStarted(ctx, job.ID))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusInProgress, got.Status)
		require.NotNil(t, got.StartedAt)

		outcomes := []domain.ProviderOutcome{
			{Provider: domain.SourceTypeArXiv, Status: domain.OutcomeOK, RecordCount: 2},
			{Provider: domain.SourceTypeCrossref, Status: domain.OutcomeTimeout, Error: "deadline exceeded"},
		}
		papers := []domain.Paper{
			{
				ID:              uuid.New(),
				Title:           "Integration Test Paper",
				Year:            2023,
				CitationCount:   42,
				DOI:             "10.1234/integration",
				SourceProviders: []domain.SourceType{domain.SourceTypeArXiv},
			},
		}
		report := domain.SummaryReport{
			TotalPapers:  1,
			AvgCitations: 42,
			DateRange:    "2023-2023",
			Sources:      map[domain.SourceType]int{domain.SourceTypeArXiv: 1},
		}
		require.NoError(t, repo.MarkCompleted(ctx, job.ID, outcomes, papers, report))

		got, err = repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, got.Status)
		require.NotNil(t, got.CompletedAt)
		require.Len(t, got.Papers, 1)
		assert.Equal(t, "Integration Test Paper", got.Papers[0].Title)
		require.Len(t, got.Outcomes, 2)
		assert.Equal(t, domain.OutcomeTimeout, got.Outcomes[1].Status)
		require.NotNil(t, got.Summary)
		assert.Equal(t, 1, got.Summary.TotalPapers)
	})

	t.Run("MarkFailed from pending", func(t *testing.T) {
		job := newIntegrationJob("fails before start")
		require.NoError(t, repo.Create(ctx, job))

		require.NoError(t, repo.MarkFailed(ctx, job.ID, nil, "workflow start failed"))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, got.Status)
		assert.Equal(t, "workflow start failed", got.ErrorMessage)
	})

	t.Run("terminal jobs reject further transitions", func(t *testing.T) {
		job := newIntegrationJob("terminal guard")
		require.NoError(t, repo.Create(ctx, job))
		require.NoError(t, repo.MarkStarted(ctx, job.ID))
		require.NoError(t, repo.MarkFailed(ctx, job.ID, nil, "provider outage"))

		err := repo.MarkStarted(ctx, job.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTerminalState)

		err = repo.MarkCompleted(ctx, job.ID, nil, nil, domain.SummaryReport{})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTerminalState)
	})

	t.Run("MarkStarted is idempotent while in progress", func(t *testing.T) {
		job := newIntegrationJob("double start")
		require.NoError(t, repo.Create(ctx, job))
		require.NoError(t, repo.MarkStarted(ctx, job.ID))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		startedAt := got.StartedAt

		require.NoError(t, repo.MarkStarted(ctx, job.ID))

		got, err = repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, startedAt, got.StartedAt, "second MarkStarted must not reset the start time")
	})

	t.Run("Delete removes job", func(t *testing.T) {
		job := newIntegrationJob("to be deleted")
		require.NoError(t, repo.Create(ctx, job))

		require.NoError(t, repo.Delete(ctx, job.ID))

		_, err := repo.GetByID(ctx, job.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = repo.Delete(ctx, job.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPgJobRepository_List_Integration(t *testing.T) {
	cleanTable(t, "research_jobs")
	repo := repository.NewPgJobRepository(testPool)
	ctx := context.Background()

	// Insert jobs with distinct creation times so ordering is deterministic.
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		job := newIntegrationJob("list test")
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, job))
		ids = append(ids, job.ID)
	}

	t.Run("newest first with total count", func(t *testing.T) {
		jobs, total, err := repo.List(ctx, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		require.Len(t, jobs, 5)
		assert.Equal(t, ids[4], jobs[0].ID)
		assert.Equal(t, ids[0], jobs[4].ID)
	})

	t.Run("pagination window", func(t *testing.T) {
		jobs, total, err := repo.List(ctx, 2, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		require.Len(t, jobs, 2)
		assert.Equal(t, ids[2], jobs[0].ID)
		assert.Equal(t, ids[1], jobs[1].ID)
	})

	t.Run("offset past the end", func(t *testing.T) {
		jobs, total, err := repo.List(ctx, 10, 100)
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		assert.Empty(t, jobs)
	})
}
