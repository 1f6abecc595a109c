package server

import (
	"time"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// Job response types for JSON serialization.

type startJobResponse struct {
	JobID      string    `json:"job_id"`
	WorkflowID string    `json:"workflow_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	Message    string    `json:"message"`
}

type jobStatusResponse struct {
	JobID        string                   `json:"job_id"`
	Query        string                   `json:"query"`
	Status       string                   `json:"status"`
	Outcomes     []domain.ProviderOutcome `json:"provider_outcomes,omitempty"`
	ErrorMessage string                   `json:"error_message,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	StartedAt    *time.Time               `json:"started_at,omitempty"`
	CompletedAt  *time.Time               `json:"completed_at,omitempty"`
	Duration     string                   `json:"duration,omitempty"`
}

type jobResultResponse struct {
	JobID       string                `json:"job_id"`
	Query       string                `json:"query"`
	Papers      []domain.Paper        `json:"papers"`
	Summary     *domain.SummaryReport `json:"summary,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

type filterResultResponse struct {
	JobID       string                `json:"job_id"`
	TotalBefore int                   `json:"total_before"`
	TotalAfter  int                   `json:"total_after"`
	Papers      []domain.Paper        `json:"papers"`
	Summary     *domain.SummaryReport `json:"summary,omitempty"`
}

type jobSummaryResponse struct {
	JobID       string     `json:"job_id"`
	Query       string     `json:"query"`
	Status      string     `json:"status"`
	PaperCount  int        `json:"paper_count"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Duration    string     `json:"duration,omitempty"`
}

type listJobsResponse struct {
	Jobs          []jobSummaryResponse `json:"jobs"`
	NextPageToken string               `json:"next_page_token,omitempty"`
	TotalCount    int                  `json:"total_count"`
}

type deleteJobResponse struct {
	JobID   string `json:"job_id"`
	Deleted bool   `json:"deleted"`
}

// Converter functions

func domainJobToStatusResponse(j *domain.ResearchJob) jobStatusResponse {
	resp := jobStatusResponse{
		JobID:        j.ID.String(),
		Query:        j.Request.Query,
		Status:       string(j.Status),
		Outcomes:     j.Outcomes,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
	if d := j.Duration(); d > 0 {
		resp.Duration = d.String()
	}
	return resp
}

func domainJobToResultResponse(j *domain.ResearchJob) jobResultResponse {
	papers := j.Papers
	if papers == nil {
		papers = []domain.Paper{}
	}
	return jobResultResponse{
		JobID:       j.ID.String(),
		Query:       j.Request.Query,
		Papers:      papers,
		Summary:     j.Summary,
		CompletedAt: j.CompletedAt,
	}
}

func domainJobToSummary(j *domain.ResearchJob) jobSummaryResponse {
	resp := jobSummaryResponse{
		JobID:       j.ID.String(),
		Query:       j.Request.Query,
		Status:      string(j.Status),
		PaperCount:  len(j.Papers),
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}
	if d := j.Duration(); d > 0 {
		resp.Duration = d.String()
	}
	return resp
}
