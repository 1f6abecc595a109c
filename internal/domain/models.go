// Package domain provides domain models and business logic for the Research Aggregation Service.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle states of a research job.
// These values must match the database enum job_status.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a transition from s to next is allowed by
// the job state machine. Terminal states admit no further transitions.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusInProgress || next == JobStatusFailed
	case JobStatusInProgress:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// SourceType represents the external provider that supplied paper data.
// These values appear verbatim in stored request and paper documents and
// in the public API, so they must stay stable.
type SourceType string

const (
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypePubMed          SourceType = "pubmed"
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypeCrossref        SourceType = "crossref"
)

// AllSourceTypes returns every known source type in alphabetical order.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeArXiv,
		SourceTypeCrossref,
		SourceTypePubMed,
		SourceTypeSemanticScholar,
	}
}

// OutcomeStatus classifies the result of a single provider call.
type OutcomeStatus string

const (
	OutcomeOK          OutcomeStatus = "ok"
	OutcomeTimeout     OutcomeStatus = "timeout"
	OutcomeRateLimited OutcomeStatus = "rate_limited"
	OutcomeError       OutcomeStatus = "error"
)

// FilterSpec holds the optional result filters attached to a research request
// or supplied to the re-filter endpoint. Zero values mean "no constraint".
type FilterSpec struct {
	// YearFrom is the inclusive lower bound on publication year. 0 disables it.
	YearFrom int `json:"year_from,omitempty"`
	// YearTo is the inclusive upper bound on publication year. 0 disables it.
	YearTo int `json:"year_to,omitempty"`
	// MinCitations excludes papers cited fewer times than this.
	MinCitations int `json:"min_citations,omitempty"`
	// Venues restricts results to papers whose venue matches one of these
	// names (case-insensitive substring match).
	Venues []string `json:"venues,omitempty"`
	// RequirePDF excludes papers without a PDF URL.
	RequirePDF bool `json:"require_pdf,omitempty"`
}

// IsZero reports whether the spec imposes no constraints at all.
func (f FilterSpec) IsZero() bool {
	return f.YearFrom == 0 && f.YearTo == 0 && f.MinCitations == 0 &&
		len(f.Venues) == 0 && !f.RequirePDF
}

// Validate checks the filter spec for internal consistency. Errors wrap
// ErrInvalidFilterSpec.
func (f FilterSpec) Validate() error {
	if f.YearFrom < 0 || f.YearTo < 0 {
		return fmt.Errorf("year bounds must be non-negative: %w", ErrInvalidFilterSpec)
	}
	if f.YearFrom != 0 && f.YearTo != 0 && f.YearFrom > f.YearTo {
		return fmt.Errorf("year_from must not exceed year_to: %w", ErrInvalidFilterSpec)
	}
	if f.MinCitations < 0 {
		return fmt.Errorf("min_citations must be non-negative: %w", ErrInvalidFilterSpec)
	}
	return nil
}

// ResearchRequest describes what a user asked the pipeline to do.
// It is immutable once the job is created.
type ResearchRequest struct {
	// Query is the topic query string.
	Query string `json:"query"`
	// MaxResults caps the size of the final, ranked paper set.
	MaxResults int `json:"max_results"`
	// Providers is the set of enabled providers. Empty means all known providers.
	Providers []SourceType `json:"providers,omitempty"`
	// Filters are the optional result filters applied after deduplication.
	Filters FilterSpec `json:"filters,omitempty"`
	// Language is the requested result language code (e.g. "en").
	Language string `json:"language,omitempty"`
}

// EnabledProviders returns the request's provider set, defaulting to all
// known providers when none were selected. The result is a copy.
func (r ResearchRequest) EnabledProviders() []SourceType {
	if len(r.Providers) == 0 {
		return AllSourceTypes()
	}
	out := make([]SourceType, len(r.Providers))
	copy(out, r.Providers)
	return out
}

// ProviderOutcome records how a single provider call ended. One outcome is
// produced per enabled provider per dispatch, regardless of success.
type ProviderOutcome struct {
	Provider    SourceType    `json:"provider"`
	Status      OutcomeStatus `json:"status"`
	RecordCount int           `json:"record_count"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// VenueCount is a venue frequency entry in a summary report.
type VenueCount struct {
	Venue string `json:"venue"`
	Count int    `json:"count"`
}

// SummaryReport holds aggregate statistics over a final paper set.
// It is derived data: recomputed on demand, never mutated in place.
type SummaryReport struct {
	TotalPapers   int                `json:"total_papers"`
	PapersWithPDF int                `json:"papers_with_pdf"`
	AvgCitations  float64            `json:"avg_citations"`
	// DateRange is "min-max" over papers with a known year, or "N/A".
	DateRange string             `json:"date_range"`
	Sources   map[SourceType]int `json:"sources"`
	TopVenues []VenueCount       `json:"top_venues"`
	TopCited  []Paper            `json:"top_cited"`
}

// ResearchJob wraps a ResearchRequest with its lifecycle state, the
// accumulated provider outcomes, and (on completion) the final paper set and
// summary. The job record is mutated only by the pipeline that owns it.
type ResearchJob struct {
	ID           uuid.UUID         `json:"id"`
	Request      ResearchRequest   `json:"request"`
	Status       JobStatus         `json:"status"`
	Outcomes     []ProviderOutcome `json:"outcomes,omitempty"`
	Papers       []Paper           `json:"papers,omitempty"`
	Summary      *SummaryReport    `json:"summary,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// NewResearchJob creates a pending job for the given request.
func NewResearchJob(req ResearchRequest) *ResearchJob {
	return &ResearchJob{
		ID:        uuid.New(),
		Request:   req,
		Status:    JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Duration returns the elapsed time between start and completion, or zero
// when either timestamp is missing.
func (j *ResearchJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// FailedProviders returns the providers whose outcome was not OK.
func (j *ResearchJob) FailedProviders() []SourceType {
	var failed []SourceType
	for _, o := range j.Outcomes {
		if o.Status != OutcomeOK {
			failed = append(failed, o.Provider)
		}
	}
	return failed
}
