package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helixir/research-aggregation-service/internal/domain"
	"github.com/helixir/research-aggregation-service/internal/export"
	"github.com/helixir/research-aggregation-service/internal/rank"
	"github.com/helixir/research-aggregation-service/internal/summary"
	"github.com/helixir/research-aggregation-service/internal/temporal"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	defaultMaxResults  = 20
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// startResearchRequest is the JSON request body for starting a research job.
type startResearchRequest struct {
	Query      string             `json:"query" validate:"required,min=3,max=500"`
	MaxResults int                `json:"max_results" validate:"omitempty,min=1,max=100"`
	Providers  []string           `json:"providers" validate:"omitempty,dive,oneof=arxiv crossref pubmed semantic_scholar"`
	Filters    *domain.FilterSpec `json:"filters"`
	Language   string             `json:"language" validate:"omitempty,min=2,max=5"`
}

// newValidator creates the request validator, reporting fields by their
// JSON names so validation errors match what clients actually sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage renders the first field error in a client-friendly form.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// startResearchJob handles POST /api/v1/research.
// It creates a pending job and starts the Temporal workflow that processes it.
func (s *Server) startResearchJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req startResearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	var filters domain.FilterSpec
	if req.Filters != nil {
		if err := req.Filters.Validate(); err != nil {
			writeDomainError(w, err)
			return
		}
		filters = *req.Filters
	}

	providers := make([]domain.SourceType, len(req.Providers))
	for i, p := range req.Providers {
		providers[i] = domain.SourceType(p)
	}

	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = s.defaultMaxResults
	}

	job := domain.NewResearchJob(domain.ResearchRequest{
		Query:      req.Query,
		MaxResults: maxResults,
		Providers:  providers,
		Filters:    filters,
		Language:   req.Language,
	})

	if err := s.jobs.Create(ctx, job); err != nil {
		writeDomainError(w, err)
		return
	}

	workflowID, runID, err := s.workflowClient.StartResearchWorkflow(ctx, job.ID, s.workflowFunc)
	if err != nil {
		// Best-effort: don't leave an unstartable job pending forever.
		_ = s.jobs.MarkFailed(ctx, job.ID, nil, "failed to start workflow")
		writeDomainError(w, err)
		return
	}

	s.logger.Info().
		Str("job_id", job.ID.String()).
		Str("workflow_id", workflowID).
		Str("run_id", runID).
		Str("query", job.Request.Query).
		Msg("research job started")

	writeJSON(w, http.StatusAccepted, startJobResponse{
		JobID:      job.ID.String(),
		WorkflowID: workflowID,
		Status:     string(job.Status),
		CreatedAt:  job.CreatedAt,
		Message:    "research job accepted",
	})
}

// getJobStatus handles GET /api/v1/research/{jobID}/status.
func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseUUID(w, chi.URLParam(r, "jobID"), "job_id")
	if !ok {
		return
	}

	job, err := s.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainJobToStatusResponse(job))
}

// getJobResult handles GET /api/v1/research/{jobID}/result.
// Results are only available once the job reaches the completed state.
func (s *Server) getJobResult(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseUUID(w, chi.URLParam(r, "jobID"), "job_id")
	if !ok {
		return
	}

	job, err := s.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if job.Status != domain.JobStatusCompleted {
		writeDomainError(w, domain.ErrJobNotCompleted)
		return
	}

	writeJSON(w, http.StatusOK, domainJobToResultResponse(job))
}

// filterJobResult handles POST /api/v1/research/{jobID}/filter.
// It re-applies filter criteria to the stored result set without mutating
// the job record, and recomputes the summary over the filtered subset.
func (s *Server) filterJobResult(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseUUID(w, chi.URLParam(r, "jobID"), "job_id")
	if !ok {
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var spec domain.FilterSpec
	if len(body) > 0 {
		if err := json.Unmarshal(body, &spec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON request body")
			return
		}
	}
	if err := spec.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	job, err := s.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if job.Status != domain.JobStatusCompleted {
		writeDomainError(w, domain.ErrJobNotCompleted)
		return
	}

	filtered := rank.Filter(job.Papers, spec)
	report := summary.Build(filtered)

	writeJSON(w, http.StatusOK, filterResultResponse{
		JobID:       job.ID.String(),
		TotalBefore: len(job.Papers),
		TotalAfter:  len(filtered),
		Papers:      filtered,
		Summary:     &report,
	})
}

// exportJobResult handles GET /api/v1/research/{jobID}/export?format=.
// The serialized result set is returned as a file download.
func (s *Server) exportJobResult(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseUUID(w, chi.URLParam(r, "jobID"), "job_id")
	if !ok {
		return
	}

	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatCSV
	}

	job, err := s.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if job.Status != domain.JobStatusCompleted {
		writeDomainError(w, domain.ErrJobNotCompleted)
		return
	}

	data, err := export.Export(job.Papers, format)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordExport(string(format))
	}

	filename := fmt.Sprintf("research-%s.%s", job.ID, format.FileExtension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// deleteResearchJob handles DELETE /api/v1/research/{jobID}.
// A running job's workflow is cancelled before the record is removed.
func (s *Server) deleteResearchJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, ok := parseUUID(w, chi.URLParam(r, "jobID"), "job_id")
	if !ok {
		return
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !job.Status.IsTerminal() && s.workflowClient != nil {
		// Best-effort: the workflow may have already finished or never started.
		if cancelErr := s.workflowClient.CancelWorkflow(ctx, temporal.WorkflowIDForJob(jobID), ""); cancelErr != nil &&
			!errors.Is(cancelErr, temporal.ErrWorkflowNotFound) {
			s.logger.Warn().Err(cancelErr).Str("job_id", jobID.String()).Msg("workflow cancellation failed")
		}
	}

	if err := s.jobs.Delete(ctx, jobID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteJobResponse{
		JobID:   jobID.String(),
		Deleted: true,
	})
}

// listResearchJobs handles GET /api/v1/research.
// It returns a paginated list of job summaries, newest first.
func (s *Server) listResearchJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	jobs, totalCount, err := s.jobs.List(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summaries := make([]jobSummaryResponse, len(jobs))
	for i, job := range jobs {
		summaries[i] = domainJobToSummary(job)
	}

	writeJSON(w, http.StatusOK, listJobsResponse{
		Jobs:          summaries,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// writeDomainError maps domain and temporal errors to appropriate HTTP status
// codes and writes a JSON error response. Internal error details are not
// leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrExportFormatUnsupported):
		writeError(w, http.StatusBadRequest, "unsupported export format")
	case errors.Is(err, domain.ErrInvalidFilterSpec):
		writeError(w, http.StatusBadRequest, "invalid filter spec")
	case errors.Is(err, domain.ErrJobNotCompleted):
		writeError(w, http.StatusConflict, "job not completed")
	case errors.Is(err, domain.ErrTerminalState):
		writeError(w, http.StatusConflict, "job already in terminal state")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, temporal.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, temporal.ErrWorkflowAlreadyStarted):
		writeError(w, http.StatusConflict, "workflow already started")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if invalid.
// The parse error details are not included to avoid echoing potentially
// malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query
// parameters, applying default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodePageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodePageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
