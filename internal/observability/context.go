package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	jobIDKey      contextKey = "job_id"
	workflowIDKey contextKey = "workflow_id"
	runIDKey      contextKey = "workflow_run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithJobID adds a research job ID to the context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// JobIDFromContext retrieves the research job ID from context.
// Returns empty string if not present.
func JobIDFromContext(ctx context.Context) string {
	if v := ctx.Value(jobIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithWorkflow adds workflow ID and run ID to the context.
func WithWorkflow(ctx context.Context, workflowID, runID string) context.Context {
	ctx = context.WithValue(ctx, workflowIDKey, workflowID)
	ctx = context.WithValue(ctx, runIDKey, runID)
	return ctx
}

// WorkflowFromContext retrieves workflow ID and run ID from context.
// Returns empty strings if not present.
func WorkflowFromContext(ctx context.Context) (workflowID, runID string) {
	if v := ctx.Value(workflowIDKey); v != nil {
		if id, ok := v.(string); ok {
			workflowID = id
		}
	}
	if v := ctx.Value(runIDKey); v != nil {
		if id, ok := v.(string); ok {
			runID = id
		}
	}
	return workflowID, runID
}

// JobContext contains all the context data for an aggregation job.
type JobContext struct {
	RequestID  string
	JobID      string
	WorkflowID string
	RunID      string
}

// WithJobContextFull adds all job context to the context.
func WithJobContextFull(ctx context.Context, jc JobContext) context.Context {
	if jc.RequestID != "" {
		ctx = WithRequestID(ctx, jc.RequestID)
	}
	if jc.JobID != "" {
		ctx = WithJobID(ctx, jc.JobID)
	}
	if jc.WorkflowID != "" || jc.RunID != "" {
		ctx = WithWorkflow(ctx, jc.WorkflowID, jc.RunID)
	}
	return ctx
}

// JobContextFromContext extracts all job context from the context.
func JobContextFromContext(ctx context.Context) JobContext {
	workflowID, runID := WorkflowFromContext(ctx)

	return JobContext{
		RequestID:  RequestIDFromContext(ctx),
		JobID:      JobIDFromContext(ctx),
		WorkflowID: workflowID,
		RunID:      runID,
	}
}
