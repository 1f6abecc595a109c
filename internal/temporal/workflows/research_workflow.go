// Package workflows defines the Temporal workflow that orchestrates a
// research aggregation run.
package workflows

import (
	"time"

	"github.com/google/uuid"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/research-aggregation-service/internal/domain"
	resagg "github.com/helixir/research-aggregation-service/internal/temporal"
	"github.com/helixir/research-aggregation-service/internal/temporal/activities"
)

// Activity timeout constants.
const (
	processActivityTimeout = 10 * time.Minute
)

// ResearchWorkflowInput is an alias for the shared input type defined in the
// parent temporal package.
type ResearchWorkflowInput = resagg.ResearchWorkflowInput

// ResearchWorkflowResult contains the final outcome of an aggregation run.
type ResearchWorkflowResult struct {
	// JobID is the processed job identifier.
	JobID uuid.UUID

	// Status is the final job status (completed or failed).
	Status domain.JobStatus

	// PaperCount is the size of the final paper set.
	PaperCount int

	// FailedProviders lists providers whose searches did not succeed.
	FailedProviders []domain.SourceType
}

// ResearchAggregationWorkflow runs the aggregation pipeline for one job.
// The heavy lifting happens in a single activity so that provider fan-out,
// merge, and persistence stay in ordinary Go code; the workflow contributes
// durable execution and retries around it.
func ResearchAggregationWorkflow(ctx workflow.Context, input ResearchWorkflowInput) (*ResearchWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("research aggregation started", "job_id", input.JobID.String())

	activityCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: processActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				activities.ErrTypeJobNotFound,
				activities.ErrTypeTerminalState,
				activities.ErrTypeNoProviders,
			},
		},
	})

	var acts *activities.AggregationActivities
	var processed activities.ProcessJobResult
	err := workflow.ExecuteActivity(activityCtx, acts.ProcessResearchJob,
		activities.ProcessJobInput{JobID: input.JobID}).Get(ctx, &processed)
	if err != nil {
		logger.Error("research aggregation failed", "job_id", input.JobID.String(), "error", err)
		return nil, err
	}

	result := &ResearchWorkflowResult{
		JobID:           processed.JobID,
		Status:          processed.Status,
		PaperCount:      processed.PaperCount,
		FailedProviders: processed.FailedProviders,
	}

	logger.Info("research aggregation finished",
		"job_id", input.JobID.String(),
		"status", string(result.Status),
		"papers", result.PaperCount)
	return result, nil
}
