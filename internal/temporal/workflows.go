// Package temporal runs document ingestion as a Temporal workflow so large
// or scheduled re-ingestions survive worker restarts.
package temporal

import (
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// IngestionErrorType marks activity failures that retrying cannot fix.
const IngestionErrorType = "IngestionError"

// IngestInput holds the workflow parameters.
type IngestInput struct {
	Source    string
	Label     string
	Reset     bool
	ChunkSize int // zero uses the worker's configured size
}

// IngestOutput holds the workflow result.
type IngestOutput struct {
	Label         string
	Format        string
	Chars         int
	Chunks        int
	Reset         bool
	EntriesBefore int
	EntriesAfter  int
}

// IngestWorkflow loads and chunks the source, then indexes the chunks.
func IngestWorkflow(ctx workflow.Context, input IngestInput) (*IngestOutput, error) {
	logger := workflow.GetLogger(ctx)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{IngestionErrorType},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Step 1: extract and chunk
	var loaded LoadResult
	if err := workflow.ExecuteActivity(ctx, LoadActivity, input).Get(ctx, &loaded); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	logger.Info("source chunked", "label", loaded.Label, "chunks", len(loaded.Chunks))

	// Step 2: embed and store
	var indexed IndexResult
	if err := workflow.ExecuteActivity(ctx, IndexActivity, loaded.Chunks, input.Reset).Get(ctx, &indexed); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	return &IngestOutput{
		Label:         loaded.Label,
		Format:        loaded.Format,
		Chars:         loaded.Chars,
		Chunks:        len(loaded.Chunks),
		Reset:         input.Reset,
		EntriesBefore: indexed.Before,
		EntriesAfter:  indexed.After,
	}, nil
}
