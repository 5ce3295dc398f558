package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(IngestWorkflow)
	w.RegisterActivity(LoadActivity)
	w.RegisterActivity(IndexActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// SubmitIngest starts an ingestion workflow and waits for its result. The
// workflow id is derived from the label so that a second submission for the
// same document while one is running is rejected by the server.
func SubmitIngest(ctx context.Context, c client.Client, taskQueue string, input IngestInput) (*IngestOutput, error) {
	id := "ingest-" + input.Label
	if input.Label == "" {
		id = "ingest-" + input.Source
	}

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: taskQueue,
	}, IngestWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("starting ingest workflow: %w", err)
	}

	var out IngestOutput
	if err := run.Get(ctx, &out); err != nil {
		return nil, fmt.Errorf("ingest workflow %s: %w", run.GetID(), err)
	}
	return &out, nil
}
