package temporal

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/pramaanx/internal/chunk"
	"github.com/efebarandurmaz/pramaanx/internal/ingest"
	"github.com/efebarandurmaz/pramaanx/internal/metrics"
	"github.com/efebarandurmaz/pramaanx/internal/vector"
)

// LoadResult is the serializable output of LoadActivity.
type LoadResult struct {
	Label  string
	Format string
	Chars  int
	Chunks []chunk.Chunk
}

// IndexResult is the serializable output of IndexActivity.
type IndexResult struct {
	Before int
	After  int
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Ingester *ingest.Ingester
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

func currentDeps() (*Dependencies, error) {
	if deps == nil || deps.Ingester == nil {
		return nil, errors.New("temporal: dependencies not set")
	}
	return deps, nil
}

// LoadActivity extracts the source text and splits it into chunks. A
// missing or unreadable source is not retried.
func LoadActivity(ctx context.Context, input IngestInput) (LoadResult, error) {
	d, err := currentDeps()
	if err != nil {
		return LoadResult{}, err
	}

	doc, err := ingest.Load(input.Source, input.Label)
	if err != nil {
		return LoadResult{}, nonRetryable(&vector.IngestionError{Source: input.Source, Err: err})
	}

	size := input.ChunkSize
	if size <= 0 {
		size = d.Ingester.ChunkSize()
	}
	chunks, err := chunk.Document(doc.Label, doc.Text, size)
	if err != nil {
		return LoadResult{}, nonRetryable(&vector.IngestionError{Source: input.Source, Err: err})
	}

	return LoadResult{
		Label:  doc.Label,
		Format: doc.Format,
		Chars:  utf8.RuneCountInString(doc.Text),
		Chunks: chunks,
	}, nil
}

// IndexActivity stores chunks, clearing the index first when reset is set.
// Duplicate ids are not retried; embedding or storage failures are.
func IndexActivity(ctx context.Context, chunks []chunk.Chunk, reset bool) (IndexResult, error) {
	d, err := currentDeps()
	if err != nil {
		return IndexResult{}, err
	}

	report := metrics.New()
	if err := d.Ingester.Store(ctx, chunks, reset, report); err != nil {
		if errors.Is(err, vector.ErrDuplicateID) {
			return IndexResult{}, nonRetryable(err)
		}
		return IndexResult{}, fmt.Errorf("storing chunks: %w", err)
	}
	return IndexResult{Before: report.Index.Before, After: report.Index.After}, nil
}

func nonRetryable(err error) error {
	return sdktemporal.NewNonRetryableApplicationError(err.Error(), IngestionErrorType, err)
}
