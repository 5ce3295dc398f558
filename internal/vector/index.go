package vector

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/pramaanx/internal/llm"
)

// Item is an entry awaiting embedding.
type Item struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Options tunes how an Index embeds during Add.
type Options struct {
	BatchSize int // texts per embedding call
	Workers   int // concurrent embedding calls
	Logger    *slog.Logger
}

// Index pairs a Repository with the embedding capability that produces its
// vectors.
type Index struct {
	repo      Repository
	embedder  llm.Embedder
	batchSize int
	workers   int
	logger    *slog.Logger
}

// NewIndex creates an Index.
func NewIndex(repo Repository, embedder llm.Embedder, opts Options) *Index {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Index{
		repo:      repo,
		embedder:  embedder,
		batchSize: opts.BatchSize,
		workers:   opts.Workers,
		logger:    opts.Logger,
	}
}

// Add embeds and stores items. Any id already present in the index or
// repeated within items fails the whole call with an IngestionError and
// nothing is stored.
func (x *Index) Add(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, len(items))
	texts := make([]string, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if _, dup := seen[it.ID]; dup {
			return &IngestionError{Err: fmt.Errorf("%w: %s", ErrDuplicateID, it.ID)}
		}
		seen[it.ID] = struct{}{}
		ids[i] = it.ID
		texts[i] = it.Text
	}

	existing, err := x.repo.Existing(ctx, ids)
	if err != nil {
		return &IngestionError{Err: fmt.Errorf("checking existing ids: %w", err)}
	}
	if len(existing) > 0 {
		return &IngestionError{Err: fmt.Errorf("%w: %s (and %d more)", ErrDuplicateID, existing[0], len(existing)-1)}
	}

	vectors, err := x.embed(ctx, texts)
	if err != nil {
		return &IngestionError{Err: fmt.Errorf("embedding: %w", err)}
	}

	entries := make([]Entry, len(items))
	for i, it := range items {
		entries[i] = Entry{
			ID:       it.ID,
			Content:  it.Text,
			Vector:   vectors[i],
			Metadata: it.Metadata,
		}
	}

	if err := x.repo.Insert(ctx, entries); err != nil {
		return &IngestionError{Err: err}
	}

	x.logger.Info("indexed entries", "count", len(entries), "dims", len(vectors[0]))
	return nil
}

// embed runs batched embedding calls concurrently, preserving input order.
func (x *Index) embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)

	for start := 0; start < len(texts); start += x.batchSize {
		end := min(start+x.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := x.embedder.Embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch [%d:%d]: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("batch [%d:%d]: embedding count mismatch: got %d", start, end, len(vecs))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Query returns the k entries nearest to text, nearest first. An empty index
// returns an empty slice without consulting the embedder.
func (x *Index) Query(ctx context.Context, text string, k int) ([]Match, error) {
	n, err := x.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}
	if n == 0 || k <= 0 {
		return []Match{}, nil
	}

	vecs, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding query: expected 1 vector, got %d", len(vecs))
	}

	matches, err := x.repo.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	return matches, nil
}

// Count returns the number of indexed entries.
func (x *Index) Count(ctx context.Context) (int, error) {
	return x.repo.Count(ctx)
}

// Reset clears the index ahead of a full re-ingestion.
func (x *Index) Reset(ctx context.Context) error {
	return x.repo.Reset(ctx)
}

// Close releases the underlying repository.
func (x *Index) Close() error {
	return x.repo.Close()
}
