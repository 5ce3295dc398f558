// Package ingest loads a source document, chunks it and populates the
// vector index. It runs offline, never concurrently with serving.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/efebarandurmaz/pramaanx/internal/chunk"
	"github.com/efebarandurmaz/pramaanx/internal/metrics"
	"github.com/efebarandurmaz/pramaanx/internal/observability"
	"github.com/efebarandurmaz/pramaanx/internal/vector"
)

// DefaultChunkSize is the chunk length in characters.
const DefaultChunkSize = 300

// Indexer is the write side of the vector index.
type Indexer interface {
	Add(ctx context.Context, items []vector.Item) error
	Reset(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Options configures an Ingester.
type Options struct {
	ChunkSize int
	// Backend names the index backend in reports.
	Backend string
	Logger  *slog.Logger
}

// Request describes one ingestion run.
type Request struct {
	Source string `json:"source"`
	Label  string `json:"label,omitempty"`
	// Reset clears the index first. Without it, ingesting the same label
	// twice fails on duplicate ids.
	Reset bool `json:"reset,omitempty"`
}

// Ingester populates an index from source documents.
type Ingester struct {
	index     Indexer
	chunkSize int
	backend   string
	logger    *slog.Logger
}

// New creates an Ingester.
func New(index Indexer, opts Options) *Ingester {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Ingester{
		index:     index,
		chunkSize: opts.ChunkSize,
		backend:   opts.Backend,
		logger:    opts.Logger,
	}
}

// ChunkSize returns the configured chunk length.
func (in *Ingester) ChunkSize() int { return in.chunkSize }

// Run loads, chunks and indexes req.Source. Every failure is a
// *vector.IngestionError naming the source.
func (in *Ingester) Run(ctx context.Context, req Request) (*metrics.IngestMetrics, error) {
	ctx, span := observability.StartIngestSpan(ctx, req.Source)
	defer span.End()

	report := metrics.New()
	report.Index.Backend = in.backend

	doc, err := Load(req.Source, req.Label)
	if err != nil {
		err = &vector.IngestionError{Source: req.Source, Err: err}
		observability.RecordError(span, err)
		return report, err
	}
	report.Source = metrics.SourceMetrics{
		Path:   doc.Path,
		Label:  doc.Label,
		Format: doc.Format,
		Pages:  doc.Pages,
		Bytes:  doc.Bytes,
		Chars:  utf8.RuneCountInString(doc.Text),
	}
	in.logger.Info("loaded source", "path", doc.Path, "format", doc.Format, "chars", report.Source.Chars)

	chunks, err := in.Chunk(doc)
	if err != nil {
		err = &vector.IngestionError{Source: req.Source, Err: err}
		observability.RecordError(span, err)
		return report, err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	report.CollectChunks(in.chunkSize, texts)

	if err := in.Store(ctx, chunks, req.Reset, report); err != nil {
		var ierr *vector.IngestionError
		if errors.As(err, &ierr) {
			if ierr.Source == "" {
				ierr.Source = req.Source
			}
		} else {
			err = &vector.IngestionError{Source: req.Source, Err: err}
		}
		observability.RecordError(span, err)
		return report, err
	}

	report.Finish()
	observability.RecordIngestResult(span, report.Chunks.Count, report.Source.Chars)
	in.logger.Info("ingestion complete",
		"source", doc.Label,
		"chunks", report.Chunks.Count,
		"entries", report.Index.After,
		"duration", report.Duration,
	)
	return report, nil
}

// Chunk splits doc into labelled chunks.
func (in *Ingester) Chunk(doc *Document) ([]chunk.Chunk, error) {
	return chunk.Document(doc.Label, doc.Text, in.chunkSize)
}

// Store optionally clears the index and then adds chunks. report may be nil.
func (in *Ingester) Store(ctx context.Context, chunks []chunk.Chunk, reset bool, report *metrics.IngestMetrics) error {
	if report == nil {
		report = metrics.New()
	}

	if reset {
		if err := in.index.Reset(ctx); err != nil {
			return fmt.Errorf("resetting index: %w", err)
		}
		report.Index.Reset = true
		in.logger.Info("index reset")
	}

	before, err := in.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting entries: %w", err)
	}
	report.Index.Before = before

	if err := in.index.Add(ctx, Items(chunks)); err != nil {
		return err
	}

	after, err := in.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting entries: %w", err)
	}
	report.Index.After = after
	return nil
}

// Items converts chunks to index items keyed by "label:seq" and carrying
// the source label and sequence as metadata.
func Items(chunks []chunk.Chunk) []vector.Item {
	items := make([]vector.Item, len(chunks))
	for i, c := range chunks {
		items[i] = vector.Item{
			ID:   c.ID(),
			Text: c.Text,
			Metadata: map[string]string{
				vector.MetaSource: c.Label,
				vector.MetaSeq:    strconv.Itoa(c.Seq),
			},
		}
	}
	return items
}
