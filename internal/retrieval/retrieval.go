// Package retrieval answers fee claims with the closest official record in
// the vector index.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efebarandurmaz/pramaanx/internal/observability"
	"github.com/efebarandurmaz/pramaanx/internal/vector"
)

// No-match marker values.
const (
	NoMatchFact   = "No official record found."
	NoMatchSource = "N/A"
)

// Querier is the read side of the vector index.
type Querier interface {
	Query(ctx context.Context, text string, k int) ([]vector.Match, error)
}

// Result is the outcome of a fact check. When Found is false Fact and Source
// carry the no-match marker.
type Result struct {
	Fact     string  `json:"fact"`
	Source   string  `json:"source"`
	Found    bool    `json:"-"`
	ID       string  `json:"-"`
	Distance float32 `json:"-"`
}

// NoMatch returns the explicit empty result.
func NoMatch() Result {
	return Result{Fact: NoMatchFact, Source: NoMatchSource}
}

// Options configures a Service.
type Options struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Service performs fact checks against the index.
type Service struct {
	index   Querier
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Service over index.
func New(index Querier, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{index: index, logger: opts.Logger, metrics: opts.Metrics}
}

// Verify returns the single indexed chunk nearest to query. An empty index
// yields NoMatch and no error; only a failing index or embedder is an error.
func (s *Service) Verify(ctx context.Context, query string) (Result, error) {
	ctx, span := observability.StartRetrievalSpan(ctx, len(query))
	defer span.End()

	start := time.Now()
	matches, err := s.index.Query(ctx, query, 1)
	if err != nil {
		observability.RecordError(span, err)
		return Result{}, fmt.Errorf("verify: %w", err)
	}

	if len(matches) == 0 {
		observability.RecordRetrievalResult(span, false, 0)
		s.metrics.RecordRetrieval(false)
		s.logger.Debug("no official record", "query_len", len(query))
		return NoMatch(), nil
	}

	m := matches[0]
	observability.RecordRetrievalResult(span, true, m.Distance)
	s.metrics.RecordRetrieval(true)
	s.logger.Debug("official record found",
		"id", m.ID,
		"distance", m.Distance,
		"duration", time.Since(start),
	)

	return Result{
		Fact:     m.Content,
		Source:   sourceOf(m),
		Found:    true,
		ID:       m.ID,
		Distance: m.Distance,
	}, nil
}

// sourceOf prefers the recorded source label and falls back to the label
// half of a "label:seq" id.
func sourceOf(m vector.Match) string {
	if src := m.Source(); src != "" {
		return src
	}
	if i := strings.LastIndexByte(m.ID, ':'); i > 0 {
		return m.ID[:i]
	}
	return m.ID
}
