// Package classify triages an interaction transcript for bribery
// indicators. Classification never fails: any inference problem yields the
// negative verdict.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efebarandurmaz/pramaanx/internal/config"
	"github.com/efebarandurmaz/pramaanx/internal/llm"
	"github.com/efebarandurmaz/pramaanx/internal/observability"
)

// Completer is the inference capability the classifier needs.
type Completer interface {
	Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error)
	Name() string
}

// Options configures a Service. Empty fields take the package defaults.
type Options struct {
	Marker     string
	SafeMarker string
	Terms      []string
	Suggestion string
	// Timeout bounds the inference call so a hung backend still reaches
	// the fail-safe path.
	Timeout   time.Duration
	MaxTokens int
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// DefaultTimeout bounds inference when Options.Timeout is unset.
const DefaultTimeout = 20 * time.Second

// Service classifies transcripts with a language model.
type Service struct {
	model      Completer
	marker     string
	safeMarker string
	terms      []string
	suggestion string
	timeout    time.Duration
	maxTokens  int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Service. A nil model is allowed; every transcript then
// classifies as negative.
func New(model Completer, opts Options) *Service {
	s := &Service{
		model:      model,
		marker:     opts.Marker,
		safeMarker: opts.SafeMarker,
		terms:      opts.Terms,
		suggestion: opts.Suggestion,
		timeout:    opts.Timeout,
		maxTokens:  opts.MaxTokens,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if s.marker == "" {
		s.marker = config.DefaultMarker
	}
	if s.safeMarker == "" {
		s.safeMarker = config.DefaultSafeMarker
	}
	if len(s.terms) == 0 {
		s.terms = config.DefaultTerms
	}
	if s.suggestion == "" {
		s.suggestion = config.DefaultSuggestion
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.maxTokens <= 0 {
		s.maxTokens = 64
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Classify returns the verdict for transcript. It always returns a
// well-formed verdict and never panics, whatever the backend does.
func (s *Service) Classify(ctx context.Context, transcript string) Verdict {
	ctx, span := observability.StartClassifySpan(ctx, len(transcript))
	defer span.End()

	if strings.TrimSpace(transcript) == "" {
		observability.RecordVerdict(span, false, false)
		return Negative()
	}

	start := time.Now()
	res := s.infer(ctx, transcript)

	verdict, recovered := Recover(res, s.decide)
	if recovered {
		observability.RecordError(span, res.Err)
		s.metrics.RecordFailSafe()
		s.logger.Warn("inference failed, returning negative verdict", "error", res.Err)
	}

	observability.RecordVerdict(span, verdict.Suspected(), recovered)
	s.metrics.RecordVerdict(verdict.Suspected(), time.Since(start))
	return verdict
}

// decide maps a raw response to a verdict, logging responses that matched
// neither marker so prompt drift is visible.
func (s *Service) decide(raw string) Verdict {
	switch ParseResponse(raw, s.marker, s.safeMarker) {
	case OutcomePositive:
		return Positive(s.suggestion)
	case OutcomeUnrecognized:
		s.metrics.RecordUnrecognized()
		s.logger.Warn("unrecognized classifier response", "response", truncate(raw, 200))
	}
	return Negative()
}

// infer makes one bounded inference call. Errors and panics from the
// backend are returned in the Result rather than propagated.
func (s *Service) infer(ctx context.Context, transcript string) (res Result) {
	if s.model == nil {
		return Result{Err: fmt.Errorf("classify: no inference provider configured")}
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("classify: provider panic: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := observability.StartLLMSpan(ctx, s.model.Name())
	defer span.End()

	start := time.Now()
	resp, err := s.model.Complete(ctx, llm.UserPrompt(BuildPrompt(transcript, s.terms, s.marker, s.safeMarker)), &llm.RequestOptions{
		MaxTokens:   llm.Int(s.maxTokens),
		Temperature: llm.Float(0),
	})
	if err != nil {
		observability.RecordError(span, err)
		return Result{Err: err}
	}
	if resp == nil {
		return Result{Err: llm.ErrEmptyResponse}
	}
	observability.RecordLLMMetrics(span, resp.InputTokens, resp.OutputTokens, time.Since(start))

	s.logger.Debug("classifier response", "provider", s.model.Name(), "response", truncate(resp.Content, 200))
	// Closed reasoning blocks may name the marker while deliberating.
	return Result{Raw: llm.StripThinkingTags(resp.Content)}
}

// BuildPrompt renders the fixed instruction around transcript.
func BuildPrompt(transcript string, terms []string, marker, safeMarker string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = fmt.Sprintf("%q", t)
	}

	var b strings.Builder
	b.WriteString("You are a Bribe Detection System.\n")
	fmt.Fprintf(&b, "Analyze this text: %q\n\n", transcript)
	fmt.Fprintf(&b, "If it mentions %s:\n", strings.Join(quoted, ", "))
	fmt.Fprintf(&b, "OUTPUT: %s_DETECTED\n\n", strings.ToUpper(marker))
	b.WriteString("If it is safe:\n")
	fmt.Fprintf(&b, "OUTPUT: %s\n\n", strings.ToUpper(safeMarker))
	b.WriteString("Do not write anything else. Just the keyword.")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
