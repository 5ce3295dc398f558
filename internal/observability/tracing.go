// Package observability provides tracing, metrics and logging setup.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the instrumentation scope for all spans.
	TracerName = "github.com/efebarandurmaz/pramaanx"
)

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g. "localhost:4317").
	// If empty, tracing is disabled.
	OTLPEndpoint string
	Insecure     bool

	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "pramaanx",
		ServiceVersion: "0.1.0",
		SampleRate:     1.0,
		Insecure:       true,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown flushes and stops the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Span kinds recorded under pramaan.span.kind.
const (
	SpanKindRetrieval     = "retrieval"
	SpanKindClassify      = "classify"
	SpanKindLLM           = "llm"
	SpanKindTranscription = "transcription"
	SpanKindComplaint     = "complaint"
	SpanKindIngest        = "ingest"
)

func start(ctx context.Context, name, kind string, spanKind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("pramaan.span.kind", kind))
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(spanKind),
		trace.WithAttributes(attrs...),
	)
}

// StartRetrievalSpan starts a span for a fact check.
func StartRetrievalSpan(ctx context.Context, queryLen int) (context.Context, trace.Span) {
	return start(ctx, "retrieval.verify", SpanKindRetrieval, trace.SpanKindInternal,
		attribute.Int("retrieval.query_length", queryLen))
}

// RecordRetrievalResult records whether a fact check found a record.
func RecordRetrievalResult(span trace.Span, found bool, distance float32) {
	span.SetAttributes(attribute.Bool("retrieval.found", found))
	if found {
		span.SetAttributes(attribute.Float64("retrieval.distance", float64(distance)))
	}
}

// StartClassifySpan starts a span for an interaction classification.
func StartClassifySpan(ctx context.Context, transcriptLen int) (context.Context, trace.Span) {
	return start(ctx, "classify", SpanKindClassify, trace.SpanKindInternal,
		attribute.Int("classify.transcript_length", transcriptLen))
}

// RecordVerdict records the classification outcome. recovered marks a
// verdict produced by the fail-safe path.
func RecordVerdict(span trace.Span, suspected, recovered bool) {
	span.SetAttributes(
		attribute.Bool("classify.bribe_suspected", suspected),
		attribute.Bool("classify.failsafe", recovered),
	)
}

// StartLLMSpan starts a span for a model call.
func StartLLMSpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	return start(ctx, "llm.complete", SpanKindLLM, trace.SpanKindClient,
		attribute.String("llm.provider", provider))
}

// RecordLLMMetrics records token usage and latency on a span.
func RecordLLMMetrics(span trace.Span, inputTokens, outputTokens int, duration time.Duration) {
	span.SetAttributes(
		attribute.Int("llm.input_tokens", inputTokens),
		attribute.Int("llm.output_tokens", outputTokens),
		attribute.Int("llm.total_tokens", inputTokens+outputTokens),
		attribute.Int64("llm.duration_ms", duration.Milliseconds()),
	)
}

// StartTranscriptionSpan starts a span for a speech-to-text call.
func StartTranscriptionSpan(ctx context.Context, filename string, size int64) (context.Context, trace.Span) {
	return start(ctx, "transcription", SpanKindTranscription, trace.SpanKindClient,
		attribute.String("transcription.filename", filename),
		attribute.Int64("transcription.bytes", size))
}

// StartComplaintSpan starts a span for complaint rendering.
func StartComplaintSpan(ctx context.Context) (context.Context, trace.Span) {
	return start(ctx, "complaint.generate", SpanKindComplaint, trace.SpanKindInternal)
}

// StartIngestSpan starts a span for a document ingestion.
func StartIngestSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	return start(ctx, "ingest", SpanKindIngest, trace.SpanKindInternal,
		attribute.String("ingest.source", source))
}

// RecordIngestResult records ingestion counts on a span.
func RecordIngestResult(span trace.Span, chunks, chars int) {
	span.SetAttributes(
		attribute.Int("ingest.chunks", chunks),
		attribute.Int("ingest.chars", chars),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
