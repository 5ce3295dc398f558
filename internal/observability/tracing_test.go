package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs an in-memory tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		tp.Shutdown(context.Background())
	})
	return sr
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg.ServiceName != "pramaanx" {
		t.Fatalf("expected service name 'pramaanx', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestClassifySpan_RecordsVerdict(t *testing.T) {
	sr := recordSpans(t)

	ctx, span := StartClassifySpan(context.Background(), 42)
	_, llmSpan := StartLLMSpan(ctx, "ollama")
	RecordLLMMetrics(llmSpan, 50, 3, 120*time.Millisecond)
	RecordError(llmSpan, errors.New("connection refused"))
	llmSpan.End()
	RecordVerdict(span, false, true)
	span.End()

	ended := sr.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(ended))
	}

	llm := ended[0]
	if llm.Name() != "llm.complete" {
		t.Errorf("unexpected span name %s", llm.Name())
	}
	if llm.Status().Code != codes.Error {
		t.Error("expected error status on llm span")
	}
	if v, ok := attr(llm.Attributes(), "llm.total_tokens"); !ok || v.AsInt64() != 53 {
		t.Errorf("unexpected total tokens %v", v)
	}
	if llm.Parent().SpanID() != ended[1].SpanContext().SpanID() {
		t.Error("llm span should be a child of the classify span")
	}

	classify := ended[1]
	if v, ok := attr(classify.Attributes(), "classify.failsafe"); !ok || !v.AsBool() {
		t.Error("expected classify.failsafe=true")
	}
	if v, ok := attr(classify.Attributes(), "pramaan.span.kind"); !ok || v.AsString() != SpanKindClassify {
		t.Errorf("unexpected span kind %v", v)
	}
}

func TestRetrievalSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartRetrievalSpan(context.Background(), 14)
	RecordRetrievalResult(span, true, 0.25)
	span.End()

	s := sr.Ended()[0]
	if v, ok := attr(s.Attributes(), "retrieval.found"); !ok || !v.AsBool() {
		t.Error("expected retrieval.found=true")
	}
	if v, ok := attr(s.Attributes(), "retrieval.distance"); !ok || v.AsFloat64() != 0.25 {
		t.Errorf("unexpected distance %v", v)
	}
}

func TestIngestAndComplaintSpans(t *testing.T) {
	sr := recordSpans(t)

	_, ingest := StartIngestSpan(context.Background(), "ap_rto_fees.pdf")
	RecordIngestResult(ingest, 3, 54)
	ingest.End()

	_, complaint := StartComplaintSpan(context.Background())
	complaint.End()

	_, tr := StartTranscriptionSpan(context.Background(), "clip.wav", 1024)
	tr.End()

	names := map[string]bool{}
	for _, s := range sr.Ended() {
		names[s.Name()] = true
	}
	for _, want := range []string{"ingest", "complaint.generate", "transcription"} {
		if !names[want] {
			t.Errorf("missing span %s", want)
		}
	}
}

func TestRecordError_Nil(t *testing.T) {
	sr := recordSpans(t)
	_, span := StartComplaintSpan(context.Background())
	RecordError(span, nil)
	span.End()
	if sr.Ended()[0].Status().Code == codes.Error {
		t.Error("nil error should not set error status")
	}
}

func TestTracerProvider_Shutdown_NilProvider(t *testing.T) {
	tp := &TracerProvider{}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil error for nil provider, got: %v", err)
	}
}
