package observability

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter_IncAdd(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("test_counter", "Test counter", nil)

	c.Inc()
	c.Add(3.5)

	if c.Value() != 4.5 {
		t.Fatalf("expected 4.5, got %f", c.Value())
	}
}

func TestRegistry_SameSeriesReturned(t *testing.T) {
	r := NewMetricsRegistry()
	a := r.NewCounter("hits", "Hits", map[string]string{"route": "/verify-rule"})
	b := r.NewCounter("hits", "Hits", map[string]string{"route": "/verify-rule"})
	c := r.NewCounter("hits", "Hits", map[string]string{"route": "/"})

	a.Inc()
	b.Inc()
	c.Inc()

	if a != b {
		t.Fatal("expected identical labels to share a series")
	}
	if a.Value() != 2 || c.Value() != 1 {
		t.Fatalf("unexpected values a=%f c=%f", a.Value(), c.Value())
	}
}

func TestGauge_IncDecSet(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.NewGauge("test_gauge", "Test gauge", nil)

	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Fatalf("expected 1, got %f", g.Value())
	}
	g.Set(42)
	g.Add(-2)
	if g.Value() != 40 {
		t.Fatalf("expected 40, got %f", g.Value())
	}
}

func TestHistogram_Observe(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_histogram", "Test histogram", nil, []float64{1, 5, 10})

	h.Observe(0.5)
	h.Observe(3)
	h.Observe(7)
	h.Observe(15)

	if h.Count() != 4 {
		t.Fatalf("expected count 4, got %d", h.Count())
	}
	if h.sum != 25.5 {
		t.Fatalf("expected sum 25.5, got %f", h.sum)
	}
	if h.counts[0] != 1 || h.counts[1] != 2 || h.counts[2] != 3 {
		t.Fatalf("unexpected cumulative buckets %v", h.counts)
	}
}

func TestHistogram_ObserveDuration(t *testing.T) {
	h := NewMetricsRegistry().NewHistogram("d", "d", nil, nil)
	h.ObserveDuration(time.Now().Add(-100 * time.Millisecond))
	if h.sum < 0.1 {
		t.Fatalf("expected sum >= 0.1, got %f", h.sum)
	}
}

func TestDefaultBuckets_Ascending(t *testing.T) {
	buckets := DefaultBuckets()
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			t.Fatal("buckets should be in ascending order")
		}
	}
}

func TestWritePrometheus_Format(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("b_total", "B", map[string]string{"route": "/", "code": "2xx"}).Add(2)
	r.NewGauge("a_gauge", "A", nil).Set(1.5)
	h := r.NewHistogram("c_seconds", "C", nil, []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)

	var buf bytes.Buffer
	r.WritePrometheus(&buf)
	out := buf.String()

	wantLines := []string{
		"# HELP a_gauge A",
		"# TYPE a_gauge gauge",
		"a_gauge 1.5",
		`b_total{code="2xx",route="/"} 2`,
		`c_seconds_bucket{le="0.1"} 1`,
		`c_seconds_bucket{le="1"} 2`,
		`c_seconds_bucket{le="+Inf"} 2`,
		"c_seconds_sum 0.55",
		"c_seconds_count 2",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("missing line %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "a_gauge") > strings.Index(out, "b_total") {
		t.Error("families should be sorted by name")
	}
	if strings.Count(out, "# TYPE b_total") != 1 {
		t.Error("TYPE should be written once per family")
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("test_counter", "A test counter", nil).Inc()

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Fatalf("expected text/plain content type, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "test_counter 1") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics()

	m.RecordVerdict(true, 200*time.Millisecond)
	m.RecordVerdict(false, 100*time.Millisecond)
	m.RecordVerdict(false, 100*time.Millisecond)
	m.RecordFailSafe()
	m.RecordUnrecognized()
	m.RecordRetrieval(false)
	m.RecordRetrieval(true)
	m.RecordTranscription(errors.New("bad audio"))
	m.RecordTranscription(nil)
	m.RecordComplaint()
	m.RecordRequest("/verify-rule", 200, 10*time.Millisecond)

	if m.FailSafeTotal.Value() != 1 || m.UnrecognizedTotal.Value() != 1 {
		t.Error("unexpected classifier counters")
	}
	if m.RetrievalNoMatchTotal.Value() != 1 {
		t.Errorf("expected 1 no-match, got %f", m.RetrievalNoMatchTotal.Value())
	}
	if m.TranscriptionErrors.Value() != 1 || m.ComplaintsTotal.Value() != 1 {
		t.Error("unexpected transcription/complaint counters")
	}
	if m.InferenceDuration.Count() != 3 {
		t.Errorf("expected 3 inference observations, got %d", m.InferenceDuration.Count())
	}

	var buf bytes.Buffer
	m.Registry.WritePrometheus(&buf)
	out := buf.String()
	for _, want := range []string{
		`pramaan_verdicts_total{verdict="safe"} 2`,
		`pramaan_verdicts_total{verdict="bribe_suspected"} 1`,
		`pramaan_http_requests_total{code="2xx",route="/verify-rule"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordVerdict(true, time.Second)
	m.RecordFailSafe()
	m.RecordUnrecognized()
	m.RecordRetrieval(false)
	m.RecordTranscription(errors.New("x"))
	m.RecordComplaint()
	m.RecordRequest("/", 500, time.Second)
}

func TestFormatLabels(t *testing.T) {
	if got := formatLabels(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	got := formatLabels(map[string]string{"z": "1", "a": `q"uote`})
	if got != `{a="q\"uote",z="1"}` {
		t.Errorf("unexpected labels %s", got)
	}
}
