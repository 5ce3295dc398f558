package observability

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics and renders them in the
// Prometheus text exposition format.
type MetricsRegistry struct {
	mu       sync.RWMutex
	families map[string]*family
}

type family struct {
	name   string
	help   string
	kind   string
	series map[string]any // label key -> *Counter | *Gauge | *Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Histogram tracks distribution of values.
type Histogram struct {
	labels  map[string]string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates a new metrics registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{families: make(map[string]*family)}
}

// lookup returns the series for name and labels, creating it with mk on
// first use. Repeated calls with the same labels return the same series.
func (r *MetricsRegistry) lookup(name, help, kind string, labels map[string]string, mk func() any) any {
	key := formatLabels(labels)

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.families[name]
	if !ok {
		f = &family{name: name, help: help, kind: kind, series: make(map[string]any)}
		r.families[name] = f
	}
	s, ok := f.series[key]
	if !ok {
		s = mk()
		f.series[key] = s
	}
	return s
}

// NewCounter returns the counter registered under name and labels.
func (r *MetricsRegistry) NewCounter(name, help string, labels map[string]string) *Counter {
	return r.lookup(name, help, "counter", labels, func() any {
		return &Counter{labels: labels}
	}).(*Counter)
}

// NewGauge returns the gauge registered under name and labels.
func (r *MetricsRegistry) NewGauge(name, help string, labels map[string]string) *Gauge {
	return r.lookup(name, help, "gauge", labels, func() any {
		return &Gauge{labels: labels}
	}).(*Gauge)
}

// NewHistogram returns the histogram registered under name and labels.
func (r *MetricsRegistry) NewHistogram(name, help string, labels map[string]string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets()
	}
	return r.lookup(name, help, "histogram", labels, func() any {
		return &Histogram{labels: labels, buckets: buckets, counts: make([]uint64, len(buckets))}
	}).(*Histogram)
}

// DefaultBuckets returns default histogram buckets for latency, in seconds.
func DefaultBuckets() []float64 {
	return []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60}
}

// Inc increments a counter by 1.
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds a value to the counter.
func (c *Counter) Add(v float64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set sets the gauge value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.Add(-1)
}

// Add adds a value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// ObserveDuration records the time elapsed since start.
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Handler returns an HTTP handler for Prometheus metrics.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes all metrics in Prometheus text format, families
// and series in sorted order.
func (r *MetricsRegistry) WritePrometheus(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.families))
	for n := range r.families {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		f := r.families[n]
		b.WriteString("# HELP " + f.name + " " + f.help + "\n")
		b.WriteString("# TYPE " + f.name + " " + f.kind + "\n")

		keys := make([]string, 0, len(f.series))
		for k := range f.series {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			switch s := f.series[k].(type) {
			case *Counter:
				b.WriteString(f.name + k + " " + formatFloat(s.Value()) + "\n")
			case *Gauge:
				b.WriteString(f.name + k + " " + formatFloat(s.Value()) + "\n")
			case *Histogram:
				writeHistogram(&b, f.name, s)
			}
		}
	}
	io.WriteString(w, b.String())
}

func writeHistogram(b *strings.Builder, name string, h *Histogram) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, bound := range h.buckets {
		labels := copyLabels(h.labels)
		labels["le"] = formatFloat(bound)
		b.WriteString(name + "_bucket" + formatLabels(labels) + " " + strconv.FormatUint(h.counts[i], 10) + "\n")
	}
	labels := copyLabels(h.labels)
	labels["le"] = "+Inf"
	b.WriteString(name + "_bucket" + formatLabels(labels) + " " + strconv.FormatUint(h.count, 10) + "\n")
	b.WriteString(name + "_sum" + formatLabels(h.labels) + " " + formatFloat(h.sum) + "\n")
	b.WriteString(name + "_count" + formatLabels(h.labels) + " " + strconv.FormatUint(h.count, 10) + "\n")
}

// formatLabels renders labels sorted by key, or "" when there are none.
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Quote(labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func copyLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Metrics are the service-level metrics. All methods are safe on a nil
// receiver so components can run without instrumentation.
type Metrics struct {
	Registry *MetricsRegistry

	InferenceDuration     *Histogram
	FailSafeTotal         *Counter
	UnrecognizedTotal     *Counter
	RetrievalNoMatchTotal *Counter
	TranscriptionErrors   *Counter
	ComplaintsTotal       *Counter
	InFlight              *Gauge
	IndexEntries          *Gauge
}

// NewMetrics creates the service metrics on a fresh registry.
func NewMetrics() *Metrics {
	r := NewMetricsRegistry()
	return &Metrics{
		Registry:              r,
		InferenceDuration:     r.NewHistogram("pramaan_inference_duration_seconds", "Classifier inference duration", nil, nil),
		FailSafeTotal:         r.NewCounter("pramaan_classifier_failsafe_total", "Inference failures recovered to the negative verdict", nil),
		UnrecognizedTotal:     r.NewCounter("pramaan_classifier_unrecognized_total", "Responses matching neither marker", nil),
		RetrievalNoMatchTotal: r.NewCounter("pramaan_retrieval_no_match_total", "Fact checks with no indexed record", nil),
		TranscriptionErrors:   r.NewCounter("pramaan_transcription_errors_total", "Failed transcriptions", nil),
		ComplaintsTotal:       r.NewCounter("pramaan_complaints_generated_total", "Rendered complaint documents", nil),
		InFlight:              r.NewGauge("pramaan_model_calls_in_flight", "Model-backed requests currently executing", nil),
		IndexEntries:          r.NewGauge("pramaan_index_entries", "Entries in the vector index", nil),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.Registry.Handler()
}

// RecordRequest counts a request by route and status class.
func (m *Metrics) RecordRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	class := strconv.Itoa(status/100) + "xx"
	m.Registry.NewCounter("pramaan_http_requests_total", "HTTP requests", map[string]string{"route": route, "code": class}).Inc()
	m.Registry.NewHistogram("pramaan_http_request_duration_seconds", "HTTP request duration", map[string]string{"route": route}, nil).Observe(duration.Seconds())
}

// RecordVerdict counts a classification outcome.
func (m *Metrics) RecordVerdict(suspected bool, duration time.Duration) {
	if m == nil {
		return
	}
	verdict := "safe"
	if suspected {
		verdict = "bribe_suspected"
	}
	m.Registry.NewCounter("pramaan_verdicts_total", "Classification verdicts", map[string]string{"verdict": verdict}).Inc()
	m.InferenceDuration.Observe(duration.Seconds())
}

// RecordFailSafe counts an inference failure recovered locally.
func (m *Metrics) RecordFailSafe() {
	if m == nil {
		return
	}
	m.FailSafeTotal.Inc()
}

// RecordUnrecognized counts a response that matched neither marker.
func (m *Metrics) RecordUnrecognized() {
	if m == nil {
		return
	}
	m.UnrecognizedTotal.Inc()
}

// RecordRetrieval counts fact checks that found nothing.
func (m *Metrics) RecordRetrieval(found bool) {
	if m == nil || found {
		return
	}
	m.RetrievalNoMatchTotal.Inc()
}

// RecordTranscription counts transcription failures.
func (m *Metrics) RecordTranscription(err error) {
	if m == nil || err == nil {
		return
	}
	m.TranscriptionErrors.Inc()
}

// RecordComplaint counts a successfully rendered complaint.
func (m *Metrics) RecordComplaint() {
	if m == nil {
		return
	}
	m.ComplaintsTotal.Inc()
}
