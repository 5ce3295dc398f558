// Package httpapi exposes fact checking, interaction triage, transcription
// and complaint generation over HTTP.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/efebarandurmaz/pramaanx/internal/classify"
	"github.com/efebarandurmaz/pramaanx/internal/complaint"
	"github.com/efebarandurmaz/pramaanx/internal/heatmap"
	"github.com/efebarandurmaz/pramaanx/internal/observability"
	"github.com/efebarandurmaz/pramaanx/internal/retrieval"
	"github.com/efebarandurmaz/pramaanx/internal/server"
)

// Verifier checks a fee claim against the official records.
type Verifier interface {
	Verify(ctx context.Context, query string) (retrieval.Result, error)
}

// Classifier triages a transcript. It never fails.
type Classifier interface {
	Classify(ctx context.Context, transcript string) classify.Verdict
}

// Transcriber converts an uploaded recording to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// ComplaintGenerator renders a complaint for a transcript.
type ComplaintGenerator interface {
	Generate(ctx context.Context, transcript string) (*complaint.Artifact, error)
}

// Services are the request handlers' collaborators, constructed once at
// startup.
type Services struct {
	Verifier    Verifier
	Classifier  Classifier
	Transcriber Transcriber
	Complaints  ComplaintGenerator
}

// Config holds API server configuration.
type Config struct {
	Addr         string
	CORSOrigin   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxInFlight bounds concurrent model-backed requests. Requests beyond
	// it wait for a slot rather than being rejected.
	MaxInFlight    int64
	MaxUploadBytes int64
	Heatmap        []heatmap.Point
	Health         *server.HealthServer
	Metrics        *observability.Metrics
	Logger         *slog.Logger
}

// Server is the API HTTP server.
type Server struct {
	svc     Services
	cfg     Config
	sem     *semaphore.Weighted
	logger  *slog.Logger
	metrics *observability.Metrics
	handler http.Handler
}

// New creates the API server.
func New(svc Services, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 8
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	if cfg.Heatmap == nil {
		cfg.Heatmap = heatmap.DefaultPoints()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		svc:     svc,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.MaxInFlight),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("POST /verify-rule", s.limited(s.handleVerify))
	mux.HandleFunc("POST /analyze-interaction", s.limited(s.handleAnalyze))
	mux.HandleFunc("POST /upload-audio", s.limited(s.handleUpload))
	mux.HandleFunc("POST /generate-complaint", s.handleComplaint)
	mux.HandleFunc("GET /heatmap-data", s.handleHeatmap)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}
	if cfg.Health != nil {
		cfg.Health.Register(mux)
	}

	s.handler = corsMiddleware(cfg.CORSOrigin, s.loggingMiddleware(mux))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HTTPServer builds the net/http server for the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// limited runs next once a model slot is free. A request whose client goes
// away while waiting is answered with 503.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sem.Acquire(r.Context(), 1); err != nil {
			respondError(w, http.StatusServiceUnavailable, "server busy")
			return
		}
		defer s.sem.Release(1)

		if s.metrics != nil {
			s.metrics.InFlight.Inc()
			defer s.metrics.InFlight.Dec()
		}
		next(w, r)
	}
}
