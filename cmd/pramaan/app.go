package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/pramaanx/internal/classify"
	"github.com/efebarandurmaz/pramaanx/internal/complaint"
	"github.com/efebarandurmaz/pramaanx/internal/config"
	"github.com/efebarandurmaz/pramaanx/internal/ingest"
	"github.com/efebarandurmaz/pramaanx/internal/llm"
	"github.com/efebarandurmaz/pramaanx/internal/llmutil"
	"github.com/efebarandurmaz/pramaanx/internal/observability"
	"github.com/efebarandurmaz/pramaanx/internal/retrieval"
	"github.com/efebarandurmaz/pramaanx/internal/speech"
	"github.com/efebarandurmaz/pramaanx/internal/speech/whisper"
	"github.com/efebarandurmaz/pramaanx/internal/vector"
	"github.com/efebarandurmaz/pramaanx/internal/vector/memory"
	"github.com/efebarandurmaz/pramaanx/internal/vector/qdrant"
	"github.com/efebarandurmaz/pramaanx/internal/vector/sqlite"
)

// app holds what every subcommand shares: configuration, logging, tracing,
// the providers and the opened index.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   *observability.TracerProvider
	model    llm.Provider
	embedder llm.Provider
	index    *vector.Index
}

// services are the request-path components, built once per process.
type services struct {
	retrieval  *retrieval.Service
	classifier *classify.Service
	speech     *speech.Service
	complaints *complaint.Generator
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, nil)
	slog.SetDefault(logger)

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	factory := llmutil.NewFactory()

	model, err := factory.Create(llm.ProviderConfig{
		Provider:          cfg.LLM.Provider,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		BaseURL:           cfg.LLM.BaseURL,
		Timeout:           cfg.LLM.Timeout,
		MaxRetries:        cfg.LLM.MaxRetries,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	if err != nil {
		tp.Shutdown(ctx)
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if model == nil {
		logger.Warn("no LLM provider configured; every interaction will be classified as safe")
	}

	emb := cfg.ResolvedEmbedding()
	embedder, err := factory.Create(llm.ProviderConfig{
		Provider:   emb.Provider,
		APIKey:     emb.APIKey,
		EmbedModel: emb.Model,
		BaseURL:    emb.BaseURL,
		Dimensions: emb.Dimensions,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		tp.Shutdown(ctx)
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	if embedder == nil {
		tp.Shutdown(ctx)
		return nil, errors.New("an embedding provider is required; set embedding.provider")
	}

	repo, err := openRepository(cfg.Index)
	if err != nil {
		tp.Shutdown(ctx)
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  observability.NewMetrics(),
		tracer:   tp,
		model:    model,
		embedder: embedder,
		index: vector.NewIndex(repo, embedder, vector.Options{
			BatchSize: emb.BatchSize,
			Workers:   emb.Workers,
			Logger:    logger,
		}),
	}

	if n, err := a.index.Count(ctx); err == nil {
		a.metrics.IndexEntries.Set(float64(n))
		if n == 0 {
			logger.Warn("index is empty; run `pramaan ingest` before serving fact checks", "backend", cfg.Index.Backend)
		}
	}
	return a, nil
}

func openRepository(cfg config.IndexConfig) (vector.Repository, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return sqlite.Open(cfg.Path)
	case "qdrant":
		return qdrant.New(cfg.Host, cfg.Port, cfg.Collection)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

func (a *app) close(ctx context.Context) {
	if err := a.index.Close(); err != nil {
		a.logger.Warn("closing index", "error", err)
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("shutting down tracer", "error", err)
	}
}

func (a *app) ingester(chunkSize int) *ingest.Ingester {
	return ingest.New(a.index, ingest.Options{
		ChunkSize: chunkSize,
		Backend:   a.cfg.Index.Backend,
		Logger:    a.logger,
	})
}

func (a *app) services() (*services, error) {
	sp := a.cfg.ResolvedSpeech()
	backend, err := whisper.New(whisper.Config{
		Provider: sp.Provider,
		APIKey:   sp.APIKey,
		BaseURL:  sp.BaseURL,
		Model:    sp.Model,
		Language: sp.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("creating speech provider: %w", err)
	}

	var model classify.Completer
	if a.model != nil {
		model = a.model
	}

	return &services{
		retrieval: retrieval.New(a.index, retrieval.Options{
			Logger:  a.logger,
			Metrics: a.metrics,
		}),
		classifier: classify.New(model, classify.Options{
			Marker:     a.cfg.Classifier.Marker,
			SafeMarker: a.cfg.Classifier.SafeMarker,
			Terms:      a.cfg.Classifier.Terms,
			Suggestion: a.cfg.Classifier.Suggestion,
			Timeout:    a.cfg.Classifier.Timeout,
			MaxTokens:  a.cfg.LLM.MaxTokens,
			Logger:     a.logger,
			Metrics:    a.metrics,
		}),
		speech: speech.New(backend, speech.Options{
			TempDir: sp.TempDir,
			Timeout: sp.Timeout,
			Logger:  a.logger,
			Metrics: a.metrics,
		}),
		complaints: complaint.New(complaint.Options{
			OutputPath: a.cfg.Complaint.OutputPath,
			Title:      a.cfg.Complaint.Title,
			Location:   a.cfg.Complaint.Location,
			Recipient:  a.cfg.Complaint.Recipient,
			Citation:   a.cfg.Complaint.Citation,
			Action:     a.cfg.Complaint.Action,
			FontPath:   a.cfg.Complaint.FontPath,
			Logger:     a.logger,
			Metrics:    a.metrics,
		}),
	}, nil
}
