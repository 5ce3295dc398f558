package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/pramaanx/internal/config"
	"github.com/efebarandurmaz/pramaanx/internal/ingest"
	"github.com/efebarandurmaz/pramaanx/internal/llm"
	"github.com/efebarandurmaz/pramaanx/internal/llmutil"
	"github.com/efebarandurmaz/pramaanx/internal/observability"
	"github.com/efebarandurmaz/pramaanx/internal/server"
	temporalmod "github.com/efebarandurmaz/pramaanx/internal/temporal"
	"github.com/efebarandurmaz/pramaanx/internal/vector"
	"github.com/efebarandurmaz/pramaanx/internal/vector/memory"
	"github.com/efebarandurmaz/pramaanx/internal/vector/qdrant"
	"github.com/efebarandurmaz/pramaanx/internal/vector/sqlite"
)

func main() {
	configPath := "configs/pramaan.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, nil)
	slog.SetDefault(logger)

	// Build the embedder via factory; the worker only indexes.
	factory := llmutil.NewFactory()

	emb := cfg.ResolvedEmbedding()
	embedder, err := factory.Create(llm.ProviderConfig{
		Provider:          emb.Provider,
		APIKey:            emb.APIKey,
		EmbedModel:        emb.Model,
		BaseURL:           emb.BaseURL,
		Dimensions:        emb.Dimensions,
		Timeout:           cfg.LLM.Timeout,
		MaxRetries:        cfg.LLM.MaxRetries,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	if err != nil {
		log.Fatalf("creating embedding provider: %v", err)
	}
	if embedder == nil {
		log.Fatal("an embedding provider is required; set embedding.provider")
	}

	var repo vector.Repository
	switch cfg.Index.Backend {
	case "", "sqlite":
		repo, err = sqlite.Open(cfg.Index.Path)
	case "qdrant":
		repo, err = qdrant.New(cfg.Index.Host, cfg.Index.Port, cfg.Index.Collection)
	case "memory":
		// Only useful for local experiments: entries vanish with the worker.
		repo = memory.New()
	default:
		err = fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
	if err != nil {
		log.Fatalf("index: %v", err)
	}

	index := vector.NewIndex(repo, embedder, vector.Options{
		BatchSize: emb.BatchSize,
		Workers:   emb.Workers,
		Logger:    logger,
	})

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Ingester: ingest.New(index, ingest.Options{
			ChunkSize: cfg.Ingest.ChunkSize,
			Backend:   cfg.Index.Backend,
			Logger:    logger,
		}),
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	logger.Info("Worker started", "task_queue", cfg.Temporal.TaskQueue, "index", cfg.Index.Backend)

	shutdown := server.NewShutdownHandler(&server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})
	shutdown.Add(server.TemporalWorkerShutdownHook(w.Stop))
	shutdown.RegisterHook("temporal-client", server.PriorityWorker+1, func(context.Context) error {
		c.Close()
		return nil
	})
	shutdown.Add(server.IndexShutdownHook(index.Close))
	shutdown.Start()

	if err := shutdown.Wait(); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	logger.Info("Worker stopped")
}
