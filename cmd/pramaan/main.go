package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/pramaanx/internal/heatmap"
	"github.com/efebarandurmaz/pramaanx/internal/httpapi"
	"github.com/efebarandurmaz/pramaanx/internal/ingest"
	"github.com/efebarandurmaz/pramaanx/internal/llm"
	"github.com/efebarandurmaz/pramaanx/internal/llmutil"
	"github.com/efebarandurmaz/pramaanx/internal/mcpserver"
	"github.com/efebarandurmaz/pramaanx/internal/server"
	temporalmod "github.com/efebarandurmaz/pramaanx/internal/temporal"
)

var version = "0.1.0"

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var configPath string

	rootCmd := &cobra.Command{
		Use:          "pramaan",
		Short:        "Fee verification and bribery triage service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/pramaan.yaml", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	var (
		source    string
		label     string
		reset     bool
		chunkSize int
		durable   bool
		jsonOut   bool
	)
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load an official fee document into the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), configPath, ingestFlags{
				source:    source,
				label:     label,
				reset:     reset,
				chunkSize: chunkSize,
				temporal:  durable,
				json:      jsonOut,
				changed:   cmd.Flags().Changed,
			})
		},
	}
	ingestCmd.Flags().StringVar(&source, "source", "", "Document to ingest (.pdf, .txt, .md)")
	ingestCmd.Flags().StringVar(&label, "label", "", "Provenance label recorded with each chunk")
	ingestCmd.Flags().BoolVar(&reset, "reset", false, "Clear the index before ingesting")
	ingestCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Chunk length in characters")
	ingestCmd.Flags().BoolVar(&durable, "temporal", false, "Submit as a Temporal workflow instead of running inline")
	ingestCmd.Flags().BoolVar(&jsonOut, "json", false, "Output the ingestion report as JSON")

	var seedOut string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the sample fee notice PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ingest.WriteSampleFile(seedOut); err != nil {
				return err
			}
			fmt.Printf("Sample fee notice written to %s\n", seedOut)
			return nil
		},
	}
	seedCmd.Flags().StringVar(&seedOut, "out", "ap_rto_fees.pdf", "Output PDF path")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available inference, embedding and speech providers",
		Run: func(cmd *cobra.Command, args []string) {
			printProviders()
		},
	}

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), configPath)
		},
	}

	rootCmd.AddCommand(serveCmd, ingestCmd, seedCmd, providersCmd, mcpCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runServe(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}

	svc, err := a.services()
	if err != nil {
		a.close(ctx)
		return err
	}

	points, err := heatmap.Load(a.cfg.Heatmap.Path)
	if err != nil {
		a.close(ctx)
		return err
	}

	health := server.NewHealthServer(&server.HealthConfig{Version: version})
	health.RegisterCheck("index", server.IndexHealthChecker(a.cfg.Index.Backend, a.index))
	health.RegisterCheck("embedding", server.ProviderHealthChecker(a.embedder.Name(), func(ctx context.Context) error {
		_, err := a.embedder.Embed(ctx, []string{"health"})
		return err
	}))
	modelName := "none"
	if a.model != nil {
		modelName = a.model.Name()
	}
	health.RegisterCheck("llm", server.ProviderHealthChecker(modelName, nil))

	api := httpapi.New(httpapi.Services{
		Verifier:    svc.retrieval,
		Classifier:  svc.classifier,
		Transcriber: svc.speech,
		Complaints:  svc.complaints,
	}, httpapi.Config{
		Addr:           a.cfg.Server.Addr,
		CORSOrigin:     a.cfg.Server.CORSOrigin,
		ReadTimeout:    a.cfg.Server.ReadTimeout,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		MaxInFlight:    a.cfg.Server.MaxInFlight,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		Heatmap:        points,
		Health:         health,
		Metrics:        a.metrics,
		Logger:         a.logger,
	})

	gs := server.NewGracefulServer(api.HTTPServer(), health, &server.ShutdownConfig{
		Timeout: a.cfg.Server.ShutdownTimeout,
		Logger:  a.logger,
	})
	gs.RegisterHook(server.TracingShutdownHook(a.tracer.Shutdown))
	gs.RegisterHook(server.IndexShutdownHook(a.index.Close))

	a.logger.Info("PramaanX API listening",
		"addr", a.cfg.Server.Addr,
		"index", a.cfg.Index.Backend,
		"llm", modelName,
		"embedding", a.embedder.Name(),
	)
	return gs.Run()
}

type ingestFlags struct {
	source    string
	label     string
	reset     bool
	chunkSize int
	temporal  bool
	json      bool
	changed   func(name string) bool
}

func runIngest(ctx context.Context, configPath string, f ingestFlags) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	req := ingest.Request{
		Source: a.cfg.Ingest.Source,
		Label:  a.cfg.Ingest.Label,
		Reset:  f.reset,
	}
	if f.changed("source") {
		req.Source = f.source
		// A new source without an explicit label is labelled by its file name.
		if !f.changed("label") {
			req.Label = ""
		}
	}
	if f.changed("label") {
		req.Label = f.label
	}
	size := a.cfg.Ingest.ChunkSize
	if f.changed("chunk-size") {
		size = f.chunkSize
	}

	if f.temporal {
		return submitIngest(ctx, a, temporalmod.IngestInput{
			Source:    req.Source,
			Label:     req.Label,
			Reset:     req.Reset,
			ChunkSize: size,
		})
	}

	report, err := a.ingester(size).Run(ctx, req)
	if err != nil {
		return err
	}
	a.metrics.IndexEntries.Set(float64(report.Index.After))

	if f.json {
		data, err := report.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	report.PrintSummary(os.Stdout)
	return nil
}

func submitIngest(ctx context.Context, a *app, input temporalmod.IngestInput) error {
	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  a.cfg.Temporal.Host,
		Namespace: a.cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	out, err := temporalmod.SubmitIngest(ctx, c, a.cfg.Temporal.TaskQueue, input)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %s (%s): %d chunks, %d chars, index %d -> %d entries\n",
		out.Label, out.Format, out.Chunks, out.Chars, out.EntriesBefore, out.EntriesAfter)
	return nil
}

func runMCP(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	svc, err := a.services()
	if err != nil {
		return err
	}
	points, err := heatmap.Load(a.cfg.Heatmap.Path)
	if err != nil {
		return err
	}

	s, err := mcpserver.NewServer(&mcpserver.Ports{
		Verifier:   svc.retrieval,
		Classifier: svc.classifier,
		Complaints: svc.complaints,
		Heatmap:    points,
	})
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func printProviders() {
	f := llmutil.NewFactory()

	fmt.Println("Inference and embedding providers:")
	fmt.Println()
	for _, name := range f.Names() {
		desc := ""
		switch name {
		case "ollama":
			desc = "local, http://localhost:11434 (default: phi3 + all-minilm)"
		case "hashing":
			desc = "offline lexical embedder, no inference"
		case "custom":
			desc = "any OpenAI-compatible endpoint (set base_url)"
		default:
			desc = llm.KnownProviders[name]
		}
		fmt.Printf("  %-10s %s\n", name, desc)
	}

	speech := make([]string, 0, len(llm.KnownProviders))
	for name := range llm.KnownProviders {
		speech = append(speech, name)
	}
	sort.Strings(speech)
	fmt.Println()
	fmt.Printf("Speech providers (Whisper API): %s\n", strings.Join(speech, ", "))
	fmt.Println()
	fmt.Println("Configure in pramaan.yaml or via environment:")
	fmt.Println("  PRAMAAN_LLM_PROVIDER=groq")
	fmt.Println("  PRAMAAN_LLM_API_KEY=gsk_...")
	fmt.Println("  PRAMAAN_LLM_MODEL=llama-3.3-70b-versatile")
	fmt.Println("  PRAMAAN_EMBEDDING_PROVIDER=ollama")
	fmt.Println("  PRAMAAN_SPEECH_PROVIDER=groq")
}
