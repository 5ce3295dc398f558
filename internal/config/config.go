package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Complaint  ComplaintConfig  `mapstructure:"complaint"`
	Index      IndexConfig      `mapstructure:"index"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Server     ServerConfig     `mapstructure:"server"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Log        LogConfig        `mapstructure:"log"`
	Heatmap    HeatmapConfig    `mapstructure:"heatmap"`
}

// LLMConfig selects the inference backend used by the classifier.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`

	// RequestsPerMinute caps outbound calls. Zero disables the limiter.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// EmbeddingConfig selects the embedding capability. Unset fields inherit
// from the LLM section.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`

	// Dimensions is only used by the hashing embedder.
	Dimensions int `mapstructure:"dimensions"`
	BatchSize  int `mapstructure:"batch_size"`
	Workers    int `mapstructure:"workers"`
}

// SpeechConfig selects the speech-to-text capability.
type SpeechConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TempDir  string        `mapstructure:"temp_dir"`
}

type ClassifierConfig struct {
	Marker     string        `mapstructure:"marker"`
	SafeMarker string        `mapstructure:"safe_marker"`
	Terms      []string      `mapstructure:"terms"`
	Suggestion string        `mapstructure:"suggestion"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type ComplaintConfig struct {
	OutputPath string `mapstructure:"output_path"`
	Title      string `mapstructure:"title"`
	Location   string `mapstructure:"location"`
	Recipient  string `mapstructure:"recipient"`
	Citation   string `mapstructure:"citation"`
	Action     string `mapstructure:"action"`
	// FontPath is a UTF-8 TrueType font for non-Latin transcripts.
	FontPath string `mapstructure:"font_path"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend    string `mapstructure:"backend"` // sqlite, qdrant or memory
	Path       string `mapstructure:"path"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type IngestConfig struct {
	Source    string `mapstructure:"source"`
	Label     string `mapstructure:"label"`
	ChunkSize int    `mapstructure:"chunk_size"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxInFlight     int64         `mapstructure:"max_in_flight"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HeatmapConfig struct {
	Path string `mapstructure:"path"`
}

// ResolvedEmbedding returns the embedding section with unset fields filled
// from the LLM section.
func (c *Config) ResolvedEmbedding() EmbeddingConfig {
	e := c.Embedding
	if e.Provider == "" {
		e.Provider = c.LLM.Provider
	}
	if e.APIKey == "" && e.Provider == c.LLM.Provider {
		e.APIKey = c.LLM.APIKey
	}
	if e.BaseURL == "" && e.Provider == c.LLM.Provider {
		e.BaseURL = c.LLM.BaseURL
	}
	return e
}

// ResolvedSpeech returns the speech section with credentials inherited from
// the LLM section when both point at the same provider.
func (c *Config) ResolvedSpeech() SpeechConfig {
	s := c.Speech
	if s.APIKey == "" && s.Provider == c.LLM.Provider {
		s.APIKey = c.LLM.APIKey
	}
	if s.BaseURL == "" && s.Provider == c.LLM.Provider {
		s.BaseURL = c.LLM.BaseURL
	}
	return s
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if needsKey(c.LLM.Provider) && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}

	if c.LLM.MaxTokens < 0 {
		warnings = append(warnings, fmt.Sprintf("LLM max_tokens %d is negative", c.LLM.MaxTokens))
	}

	emb := c.ResolvedEmbedding()
	if emb.Provider == "hashing" {
		warnings = append(warnings, "embedding provider 'hashing' is lexical only; configure a model for semantic retrieval")
	}
	if needsKey(emb.Provider) && emb.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("embedding provider '%s' is configured but api_key is empty", emb.Provider))
	}

	sp := c.ResolvedSpeech()
	if needsKey(sp.Provider) && sp.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("speech provider '%s' is configured but api_key is empty", sp.Provider))
	}

	if c.Complaint.FontPath != "" {
		if _, err := os.Stat(c.Complaint.FontPath); err != nil {
			warnings = append(warnings, fmt.Sprintf("complaint font_path '%s' is not readable: %v", c.Complaint.FontPath, err))
		}
	}

	if c.Ingest.ChunkSize < 0 {
		warnings = append(warnings, fmt.Sprintf("ingest chunk_size %d is negative; default will be used", c.Ingest.ChunkSize))
	}

	switch c.Index.Backend {
	case "", "sqlite", "qdrant", "memory":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown index backend '%s'", c.Index.Backend))
	}

	return warnings
}

// needsKey reports whether a provider talks to a hosted API that expects a key.
func needsKey(provider string) bool {
	switch provider {
	case "openai", "groq", "together", "deepseek":
		return true
	}
	return false
}

func setDefaults(v *viper.Viper) {
	// Keys without a meaningful default are still registered so that
	// AutomaticEnv can populate them during Unmarshal.
	for _, key := range []string{
		"llm.api_key", "llm.base_url",
		"embedding.api_key", "embedding.base_url",
		"speech.api_key", "speech.base_url", "speech.language", "speech.temp_dir",
		"tracing.endpoint", "heatmap.path", "complaint.font_path",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("llm.requests_per_minute", 0)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.model", "phi3")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 64)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_retries", 1)

	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", "all-minilm")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.workers", 4)

	v.SetDefault("speech.provider", "openai")
	v.SetDefault("speech.model", "whisper-1")
	v.SetDefault("speech.timeout", 2*time.Minute)

	v.SetDefault("classifier.marker", DefaultMarker)
	v.SetDefault("classifier.safe_marker", DefaultSafeMarker)
	v.SetDefault("classifier.terms", DefaultTerms)
	v.SetDefault("classifier.suggestion", DefaultSuggestion)
	v.SetDefault("classifier.timeout", 20*time.Second)

	v.SetDefault("complaint.output_path", "PramaanX_Complaint.pdf")
	v.SetDefault("complaint.title", DefaultComplaintTitle)
	v.SetDefault("complaint.location", DefaultLocation)
	v.SetDefault("complaint.recipient", DefaultRecipient)
	v.SetDefault("complaint.citation", DefaultCitation)
	v.SetDefault("complaint.action", DefaultAction)

	v.SetDefault("index.backend", "sqlite")
	v.SetDefault("index.path", "./pramaan_db/index.sqlite")
	v.SetDefault("index.host", "localhost")
	v.SetDefault("index.port", 6334)
	v.SetDefault("index.collection", "government_rules")

	v.SetDefault("ingest.source", "ap_rto_fees.pdf")
	v.SetDefault("ingest.label", "ap_rto_fees.pdf")
	v.SetDefault("ingest.chunk_size", 300)

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.max_in_flight", 8)
	v.SetDefault("server.max_upload_bytes", 25<<20)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.cors_origin", "*")

	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "pramaan-ingest")

	v.SetDefault("tracing.service_name", "pramaanx")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from an optional file and the environment.
// An empty path loads defaults and environment variables only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PRAMAAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
