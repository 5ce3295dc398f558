// Package whisper implements speech.Transcriber against OpenAI-compatible
// audio transcription endpoints.
package whisper

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/efebarandurmaz/pramaanx/internal/llm"
)

const defaultModel = goopenai.Whisper1

// Client transcribes audio files through the /audio/transcriptions API.
type Client struct {
	name     string
	model    string
	language string
	api      *goopenai.Client
}

// Config configures a Client. An empty BaseURL resolves from
// llm.KnownProviders using Provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = llm.KnownProviders[cfg.Provider]
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("whisper: no base url for provider %q", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	oc := goopenai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL

	return &Client{
		name:     cfg.Provider,
		model:    cfg.Model,
		language: cfg.Language,
		api:      goopenai.NewClientWithConfig(oc),
	}, nil
}

func (c *Client) Name() string { return c.name }

// Transcribe uploads the recording at path and returns the recognised text.
// Language detection is left to the backend unless a language is configured.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.model,
		FilePath: path,
		Language: c.language,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %w", &llm.StatusError{Provider: c.name, Code: apiErr.HTTPStatusCode, Message: apiErr.Message}, err)
		}
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	return resp.Text, nil
}
