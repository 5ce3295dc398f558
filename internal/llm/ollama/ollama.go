// Package ollama implements llm.Provider against a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/efebarandurmaz/pramaanx/internal/llm"
)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "phi3"
	DefaultEmbedModel = "all-minilm"
	DefaultTimeout    = 60 * time.Second
)

// Client generates completions and embeddings using Ollama.
type Client struct {
	client     *http.Client
	baseURL    string
	model      string
	embedModel string
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// New creates an Ollama provider.
func New(baseURL, model, embedModel string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:     &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		embedModel: embedModel,
	}
}

// Constructor adapts New to llm.ProviderConstructor.
func Constructor(cfg llm.ProviderConfig) (llm.Provider, error) {
	return New(cfg.BaseURL, cfg.Model, cfg.EmbedModel, 0), nil
}

func (c *Client) Name() string { return "ollama" }

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	req := chatRequest{Model: c.model}
	if prompt.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: string(llm.RoleSystem), Content: prompt.SystemPrompt})
	}
	for _, m := range prompt.Messages {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if opts != nil {
		req.Options = map[string]any{}
		if opts.Temperature != nil {
			req.Options["temperature"] = *opts.Temperature
		}
		if opts.MaxTokens != nil {
			req.Options["num_predict"] = *opts.MaxTokens
		}
		if opts.TopP != nil {
			req.Options["top_p"] = *opts.TopP
		}
		if len(opts.StopSeqs) > 0 {
			req.Options["stop"] = opts.StopSeqs
		}
	}

	var resp chatResponse
	if err := c.post(ctx, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	if resp.Message.Content == "" {
		return nil, fmt.Errorf("ollama: %w", llm.ErrEmptyResponse)
	}

	return &llm.Response{
		Content:      resp.Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
		StopReason:   resp.DoneReason,
	}, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := c.post(ctx, "/api/embed", embedRequest{Model: c.embedModel, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &llm.StatusError{Provider: "ollama", Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ollama: decode response: %w", err)
	}
	return nil
}
