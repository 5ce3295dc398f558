// Package openai implements llm.Provider for OpenAI-compatible APIs (OpenAI,
// Groq, Together, vLLM) on top of go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/efebarandurmaz/pramaanx/internal/llm"
)

const defaultEmbedModel = "text-embedding-3-small"

// Client implements llm.Provider.
type Client struct {
	name       string
	model      string
	embedModel string
	api        *goopenai.Client
}

// New creates an OpenAI-compatible provider. An empty baseURL resolves from
// llm.KnownProviders using name.
func New(name, apiKey, model, baseURL, embedModel string) *Client {
	if baseURL == "" {
		baseURL = llm.KnownProviders[name]
	}
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		name:       name,
		model:      model,
		embedModel: embedModel,
		api:        goopenai.NewClientWithConfig(cfg),
	}
}

// Constructor adapts New to llm.ProviderConstructor.
func Constructor(cfg llm.ProviderConfig) (llm.Provider, error) {
	if cfg.Model == "" && cfg.EmbedModel == "" {
		return nil, errors.New("openai: model or embed model is required")
	}
	return New(cfg.Provider, cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.EmbedModel), nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	var msgs []goopenai.ChatCompletionMessage
	if prompt.SystemPrompt != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: prompt.SystemPrompt})
	}
	for _, m := range prompt.Messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	req := goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	}
	if opts != nil {
		if opts.MaxTokens != nil {
			req.MaxTokens = *opts.MaxTokens
		}
		if opts.Temperature != nil {
			req.Temperature = float32(*opts.Temperature)
		}
		if opts.TopP != nil {
			req.TopP = float32(*opts.TopP)
		}
		if len(opts.StopSeqs) > 0 {
			req.Stop = opts.StopSeqs
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, c.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", c.name, llm.ErrEmptyResponse)
	}

	return &llm.Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		StopReason:   string(resp.Choices[0].FinishReason),
	}, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, c.wrap(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%s: expected %d embeddings, got %d", c.name, len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%s: embedding index %d out of range", c.name, d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

// wrap converts go-openai HTTP failures into llm.StatusError so the retry
// layer can classify them.
func (c *Client) wrap(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", &llm.StatusError{Provider: c.name, Code: apiErr.HTTPStatusCode, Message: apiErr.Message}, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %w", &llm.StatusError{Provider: c.name, Code: reqErr.HTTPStatusCode}, err)
	}
	return fmt.Errorf("%s: %w", c.name, err)
}
