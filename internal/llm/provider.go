package llm

import "context"

// Provider is the interface all inference backends must implement.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Embed returns embedding vectors for the given texts, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns the provider identifier (e.g. "ollama", "openai").
	Name() string
}

// Embedder is the embedding half of a Provider. The vector index depends on
// this narrower interface only.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// RequestOptions tunes a single completion call. Nil fields fall back to the
// provider's defaults.
type RequestOptions struct {
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	StopSeqs    []string `json:"stop,omitempty"`
}

// Int returns a pointer to v, for building RequestOptions.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for building RequestOptions.
func Float(v float64) *float64 { return &v }
