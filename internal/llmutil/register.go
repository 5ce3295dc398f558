// Package llmutil wires the built-in provider backends into a factory.
package llmutil

import (
	"github.com/efebarandurmaz/pramaanx/internal/llm"
	"github.com/efebarandurmaz/pramaanx/internal/llm/hashing"
	"github.com/efebarandurmaz/pramaanx/internal/llm/ollama"
	"github.com/efebarandurmaz/pramaanx/internal/llm/openai"
)

// RegisterDefaultProviders registers all built-in provider constructors
// (ollama, hashing and every OpenAI-compatible preset) into factory.
// Both cmd/pramaan and cmd/worker call this to avoid duplicating
// registration logic across binaries.
func RegisterDefaultProviders(factory *llm.ProviderFactory) {
	factory.Register("ollama", ollama.Constructor)
	factory.Register("hashing", hashing.Constructor)
	// All OpenAI-compatible providers
	for name := range llm.KnownProviders {
		factory.Register(name, openai.Constructor)
	}
	// Any other OpenAI-compatible endpoint; base_url is required.
	factory.Register("custom", openai.Constructor)
}

// NewFactory returns a factory with the default providers registered.
func NewFactory() *llm.ProviderFactory {
	f := llm.NewFactory()
	RegisterDefaultProviders(f)
	return f
}
