// Package hashing provides a deterministic, offline embedder based on
// feature hashing of word and character-trigram features.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/efebarandurmaz/pramaanx/internal/llm"
)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 512

const (
	wordWeight    = 1.0
	trigramWeight = 0.5
)

// Embedder maps text to L2-normalized hashed feature vectors. Identical
// inputs always produce identical vectors.
type Embedder struct {
	dims int
}

// New creates an embedder producing vectors of the given size.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Constructor adapts New to llm.ProviderConstructor.
func Constructor(cfg llm.ProviderConfig) (llm.Provider, error) {
	return New(cfg.Dimensions), nil
}

func (e *Embedder) Name() string { return "hashing" }

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int { return e.dims }

// Complete is not supported; the hashing backend only embeds.
func (e *Embedder) Complete(context.Context, *llm.Prompt, *llm.RequestOptions) (*llm.Response, error) {
	return nil, fmt.Errorf("hashing: completion: %w", llm.ErrUnsupported)
}

// Embed returns one vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *Embedder) vector(text string) []float32 {
	vec := make([]float64, e.dims)
	norm := normalize(text)

	for _, w := range strings.Fields(norm) {
		e.add(vec, "w:"+w, wordWeight)
	}
	runes := []rune(norm)
	for i := 0; i+3 <= len(runes); i++ {
		e.add(vec, "t:"+string(runes[i:i+3]), trigramWeight)
	}

	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	out := make([]float32, e.dims)
	if sum == 0 {
		return out
	}
	mag := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(v / mag)
	}
	return out
}

// add hashes a feature into a bucket. One hash bit picks the sign so that
// collisions tend to cancel rather than accumulate.
func (e *Embedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// normalize lowercases text and collapses every run of non-alphanumeric
// runes into a single space.
func normalize(text string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}
