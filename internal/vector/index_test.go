package vector_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/pramaanx/internal/llm"
	"github.com/efebarandurmaz/pramaanx/internal/llm/hashing"
	"github.com/efebarandurmaz/pramaanx/internal/vector"
	"github.com/efebarandurmaz/pramaanx/internal/vector/memory"
)

type countingEmbedder struct {
	inner llm.Embedder
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Embed(ctx, texts)
}

func items(texts ...string) []vector.Item {
	out := make([]vector.Item, len(texts))
	for i, t := range texts {
		out[i] = vector.Item{
			ID:       fmt.Sprintf("doc:%d", i),
			Text:     t,
			Metadata: map[string]string{vector.MetaSource: "doc"},
		}
	}
	return out
}

func TestIndex_QueryExactMatch(t *testing.T) {
	ctx := context.Background()
	idx := vector.NewIndex(memory.New(), hashing.New(256), vector.Options{})

	require.NoError(t, idx.Add(ctx, items(
		"Learner Licence Fee: Rs. 500",
		"Driving Licence Fee: Rs. 1200",
		"Vehicle Transfer Fee: Rs. 1500",
	)))

	matches, err := idx.Query(ctx, "Driving Licence Fee: Rs. 1200", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc:1", matches[0].ID)
	assert.Zero(t, matches[0].Distance)
	assert.Greater(t, matches[1].Distance, matches[0].Distance)
	assert.Equal(t, "doc", matches[0].Source())
}

func TestIndex_EmptyQuerySkipsEmbedder(t *testing.T) {
	emb := &countingEmbedder{err: errors.New("embedder offline")}
	idx := vector.NewIndex(memory.New(), emb, vector.Options{})

	matches, err := idx.Query(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
	assert.Zero(t, emb.calls.Load())
}

func TestIndex_DuplicateWithinBatch(t *testing.T) {
	idx := vector.NewIndex(memory.New(), hashing.New(32), vector.Options{})

	batch := []vector.Item{{ID: "a", Text: "x"}, {ID: "a", Text: "y"}}
	err := idx.Add(context.Background(), batch)

	var ie *vector.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, vector.ErrDuplicateID)

	n, _ := idx.Count(context.Background())
	assert.Zero(t, n)
}

func TestIndex_DuplicateAcrossRuns(t *testing.T) {
	ctx := context.Background()
	emb := &countingEmbedder{inner: hashing.New(32)}
	idx := vector.NewIndex(memory.New(), emb, vector.Options{})

	require.NoError(t, idx.Add(ctx, items("one", "two")))
	calls := emb.calls.Load()

	err := idx.Add(ctx, items("one", "two"))
	assert.ErrorIs(t, err, vector.ErrDuplicateID)
	assert.Equal(t, calls, emb.calls.Load(), "collision should be detected before embedding")

	require.NoError(t, idx.Reset(ctx))
	require.NoError(t, idx.Add(ctx, items("one", "two")))
	n, _ := idx.Count(ctx)
	assert.Equal(t, 2, n)
}

func TestIndex_EmbeddingFailure(t *testing.T) {
	idx := vector.NewIndex(memory.New(), &countingEmbedder{err: errors.New("503")}, vector.Options{})

	err := idx.Add(context.Background(), items("a"))
	var ie *vector.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, err.Error(), "embedding")
}

func TestIndex_BatchesPreserveOrder(t *testing.T) {
	ctx := context.Background()
	emb := &countingEmbedder{inner: hashing.New(64)}
	idx := vector.NewIndex(memory.New(), emb, vector.Options{BatchSize: 3, Workers: 2})

	var texts []string
	for i := 0; i < 10; i++ {
		texts = append(texts, strings.Repeat(fmt.Sprintf("fee %d ", i), i+1))
	}
	require.NoError(t, idx.Add(ctx, items(texts...)))
	assert.EqualValues(t, 4, emb.calls.Load())

	for i, text := range texts {
		matches, err := idx.Query(ctx, text, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, fmt.Sprintf("doc:%d", i), matches[0].ID)
	}
}
