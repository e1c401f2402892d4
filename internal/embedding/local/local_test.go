package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestEmbed_Deterministic(t *testing.T) {
	e := New(64)
	a, err := e.Embed(context.Background(), "flow sensor range specification")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "flow sensor range specification")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestEmbed_Normalized(t *testing.T) {
	e := New(32)
	v, err := e.Embed(context.Background(), "one two three four")
	require.NoError(t, err)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestEmbed_WhitespaceOnlyFails(t *testing.T) {
	e := New(32)
	for _, input := range []string{"", "   ", "\n\t  \n"} {
		v, err := e.Embed(context.Background(), input)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmbedding)
		assert.Nil(t, v)
	}
}

func TestEmbed_SimilarTextCloser(t *testing.T) {
	e := New(128)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "pressure sensor datasheet")
	b, _ := e.Embed(ctx, "pressure sensor specification")
	c, _ := e.Embed(ctx, "unrelated shipping invoice")
	assert.Greater(t, dot(a, b), dot(a, c))
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
