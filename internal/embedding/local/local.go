// Package local provides a deterministic offline embedder for development
// and tests. Vectors are hashed bag-of-words projections, L2-normalized so
// cosine and dot product agree. Tokenless input fails rather than producing
// a zero vector.
package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"docqa/internal/domain"
)

// Embedder hashes tokens into a fixed-size vector. The same text always
// produces the same vector.
type Embedder struct {
	dim int
}

// New creates a local embedder; dim <= 0 defaults to 256.
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = 256
	}
	return &Embedder{dim: dim}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "local-hash" }

// Dimension returns the vector size.
func (e *Embedder) Dimension() int { return e.dim }

// Embed returns the hashed bag-of-words vector for text. Input with no
// tokens is an error; a zero vector must never reach the index.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens in input", domain.ErrEmbedding)
	}
	vec := make([]float32, e.dim)
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dim)]++
	}
	normalize(vec)
	return vec, nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
