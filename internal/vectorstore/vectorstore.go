// Package vectorstore defines shared scoring and ranking helpers for the
// index backends. The Index contract itself lives in internal/domain; each
// backend is a subpackage (memory, pinecone, sqlite).
package vectorstore

import (
	"math"
	"sort"

	"docqa/internal/domain"
)

// Score computes the match score of two vectors under metric: cosine
// similarity for cosine, negated Euclidean distance for L2. Higher is
// always better, so one descending sort serves both metrics.
func Score(metric domain.Metric, a, b []float32) float32 {
	if metric == domain.MetricL2 {
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return float32(-math.Sqrt(sum))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Rank sorts matches best-first and truncates to topK.
func Rank(matches []domain.Match, topK int) []domain.Match {
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}
