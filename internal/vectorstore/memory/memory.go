// Package memory implements a flat in-memory vector index using brute-force
// similarity scan. Records are keyed by chunk id so upsert replaces.
package memory

import (
	"context"
	"fmt"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Index is safe for concurrent reads and writes.
type Index struct {
	mu        sync.RWMutex
	name      string
	dimension int
	metric    domain.Metric
	ready     bool
	records   map[string]domain.Record
}

// New creates an empty, uninitialized index.
func New() *Index {
	return &Index{records: make(map[string]domain.Record)}
}

// EnsureCreated provisions the index. Calling it again with the same shape
// is a no-op; a different dimension or metric is a configuration error.
func (ix *Index) EnsureCreated(_ context.Context, name string, dimension int, metric domain.Metric) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrConfiguration, dimension)
	}
	if !metric.Valid() {
		return fmt.Errorf("%w: unknown metric %q", domain.ErrConfiguration, metric)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.ready {
		if ix.dimension != dimension {
			return fmt.Errorf("%w: index %s has dimension %d, want %d", domain.ErrConfiguration, ix.name, ix.dimension, dimension)
		}
		if ix.metric != metric {
			return fmt.Errorf("%w: index %s has metric %s, want %s", domain.ErrConfiguration, ix.name, ix.metric, metric)
		}
		return nil
	}
	ix.name = name
	ix.dimension = dimension
	ix.metric = metric
	ix.ready = true
	return nil
}

// Ready reports whether EnsureCreated has completed.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready
}

// Upsert inserts or replaces records by id.
func (ix *Index) Upsert(_ context.Context, records []domain.Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.ready {
		return fmt.Errorf("%w: index not ready", domain.ErrIndexWrite)
	}
	for _, r := range records {
		if len(r.Vector) != ix.dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, index has %d", domain.ErrIndexWrite, r.ID, len(r.Vector), ix.dimension)
		}
	}
	for _, r := range records {
		ix.records[r.ID] = r
	}
	return nil
}

// Query returns up to topK matches, best first. An empty index yields an
// empty result.
func (ix *Index) Query(_ context.Context, vector []float32, topK int) ([]domain.Match, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.ready {
		return nil, fmt.Errorf("%w: index not ready", domain.ErrIndexQuery)
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d", domain.ErrIndexQuery, len(vector), ix.dimension)
	}
	if topK <= 0 {
		topK = 5
	}
	matches := make([]domain.Match, 0, len(ix.records))
	for _, r := range ix.records {
		matches = append(matches, domain.Match{
			ID:     r.ID,
			Score:  vectorstore.Score(ix.metric, vector, r.Vector),
			Text:   r.Text,
			Source: r.Source,
		})
	}
	return vectorstore.Rank(matches, topK), nil
}

// Len reports the number of stored records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}
