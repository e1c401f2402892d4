// Package retriever embeds a query and returns the most similar stored
// passages. Retrieval failure always degrades to "no context found" rather
// than surfacing an error to the caller.
package retriever

import (
	"context"
	"log/slog"

	"docqa/internal/domain"
)

// Retriever is read-only over the shared index handle and safe for
// concurrent use.
type Retriever struct {
	embedder domain.Embedder
	index    domain.Index
	topK     int
	maxChars int
	maxTotal int
	log      *slog.Logger
}

// Config controls top-K and context sizing. The character limits are
// tuning parameters, not contracts; defaults match the corpus defaults.
type Config struct {
	TopK                 int
	MaxContextChars      int
	MaxTotalContextChars int
}

// New creates a Retriever.
func New(embedder domain.Embedder, index domain.Index, cfg Config, log *slog.Logger) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 1000
	}
	if cfg.MaxTotalContextChars <= 0 {
		cfg.MaxTotalContextChars = 6000
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     cfg.TopK,
		maxChars: cfg.MaxContextChars,
		maxTotal: cfg.MaxTotalContextChars,
		log:      log.With("component", "retriever"),
	}
}

// Search returns the passages most similar to query, each truncated to
// MaxContextChars runes and capped at MaxTotalContextChars runes overall.
// On embedding or index failure it returns nil, never an error.
func (r *Retriever) Search(ctx context.Context, query string) []string {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warn("query embedding failed, returning no context", "error", err)
		return nil
	}
	matches, err := r.index.Query(ctx, vec, r.topK)
	if err != nil {
		r.log.Warn("index query failed, returning no context", "error", err)
		return nil
	}

	var passages []string
	total := 0
	for _, m := range matches {
		text := m.Text
		if runes := []rune(text); len(runes) > r.maxChars {
			text = string(runes[:r.maxChars])
		}
		runes := []rune(text)
		if total+len(runes) > r.maxTotal {
			keep := r.maxTotal - total
			if keep <= 0 {
				r.log.Info("total context cap reached, dropping remaining passages", "kept", len(passages))
				break
			}
			r.log.Info("total context cap reached, truncating passage", "chunk", m.ID, "kept_chars", keep)
			text = string(runes[:keep])
			runes = runes[:keep]
		}
		passages = append(passages, text)
		total += len(runes)
	}
	return passages
}
