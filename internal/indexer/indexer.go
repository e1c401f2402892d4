// Package indexer builds the vector index from the configured document
// corpus: fetch, extract, chunk, embed, upsert. A failing document or chunk
// is logged and skipped; the run always continues with the remainder.
package indexer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"docqa/internal/domain"
)

// Stats summarizes one indexing run. Every URL lands in exactly one of
// Documents, DocumentsFailed, or DocumentsEmpty; a document whose every
// chunk failed counts as failed, not indexed.
type Stats struct {
	Documents       int
	DocumentsFailed int
	DocumentsEmpty  int
	Chunks          int
	ChunksFailed    int
	Elapsed         time.Duration
}

// Indexer orchestrates the ingestion pipeline. It is the only writer to
// the index; documents are processed in parallel, chunks of one document
// serially, and a shared limiter bounds embedding-API pressure across all
// workers.
type Indexer struct {
	fetcher   domain.Fetcher
	extractor domain.Extractor
	chunker   domain.Chunker
	embedder  domain.Embedder
	index     domain.Index
	limiter   *rate.Limiter
	parallel  int
	log       *slog.Logger

	mu sync.Mutex // single-flight guard for Run
}

// Config configures an Indexer.
type Config struct {
	ParallelDocs    int
	EmbedRatePerSec float64
}

// New creates an Indexer.
func New(f domain.Fetcher, x domain.Extractor, c domain.Chunker, e domain.Embedder, ix domain.Index, cfg Config, log *slog.Logger) *Indexer {
	if cfg.ParallelDocs <= 0 {
		cfg.ParallelDocs = 4
	}
	if cfg.EmbedRatePerSec <= 0 {
		cfg.EmbedRatePerSec = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		fetcher:   f,
		extractor: x,
		chunker:   c,
		embedder:  e,
		index:     ix,
		limiter:   rate.NewLimiter(rate.Limit(cfg.EmbedRatePerSec), 1),
		parallel:  cfg.ParallelDocs,
		log:       log.With("component", "indexer"),
	}
}

// Run indexes every URL in urls. Chunk ids derive deterministically from
// the document name and chunk ordinal, so re-running against an unchanged
// corpus overwrites records instead of duplicating them. Run returns an
// error only when the context is canceled; per-unit failures are counted
// in Stats.
func (ix *Indexer) Run(ctx context.Context, urls []string) (Stats, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	start := time.Now()
	var stats Stats
	var statsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.parallel)
	for _, url := range urls {
		g.Go(func() error {
			docStats := ix.indexDocument(gctx, url)
			statsMu.Lock()
			stats.Documents += docStats.Documents
			stats.DocumentsFailed += docStats.DocumentsFailed
			stats.DocumentsEmpty += docStats.DocumentsEmpty
			stats.Chunks += docStats.Chunks
			stats.ChunksFailed += docStats.ChunksFailed
			statsMu.Unlock()
			return gctx.Err()
		})
	}
	err := g.Wait()
	stats.Elapsed = time.Since(start)
	ix.log.Info("indexing run finished",
		"documents", stats.Documents,
		"documents_failed", stats.DocumentsFailed,
		"documents_empty", stats.DocumentsEmpty,
		"chunks", stats.Chunks,
		"chunks_failed", stats.ChunksFailed,
		"elapsed", stats.Elapsed)
	return stats, err
}

// indexDocument runs the full pipeline for one document. All failures are
// local: they are logged and reflected in the returned stats.
func (ix *Indexer) indexDocument(ctx context.Context, url string) Stats {
	var stats Stats

	data, err := ix.fetcher.Fetch(ctx, url)
	if err != nil {
		ix.log.Warn("skipping document: fetch failed", "url", url, "error", err)
		stats.DocumentsFailed++
		return stats
	}

	text, err := ix.extractor.Extract(data, url)
	if err != nil {
		ix.log.Warn("skipping document: extract failed", "url", url, "error", err)
		stats.DocumentsFailed++
		return stats
	}
	if text == "" {
		ix.log.Info("skipping document: no extractable text", "url", url)
		stats.DocumentsEmpty++
		return stats
	}

	chunks := ix.chunker.Chunk(domain.Document{Source: url, Text: text})
	for _, chunk := range chunks {
		if err := ix.limiter.Wait(ctx); err != nil {
			ix.log.Warn("abandoning document: rate limiter wait failed", "url", url, "error", err)
			stats.ChunksFailed += len(chunks) - chunk.Index
			stats.DocumentsFailed++
			return stats
		}
		vec, err := ix.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			ix.log.Warn("skipping chunk: embedding failed", "chunk", chunk.ID, "error", err)
			stats.ChunksFailed++
			continue
		}
		record := domain.Record{ID: chunk.ID, Vector: vec, Text: chunk.Text, Source: chunk.Source}
		if err := ix.index.Upsert(ctx, []domain.Record{record}); err != nil {
			ix.log.Warn("skipping chunk: index write failed", "chunk", chunk.ID, "error", err)
			stats.ChunksFailed++
			continue
		}
		stats.Chunks++
	}
	if stats.Chunks == 0 {
		ix.log.Warn("document produced no indexed chunks", "url", url)
		stats.DocumentsFailed++
		return stats
	}
	stats.Documents++
	return stats
}
