// Package chunker splits extracted text into bounded-size passages.
package chunker

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"docqa/internal/domain"
)

// FixedChunker cuts text into consecutive pieces of at most maxSize runes,
// no overlap. Concatenating a document's chunks in order reconstructs its
// text exactly, so chunk ids stay stable across runs.
type FixedChunker struct {
	maxSize int
}

// NewFixedChunker creates a chunker; maxSize <= 0 defaults to 1000.
func NewFixedChunker(maxSize int) *FixedChunker {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &FixedChunker{maxSize: maxSize}
}

// Chunk splits doc into ordered chunks. Empty text yields no chunks.
func (c *FixedChunker) Chunk(doc domain.Document) []domain.Chunk {
	if doc.Text == "" {
		return nil
	}
	name := DocName(doc.Source)
	runes := []rune(doc.Text)
	var chunks []domain.Chunk
	for i, idx := 0, 0; i < len(runes); i, idx = i+c.maxSize, idx+1 {
		end := i + c.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			ID:     name + ":" + strconv.Itoa(idx),
			Source: doc.Source,
			Text:   string(runes[i:end]),
			Index:  idx,
		})
	}
	return chunks
}

// DocName derives the stable document name used in chunk ids: the URL path
// basename with its extension dropped.
func DocName(source string) string {
	p := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
