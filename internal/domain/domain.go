package domain

import "context"

// Document is a fetched and extracted source document. It lives only for
// the duration of an indexing run; nothing persists it as-is.
type Document struct {
	Source string
	Text   string
}

// Chunk is a bounded-length piece of a document's text, the unit of
// embedding and retrieval. ID is derived from the document name and the
// chunk ordinal, so re-chunking the same document yields the same ids.
type Chunk struct {
	ID     string
	Source string
	Text   string
	Index  int
}

// Record is a stored (vector, text, source) tuple keyed by chunk id.
type Record struct {
	ID     string
	Vector []float32
	Text   string
	Source string
}

// Match is a query result. Score is cosine similarity for cosine indexes
// and negated distance for L2 ones, so descending score is always
// best-first regardless of the metric.
type Match struct {
	ID     string
	Score  float32
	Text   string
	Source string
}

// Metric selects the similarity metric of an index. It is fixed at index
// creation and never changes without a rebuild.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	return m == MetricCosine || m == MetricL2
}

// Fetcher retrieves raw document bytes from a remote locator.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor converts raw document bytes into plain text. An empty result
// means "no content" and is not an error.
type Extractor interface {
	Extract(data []byte, source string) (string, error)
}

// Chunker splits a document into ordered bounded-size chunks. It is pure
// and deterministic; empty text yields no chunks.
type Chunker interface {
	Chunk(doc Document) []Chunk
}

// Embedder converts text into a fixed-length vector. A failed call returns
// a nil vector and an error, never a zero vector.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index stores embedding records and answers nearest-neighbor queries.
// Upsert and Query may only be called once EnsureCreated has returned.
type Index interface {
	// EnsureCreated provisions the index idempotently and blocks until the
	// backend reports it ready. A pre-existing index with a different
	// dimension or metric is a configuration error.
	EnsureCreated(ctx context.Context, name string, dimension int, metric Metric) error
	// Upsert inserts or replaces records by id.
	Upsert(ctx context.Context, records []Record) error
	// Query returns up to topK matches, best first. An empty index yields
	// an empty result, not an error.
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	// Ready reports whether the index accepts reads and writes.
	Ready() bool
}

// Completer produces a model completion for a system/user message pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
