package domain

import "errors"

// Error taxonomy. Per-unit errors during indexing are recovered locally by
// the indexer; query-path errors degrade to fallback replies; only
// ErrConfiguration is fatal.
var (
	ErrFetch         = errors.New("fetch failed")
	ErrExtract       = errors.New("extract failed")
	ErrEmbedding     = errors.New("embedding failed")
	ErrIndexWrite    = errors.New("index write failed")
	ErrIndexQuery    = errors.New("index query failed")
	ErrCompletion    = errors.New("completion failed")
	ErrConfiguration = errors.New("invalid configuration")
)
