// Package sqlite implements a persistent vector index on a local SQLite
// database, so an indexed corpus survives restarts. Search is a brute-force
// scored scan, which is adequate for datasheet-sized corpora.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Index stores one row per chunk id with the vector as a little-endian
// float32 blob. The meta table pins the dimension and metric chosen at
// creation time.
type Index struct {
	mu     sync.RWMutex
	db     *sql.DB
	name   string
	dim    int
	metric domain.Metric
	ready  bool
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the database connection.
func (ix *Index) Close() error { return ix.db.Close() }

// EnsureCreated creates the schema and pins (dimension, metric). Reopening
// an existing database with a different dimension or metric is a
// configuration error.
func (ix *Index) EnsureCreated(ctx context.Context, name string, dimension int, metric domain.Metric) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrConfiguration, dimension)
	}
	if !metric.Valid() {
		return fmt.Errorf("%w: unknown metric %q", domain.ErrConfiguration, metric)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	_, err := ix.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS index_meta (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL,
			metric TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("%w: creating schema: %v", domain.ErrConfiguration, err)
	}

	var gotDim int
	var gotMetric string
	row := ix.db.QueryRowContext(ctx, `SELECT dimension, metric FROM index_meta WHERE name = ?`, name)
	switch err := row.Scan(&gotDim, &gotMetric); err {
	case nil:
		if gotDim != dimension {
			return fmt.Errorf("%w: index %s has dimension %d, want %d", domain.ErrConfiguration, name, gotDim, dimension)
		}
		if gotMetric != string(metric) {
			return fmt.Errorf("%w: index %s has metric %s, want %s", domain.ErrConfiguration, name, gotMetric, metric)
		}
	case sql.ErrNoRows:
		if _, err := ix.db.ExecContext(ctx,
			`INSERT INTO index_meta (name, dimension, metric) VALUES (?, ?, ?)`,
			name, dimension, string(metric)); err != nil {
			return fmt.Errorf("%w: storing index meta: %v", domain.ErrConfiguration, err)
		}
	default:
		return fmt.Errorf("%w: reading index meta: %v", domain.ErrConfiguration, err)
	}

	ix.name = name
	ix.dim = dimension
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
func (ix *Index) Upsert(ctx context.Context, records []domain.Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.ready {
		return fmt.Errorf("%w: index not ready", domain.ErrIndexWrite)
	}
	for _, r := range records {
		if len(r.Vector) != ix.dim {
			return fmt.Errorf("%w: record %s has %d dimensions, index has %d", domain.ErrIndexWrite, r.ID, len(r.Vector), ix.dim)
		}
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source, text, embedding) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			text = excluded.text,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Source, r.Text, vectorToBytes(r.Vector)); err != nil {
			return fmt.Errorf("%w: saving chunk %s: %v", domain.ErrIndexWrite, r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Query scans all stored vectors and returns up to topK matches, best first.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.ready {
		return nil, fmt.Errorf("%w: index not ready", domain.ErrIndexQuery)
	}
	if len(vector) != ix.dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d", domain.ErrIndexQuery, len(vector), ix.dim)
	}
	if topK <= 0 {
		topK = 5
	}

	rows, err := ix.db.QueryContext(ctx, `SELECT id, source, text, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexQuery, err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var id, source, text string
		var blob []byte
		if err := rows.Scan(&id, &source, &text, &blob); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrIndexQuery, err)
		}
		vec := bytesToVector(blob)
		if len(vec) != ix.dim {
			continue
		}
		matches = append(matches, domain.Match{
			ID:     id,
			Score:  vectorstore.Score(ix.metric, vector, vec),
			Text:   text,
			Source: source,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexQuery, err)
	}
	return vectorstore.Rank(matches, topK), nil
}

// Len reports the number of stored records.
func (ix *Index) Len(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func bytesToVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
