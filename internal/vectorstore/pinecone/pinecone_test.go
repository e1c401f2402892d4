package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

// fakeBackend emulates the control plane and the data plane of one index.
type fakeBackend struct {
	mu            sync.Mutex
	exists        bool
	dimension     int
	metric        string
	readyAfter    int // describes remaining before ready
	describeCalls int
	upserts       map[string]map[string]any
	queryResp     []map[string]any
}

func (b *fakeBackend) handler(host string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/indexes/test-index":
			b.describeCalls++
			if !b.exists {
				http.NotFound(w, r)
				return
			}
			ready := b.describeCalls > b.readyAfter
			_ = json.NewEncoder(w).Encode(map[string]any{
				"name":      "test-index",
				"dimension": b.dimension,
				"metric":    b.metric,
				"host":      host,
				"status":    map[string]any{"ready": ready, "state": "Ready"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/indexes":
			var req struct {
				Dimension int    `json:"dimension"`
				Metric    string `json:"metric"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			b.exists = true
			b.dimension = req.Dimension
			b.metric = req.Metric
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPost && r.URL.Path == "/vectors/upsert":
			var req struct {
				Vectors []map[string]any `json:"vectors"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			for _, v := range req.Vectors {
				b.upserts[v["id"].(string)] = v
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"upsertedCount": len(req.Vectors)})
		case r.Method == http.MethodPost && r.URL.Path == "/query":
			_ = json.NewEncoder(w).Encode(map[string]any{"matches": b.queryResp})
		default:
			http.NotFound(w, r)
		}
	}
}

func newFake(t *testing.T, b *fakeBackend) (*Index, *fakeBackend) {
	t.Helper()
	if b.upserts == nil {
		b.upserts = make(map[string]map[string]any)
	}
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.handler(srv.URL)(w, r)
	}))
	t.Cleanup(srv.Close)
	ix := New(Config{
		APIKey:        "key",
		ControllerURL: srv.URL,
		Timeout:       2 * time.Second,
		ReadyTimeout:  5 * time.Second,
	})
	return ix, b
}

func TestEnsureCreated_CreatesAndPollsReady(t *testing.T) {
	ix, b := newFake(t, &fakeBackend{readyAfter: 2})
	err := ix.EnsureCreated(context.Background(), "test-index", 3, domain.MetricCosine)
	require.NoError(t, err)
	assert.True(t, ix.Ready())
	assert.True(t, b.exists)
	assert.Equal(t, 3, b.dimension)
}

func TestEnsureCreated_ExistingIndexIdempotent(t *testing.T) {
	ix, _ := newFake(t, &fakeBackend{exists: true, dimension: 3, metric: "cosine"})
	require.NoError(t, ix.EnsureCreated(context.Background(), "test-index", 3, domain.MetricCosine))
}

func TestEnsureCreated_ReadyTimeout(t *testing.T) {
	// Backend that exists but never reports ready.
	b := &fakeBackend{exists: true, dimension: 3, metric: "cosine", readyAfter: 1 << 30}
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.handler(srv.URL)(w, r)
	}))
	t.Cleanup(srv.Close)

	ix := New(Config{
		APIKey:        "key",
		ControllerURL: srv.URL,
		Timeout:       2 * time.Second,
		ReadyTimeout:  time.Millisecond,
	})
	err := ix.EnsureCreated(context.Background(), "test-index", 3, domain.MetricCosine)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.False(t, ix.Ready())
}

func TestEnsureCreated_DimensionMismatch(t *testing.T) {
	ix, _ := newFake(t, &fakeBackend{exists: true, dimension: 1536, metric: "cosine"})
	err := ix.EnsureCreated(context.Background(), "test-index", 768, domain.MetricCosine)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.False(t, ix.Ready())
}

func TestUpsertAndQuery(t *testing.T) {
	ix, b := newFake(t, &fakeBackend{exists: true, dimension: 3, metric: "cosine"})
	b.queryResp = []map[string]any{
		{"id": "a:0", "score": 0.9, "metadata": map[string]any{"text": "passage", "source": "a.pdf"}},
	}
	ctx := context.Background()
	require.NoError(t, ix.EnsureCreated(ctx, "test-index", 3, domain.MetricCosine))

	require.NoError(t, ix.Upsert(ctx, []domain.Record{
		{ID: "a:0", Vector: []float32{1, 0, 0}, Text: "passage", Source: "a.pdf"},
	}))
	assert.Contains(t, b.upserts, "a:0")

	matches, err := ix.Query(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a:0", matches[0].ID)
	assert.Equal(t, "passage", matches[0].Text)
	assert.InDelta(t, 0.9, float64(matches[0].Score), 1e-6)
}

func TestNotReadyFailsFast(t *testing.T) {
	ix := New(Config{APIKey: "key", ControllerURL: "http://127.0.0.1:0"})
	err := ix.Upsert(context.Background(), []domain.Record{{ID: "x"}})
	assert.ErrorIs(t, err, domain.ErrIndexWrite)
	_, err = ix.Query(context.Background(), []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrIndexQuery)
}
