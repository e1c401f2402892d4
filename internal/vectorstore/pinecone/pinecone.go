// Package pinecone is a minimal REST client to a Pinecone serverless index.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"docqa/internal/domain"
)

const apiVersion = "2024-07"

// Index talks to the Pinecone control plane for provisioning and to the
// index host for upsert/query. It becomes ready only after EnsureCreated
// has observed the backend report ready.
type Index struct {
	controllerURL string
	apiKey        string
	namespace     string
	cloud         string
	region        string
	readyTimeout  time.Duration
	client        *http.Client

	mu     sync.RWMutex
	host   string
	metric domain.Metric
	ready  bool
}

// Config configures the Pinecone client.
type Config struct {
	APIKey        string
	ControllerURL string
	// Host overrides data-plane discovery; normally taken from the
	// describe-index response.
	Host         string
	Namespace    string
	Cloud        string
	Region       string
	Timeout      time.Duration
	ReadyTimeout time.Duration
}

// New creates a Pinecone index client.
func New(cfg Config) *Index {
	if cfg.ControllerURL == "" {
		cfg.ControllerURL = "https://api.pinecone.io"
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}
	return &Index{
		controllerURL: strings.TrimSuffix(cfg.ControllerURL, "/"),
		apiKey:        cfg.APIKey,
		namespace:     cfg.Namespace,
		cloud:         cfg.Cloud,
		region:        cfg.Region,
		readyTimeout:  cfg.ReadyTimeout,
		client:        &http.Client{Timeout: cfg.Timeout},
		host:          cfg.Host,
	}
}

type describeResponse struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// EnsureCreated describes the index, creates it if missing, and polls until
// the backend reports ready. A pre-existing index whose dimension or metric
// differs from the requested one is a configuration error.
func (ix *Index) EnsureCreated(ctx context.Context, name string, dimension int, metric domain.Metric) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrConfiguration, dimension)
	}
	if !metric.Valid() {
		return fmt.Errorf("%w: unknown metric %q", domain.ErrConfiguration, metric)
	}

	desc, found, err := ix.describe(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		body := map[string]any{
			"name":      name,
			"dimension": dimension,
			"metric":    wireMetric(metric),
			"spec": map[string]any{
				"serverless": map[string]any{"cloud": ix.cloud, "region": ix.region},
			},
		}
		if err := ix.postJSON(ctx, ix.controllerURL+"/indexes", body, nil); err != nil {
			return fmt.Errorf("%w: creating index %s: %v", domain.ErrConfiguration, name, err)
		}
	}

	deadline := time.Now().Add(ix.readyTimeout)
	for {
		desc, found, err = ix.describe(ctx, name)
		if err != nil {
			return err
		}
		if found {
			if desc.Dimension != dimension {
				return fmt.Errorf("%w: index %s has dimension %d, want %d", domain.ErrConfiguration, name, desc.Dimension, dimension)
			}
			if desc.Metric != wireMetric(metric) {
				return fmt.Errorf("%w: index %s has metric %s, want %s", domain.ErrConfiguration, name, desc.Metric, wireMetric(metric))
			}
			if desc.Status.Ready {
				break
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: index %s not ready after %s", domain.ErrConfiguration, name, ix.readyTimeout)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for index %s: %v", domain.ErrConfiguration, name, ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}

	ix.mu.Lock()
	if ix.host == "" {
		ix.host = desc.Host
	}
	if !strings.Contains(ix.host, "://") {
		ix.host = "https://" + ix.host
	}
	ix.metric = metric
	ix.ready = true
	ix.mu.Unlock()
	return nil
}

// Ready reports whether EnsureCreated has completed.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready
}

// Upsert inserts or replaces records by id. Pinecone upserts are keyed, so
// re-indexing the same chunk ids overwrites rather than duplicates.
func (ix *Index) Upsert(ctx context.Context, records []domain.Record) error {
	host, _, err := ix.dataPlane()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	vectors := make([]map[string]any, len(records))
	for i, r := range records {
		vectors[i] = map[string]any{
			"id":       r.ID,
			"values":   r.Vector,
			"metadata": map[string]any{"text": r.Text, "source": r.Source},
		}
	}
	body := map[string]any{"vectors": vectors}
	if ix.namespace != "" {
		body["namespace"] = ix.namespace
	}
	if err := ix.postJSON(ctx, host+"/vectors/upsert", body, nil); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Query returns up to topK matches, best first.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	host, metric, err := ix.dataPlane()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexQuery, err)
	}
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	if ix.namespace != "" {
		body["namespace"] = ix.namespace
	}
	var resp struct {
		Matches []struct {
			ID       string  `json:"id"`
			Score    float32 `json:"score"`
			Metadata struct {
				Text   string `json:"text"`
				Source string `json:"source"`
			} `json:"metadata"`
		} `json:"matches"`
	}
	if err := ix.postJSON(ctx, host+"/query", body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexQuery, err)
	}
	matches := make([]domain.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		score := m.Score
		// Pinecone reports euclidean results distance-first; negate so
		// descending score stays best-first across metrics.
		if metric == domain.MetricL2 {
			score = -score
		}
		matches = append(matches, domain.Match{ID: m.ID, Score: score, Text: m.Metadata.Text, Source: m.Metadata.Source})
	}
	return matches, nil
}

func (ix *Index) dataPlane() (string, domain.Metric, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.ready {
		return "", "", fmt.Errorf("index not ready")
	}
	return ix.host, ix.metric, nil
}

func (ix *Index) describe(ctx context.Context, name string) (*describeResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ix.controllerURL+"/indexes/"+name, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	ix.setHeaders(req)
	resp, err := ix.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: describing index %s: %v", domain.ErrConfiguration, name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("%w: describing index %s: %s", domain.ErrConfiguration, name, resp.Status)
	}
	var desc describeResponse
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, false, fmt.Errorf("%w: describing index %s: %v", domain.ErrConfiguration, name, err)
	}
	return &desc, true, nil
}

func (ix *Index) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	ix.setHeaders(req)
	resp, err := ix.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("pinecone POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (ix *Index) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", ix.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)
}

func wireMetric(m domain.Metric) string {
	if m == domain.MetricL2 {
		return "euclidean"
	}
	return "cosine"
}
