// Package openai provides an embeddings client for OpenAI-compatible APIs.
package openai

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

// Client embeds text through an OpenAI-compatible embeddings endpoint.
// Each call is a single attempt with a bounded timeout; rate limiting and
// retries belong to the caller.
type Client struct {
	client        *openai.Client
	model         string
	dimension     int
	timeout       time.Duration
	maxInputChars int
}

// Config configures the embeddings client.
type Config struct {
	BaseURL       string
	APIKeyEnv     string
	Model         string
	Timeout       time.Duration
	MaxInputChars int
	// Dimension overrides the model table; required for models not listed
	// there.
	Dimension int
}

// modelDimensions maps known embedding models to their vector size.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// NewClient creates an embeddings client from cfg. A missing API key or an
// unknown model without an explicit dimension is a configuration error.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrConfiguration, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	dim := cfg.Dimension
	if dim == 0 {
		dim = modelDimensions[cfg.Model]
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w: unknown embedding dimension for model %s", domain.ErrConfiguration, cfg.Model)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxInputChars == 0 {
		cfg.MaxInputChars = 512
	}
	oc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:        openai.NewClientWithConfig(oc),
		model:         cfg.Model,
		dimension:     dim,
		timeout:       cfg.Timeout,
		maxInputChars: cfg.MaxInputChars,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai/" + c.model }

// Dimension returns the dimensionality of the produced vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns the embedding vector for text, truncated to the provider's
// maximum input length. On failure the vector is nil, never all zeros.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if runes := []rune(text); len(runes) > c.maxInputChars {
		text = string(runes[:c.maxInputChars])
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrEmbedding)
	}
	v := resp.Data[0].Embedding
	if len(v) != c.dimension {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", domain.ErrEmbedding, len(v), c.dimension)
	}
	return v, nil
}
