package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"docqa/internal/domain"
)

// CorpusConfig lists the document sources and controls indexing behavior.
type CorpusConfig struct {
	URLs            []string `yaml:"urls"`
	MaxChunkSize    int      `yaml:"max_chunk_size"`
	ParallelDocs    int      `yaml:"parallel_docs"`
	EmbedRatePerSec float64  `yaml:"embed_rate_per_sec"`
	FetchTimeoutSec int      `yaml:"fetch_timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible
// embeddings client.
type OpenAIEmbedderConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	MaxInputChars int    `yaml:"max_input_chars"`
	Dimension     int    `yaml:"dimension,omitempty"`
}

// LocalEmbedderConfig configures the offline hash embedder.
type LocalEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Local  *LocalEmbedderConfig  `yaml:"local,omitempty"`
}

// PineconeConfig contains connection details for a Pinecone index.
type PineconeConfig struct {
	APIKeyEnv        string `yaml:"api_key_env"`
	ControllerURL    string `yaml:"controller_url"`
	Host             string `yaml:"host,omitempty"`
	Namespace        string `yaml:"namespace,omitempty"`
	Cloud            string `yaml:"cloud"`
	Region           string `yaml:"region"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
	ReadyTimeoutSecs int    `yaml:"ready_timeout_secs"`
}

// SQLiteConfig configures the persistent sqlite-backed index.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Type     string          `yaml:"type"`
	Name     string          `yaml:"name"`
	Metric   string          `yaml:"metric"`
	Pinecone *PineconeConfig `yaml:"pinecone,omitempty"`
	SQLite   *SQLiteConfig   `yaml:"sqlite,omitempty"`
}

// RetrieverConfig controls top-K retrieval and context sizing.
type RetrieverConfig struct {
	TopK                 int `yaml:"top_k"`
	MaxContextChars      int `yaml:"max_context_chars"`
	MaxTotalContextChars int `yaml:"max_total_context_chars"`
}

// CompletionConfig configures the answer-composition provider.
type CompletionConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LineConfig holds the messaging-platform webhook credentials. Secrets are
// referenced by environment variable name, never stored in the file.
type LineConfig struct {
	ChannelSecretEnv string `yaml:"channel_secret_env"`
	ChannelTokenEnv  string `yaml:"channel_token_env"`
	ReplyURL         string `yaml:"reply_url"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Index      IndexConfig      `yaml:"index"`
	Retriever  RetrieverConfig  `yaml:"retriever"`
	Completion CompletionConfig `yaml:"completion"`
	Line       LineConfig       `yaml:"line"`
	Server     ServerConfig     `yaml:"server"`
}

// Load reads a config from the given path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Validate checks the parts of the config that must be right before the
// process serves traffic. Violations wrap domain.ErrConfiguration and are
// fatal at startup.
func (cfg *AppConfig) Validate() error {
	if !domain.Metric(cfg.Index.Metric).Valid() {
		return fmt.Errorf("%w: unknown metric %q", domain.ErrConfiguration, cfg.Index.Metric)
	}
	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return fmt.Errorf("%w: openai embedder config missing", domain.ErrConfiguration)
		}
		if os.Getenv(cfg.Embedder.OpenAI.APIKeyEnv) == "" {
			return fmt.Errorf("%w: missing API key in env %s", domain.ErrConfiguration, cfg.Embedder.OpenAI.APIKeyEnv)
		}
	case "local":
	default:
		return fmt.Errorf("%w: unknown embedder %q", domain.ErrConfiguration, cfg.Embedder.Type)
	}
	switch cfg.Index.Type {
	case "memory":
	case "pinecone":
		if cfg.Index.Pinecone == nil {
			return fmt.Errorf("%w: pinecone config missing", domain.ErrConfiguration)
		}
		if os.Getenv(cfg.Index.Pinecone.APIKeyEnv) == "" {
			return fmt.Errorf("%w: missing API key in env %s", domain.ErrConfiguration, cfg.Index.Pinecone.APIKeyEnv)
		}
	case "sqlite":
		if cfg.Index.SQLite == nil || cfg.Index.SQLite.Path == "" {
			return fmt.Errorf("%w: sqlite index path missing", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown index backend %q", domain.ErrConfiguration, cfg.Index.Type)
	}
	return nil
}

// ValidateLine checks webhook credentials; only the server binary needs them.
func (cfg *AppConfig) ValidateLine() error {
	if os.Getenv(cfg.Line.ChannelSecretEnv) == "" {
		return fmt.Errorf("%w: missing channel secret in env %s", domain.ErrConfiguration, cfg.Line.ChannelSecretEnv)
	}
	if os.Getenv(cfg.Line.ChannelTokenEnv) == "" {
		return fmt.Errorf("%w: missing channel token in env %s", domain.ErrConfiguration, cfg.Line.ChannelTokenEnv)
	}
	return nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "local"},
		Index:    IndexConfig{Type: "memory"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Corpus.MaxChunkSize == 0 {
		cfg.Corpus.MaxChunkSize = 1000
	}
	if cfg.Corpus.ParallelDocs == 0 {
		cfg.Corpus.ParallelDocs = 4
	}
	if cfg.Corpus.EmbedRatePerSec == 0 {
		cfg.Corpus.EmbedRatePerSec = 5
	}
	if cfg.Corpus.FetchTimeoutSec == 0 {
		cfg.Corpus.FetchTimeoutSec = 10
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "local"
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 15
		}
		if o.MaxInputChars == 0 {
			o.MaxInputChars = 512
		}
	}
	if cfg.Embedder.Type == "local" {
		if cfg.Embedder.Local == nil {
			cfg.Embedder.Local = &LocalEmbedderConfig{}
		}
		if cfg.Embedder.Local.Dimension == 0 {
			cfg.Embedder.Local.Dimension = 256
		}
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Index.Name == "" {
		cfg.Index.Name = "pdf-documents"
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = string(domain.MetricCosine)
	}
	if cfg.Index.Type == "pinecone" && cfg.Index.Pinecone != nil {
		p := cfg.Index.Pinecone
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = "PINECONE_API_KEY"
		}
		if p.ControllerURL == "" {
			p.ControllerURL = "https://api.pinecone.io"
		}
		if p.Cloud == "" {
			p.Cloud = "aws"
		}
		if p.Region == "" {
			p.Region = "us-east-1"
		}
		if p.TimeoutSecs == 0 {
			p.TimeoutSecs = 15
		}
		if p.ReadyTimeoutSecs == 0 {
			p.ReadyTimeoutSecs = 120
		}
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 3
	}
	if cfg.Retriever.MaxContextChars == 0 {
		cfg.Retriever.MaxContextChars = 1000
	}
	if cfg.Retriever.MaxTotalContextChars == 0 {
		cfg.Retriever.MaxTotalContextChars = 6000
	}
	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Completion.APIKeyEnv == "" {
		cfg.Completion.APIKeyEnv = "OPENROUTER_API_KEY"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "deepseek/deepseek-r1:free"
	}
	if cfg.Completion.TimeoutSecs == 0 {
		cfg.Completion.TimeoutSecs = 20
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = 0.2
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 1024
	}
	if cfg.Line.ChannelSecretEnv == "" {
		cfg.Line.ChannelSecretEnv = "LINE_CHANNEL_SECRET"
	}
	if cfg.Line.ChannelTokenEnv == "" {
		cfg.Line.ChannelTokenEnv = "LINE_CHANNEL_ACCESS_TOKEN"
	}
	if cfg.Line.ReplyURL == "" {
		cfg.Line.ReplyURL = "https://api.line.me/v2/bot/message/reply"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
