package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docqa/internal/canned"
	"docqa/internal/chunker"
	"docqa/internal/completion"
	"docqa/internal/composer"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/local"
	"docqa/internal/embedding/openai"
	"docqa/internal/extractor"
	"docqa/internal/fetcher"
	"docqa/internal/indexer"
	"docqa/internal/retriever"
	"docqa/internal/service"
	"docqa/internal/tui"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/pinecone"
	"docqa/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	// Route logs to a file so they do not tear the TUI.
	logFile, err := os.OpenFile("docqa-chat.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	emb := buildEmbedder(cfg)
	index := buildIndex(cfg)

	ctx := context.Background()
	ensureCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	if err := index.EnsureCreated(ensureCtx, cfg.Index.Name, emb.Dimension(), domain.Metric(cfg.Index.Metric)); err != nil {
		log.Fatalf("index provisioning failed: %v", err)
	}
	cancel()

	fmt.Println("Indexing corpus...")
	idx := indexer.New(
		fetcher.NewHTTP(time.Duration(cfg.Corpus.FetchTimeoutSec)*time.Second),
		extractor.NewAuto(),
		chunker.NewFixedChunker(cfg.Corpus.MaxChunkSize),
		emb,
		index,
		indexer.Config{ParallelDocs: cfg.Corpus.ParallelDocs, EmbedRatePerSec: cfg.Corpus.EmbedRatePerSec},
		logger,
	)
	stats, err := idx.Run(ctx, cfg.Corpus.URLs)
	if err != nil {
		log.Fatalf("indexing failed: %v", err)
	}

	completer, err := completion.NewClient(completion.Config{
		BaseURL:     cfg.Completion.BaseURL,
		APIKeyEnv:   cfg.Completion.APIKeyEnv,
		Model:       cfg.Completion.Model,
		Timeout:     time.Duration(cfg.Completion.TimeoutSecs) * time.Second,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
	})
	if err != nil {
		log.Fatalf("completion client init failed: %v", err)
	}

	pipe := service.New(
		canned.New(),
		retriever.New(emb, index, retriever.Config{
			TopK:                 cfg.Retriever.TopK,
			MaxContextChars:      cfg.Retriever.MaxContextChars,
			MaxTotalContextChars: cfg.Retriever.MaxTotalContextChars,
		}, logger),
		composer.New(completer, logger),
		logger,
	)

	status := fmt.Sprintf("Indexed %d documents, %d chunks (%d failed). Ctrl+C to quit.",
		stats.Documents, stats.Chunks, stats.DocumentsFailed+stats.ChunksFailed)
	if _, err := tea.NewProgram(tui.New(pipe, status)).Run(); err != nil {
		log.Fatal(err)
	}
}

func buildEmbedder(cfg *config.AppConfig) domain.Embedder {
	switch cfg.Embedder.Type {
	case "local":
		return local.New(cfg.Embedder.Local.Dimension)
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL:       cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv:     cfg.Embedder.OpenAI.APIKeyEnv,
			Model:         cfg.Embedder.OpenAI.Model,
			Timeout:       time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			MaxInputChars: cfg.Embedder.OpenAI.MaxInputChars,
			Dimension:     cfg.Embedder.OpenAI.Dimension,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		return client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
		return nil
	}
}

func buildIndex(cfg *config.AppConfig) domain.Index {
	switch cfg.Index.Type {
	case "memory":
		return memory.New()
	case "pinecone":
		p := cfg.Index.Pinecone
		return pinecone.New(pinecone.Config{
			APIKey:        os.Getenv(p.APIKeyEnv),
			ControllerURL: p.ControllerURL,
			Host:          p.Host,
			Namespace:     p.Namespace,
			Cloud:         p.Cloud,
			Region:        p.Region,
			Timeout:       time.Duration(p.TimeoutSecs) * time.Second,
			ReadyTimeout:  time.Duration(p.ReadyTimeoutSecs) * time.Second,
		})
	case "sqlite":
		ix, err := sqlite.Open(cfg.Index.SQLite.Path)
		if err != nil {
			log.Fatalf("sqlite index open failed: %v", err)
		}
		return ix
	default:
		log.Fatalf("unknown index backend: %s", cfg.Index.Type)
		return nil
	}
}
