// Command docsearch-tui ingests a document and opens an interactive query
// session in the terminal. With the default memory backend and local
// embedder it runs fully offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docsearch/internal/chunker"
	"docsearch/internal/config"
	"docsearch/internal/domain"
	"docsearch/internal/embedding/local"
	"docsearch/internal/embedding/openai"
	"docsearch/internal/extract"
	"docsearch/internal/index"
	"docsearch/internal/searchindex/azure"
	"docsearch/internal/searchindex/memory"
	"docsearch/internal/service"
	"docsearch/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if path := flag.Arg(0); path != "" {
		cfg.Document.Path = path
	}

	emb := buildEmbedder(cfg, log)
	store := buildStore(cfg)
	ch, err := chunker.NewParagraphChunker(cfg.Chunker.MaxChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		fatal("invalid chunker settings: %v", err)
	}

	ctx := context.Background()
	created, err := index.NewManager(store, log).EnsureIndex(ctx, cfg.IndexDefinition())
	if err != nil {
		fatal("index initialization failed: %v", err)
	}

	readiness := service.NewReadiness()
	if created {
		ingestor := service.NewIngestor(extract.NewFileExtractor(), ch, emb, store, cfg.Ingest.Workers, log)
		uploaded, err := ingestor.Ingest(ctx, domain.Document{Path: cfg.Document.Path}, cfg.Index.Name)
		if err != nil {
			fatal("ingestion failed: %v", err)
		}
		log.Info("ingestion complete", "uploaded", uploaded)
	}
	readiness.Set(true)

	searcher := service.NewSearcher(emb, store, readiness, cfg.Index.Name, log)
	if _, err := tea.NewProgram(tui.New(searcher, cfg.Server.TopK)).Run(); err != nil {
		fatal("%v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func buildEmbedder(cfg *config.AppConfig, log *slog.Logger) domain.Embedder {
	switch cfg.Embedder.Type {
	case "local", "":
		emb, err := local.NewEmbedder(cfg.Embedder.Dimensions)
		if err != nil {
			fatal("local embedder init failed: %v", err)
		}
		return emb
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			fatal("openai embedder config missing")
		}
		emb, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv:  cfg.Embedder.OpenAI.APIKeyEnv,
			Model:      cfg.Embedder.OpenAI.Model,
			APIVersion: cfg.Embedder.OpenAI.APIVersion,
			Dimensions: cfg.Embedder.Dimensions,
			MaxRetries: cfg.Embedder.OpenAI.MaxRetries,
			Timeout:    time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		}, log)
		if err != nil {
			fatal("openai embedder init failed: %v", err)
		}
		return emb
	default:
		fatal("unknown embedder type: %s", cfg.Embedder.Type)
		return nil
	}
}

func buildStore(cfg *config.AppConfig) domain.SearchStore {
	switch cfg.Search.Type {
	case "memory", "":
		return memory.NewStore()
	case "azure":
		az := cfg.Search.Azure
		return azure.NewClient(azure.Config{
			Endpoint:       az.Endpoint,
			APIKey:         os.Getenv(az.AdminKeyEnv),
			APIVersion:     az.APIVersion,
			SemanticConfig: cfg.Index.SemanticConfig,
			Timeout:        time.Duration(az.TimeoutSecs) * time.Second,
		})
	default:
		fatal("unknown search backend: %s", cfg.Search.Type)
		return nil
	}
}
