// Command docsearch runs the document search HTTP service: on startup it
// ensures the search index exists, ingests the configured document into a
// freshly created index, and then serves queries against it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

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
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	emb := buildEmbedder(cfg, log)
	adminStore, queryStore := buildStores(cfg)
	ch, err := chunker.NewParagraphChunker(cfg.Chunker.MaxChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		log.Error("invalid chunker settings", "error", err)
		os.Exit(1)
	}

	readiness := service.NewReadiness()
	searcher := service.NewSearcher(emb, queryStore, readiness, cfg.Index.Name, log)
	ingestor := service.NewIngestor(extract.NewFileExtractor(), ch, emb, adminStore, cfg.Ingest.Workers, log)
	manager := index.NewManager(adminStore, log)

	// Queries arriving before this finishes are rejected via the readiness
	// flag, not queued.
	go initializeIndex(context.Background(), cfg, manager, ingestor, readiness, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", handleQuery(searcher, cfg.Server.TopK, log))
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !readiness.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Info("listening", "addr", cfg.Server.Addr)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := server.ListenAndServe(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// initializeIndex runs the one-time startup task: ensure the index exists
// and ingest the document when this process created it. Ingestion failure
// leaves the service permanently not-ready for this process lifetime.
func initializeIndex(ctx context.Context, cfg *config.AppConfig, manager *index.Manager, ingestor *service.Ingestor, readiness *service.Readiness, log *slog.Logger) {
	created, err := manager.EnsureIndex(ctx, cfg.IndexDefinition())
	if err != nil {
		log.Error("index initialization failed", "error", err)
		readiness.Set(false)
		return
	}
	if !created {
		log.Info("index already populated, skipping ingestion", "index", cfg.Index.Name)
		readiness.Set(true)
		return
	}
	uploaded, err := ingestor.Ingest(ctx, domain.Document{Path: cfg.Document.Path}, cfg.Index.Name)
	if err != nil {
		log.Error("ingestion failed", "error", err)
		readiness.Set(false)
		return
	}
	log.Info("ingestion complete", "uploaded", uploaded)
	readiness.Set(true)
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type queryResult struct {
	ID            string  `json:"id"`
	Content       string  `json:"content"`
	SourceFile    string  `json:"sourcefile"`
	Score         float64 `json:"score"`
	RerankerScore float64 `json:"reranker_score"`
}

func handleQuery(searcher *service.Searcher, defaultTopK int, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		topK := req.TopK
		if topK <= 0 {
			topK = defaultTopK
		}
		results, err := searcher.Query(r.Context(), req.Query, topK)
		switch {
		case errors.Is(err, domain.ErrInvalidQuery):
			writeJSONError(w, http.StatusBadRequest, "'query' is required and must be a non-empty string")
			return
		case errors.Is(err, domain.ErrIndexUnavailable):
			writeJSONError(w, http.StatusServiceUnavailable, "search index not available yet")
			return
		case err != nil:
			log.Error("query failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to handle query")
			return
		}
		out := make([]queryResult, 0, len(results))
		for _, res := range results {
			out = append(out, queryResult{
				ID:            res.ID,
				Content:       res.Content,
				SourceFile:    res.SourceFile,
				Score:         res.Score,
				RerankerScore: res.RerankScore,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": out})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func buildEmbedder(cfg *config.AppConfig, log *slog.Logger) domain.Embedder {
	switch cfg.Embedder.Type {
	case "local", "":
		emb, err := local.NewEmbedder(cfg.Embedder.Dimensions)
		if err != nil {
			log.Error("local embedder init failed", "error", err)
			os.Exit(1)
		}
		return emb
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Error("openai embedder config missing")
			os.Exit(1)
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
			log.Error("openai embedder init failed", "error", err)
			os.Exit(1)
		}
		return emb
	default:
		log.Error("unknown embedder type", "type", cfg.Embedder.Type)
		os.Exit(1)
		return nil
	}
}

// buildStores returns the store used for index lifecycle and uploads and
// the store used for queries. They differ only for the azure backend, where
// admin and query credentials are split.
func buildStores(cfg *config.AppConfig) (adminStore, queryStore domain.SearchStore) {
	switch cfg.Search.Type {
	case "memory", "":
		store := memory.NewStore()
		return store, store
	case "azure":
		az := cfg.Search.Azure
		timeout := time.Duration(az.TimeoutSecs) * time.Second
		adminStore = azure.NewClient(azure.Config{
			Endpoint:       az.Endpoint,
			APIKey:         os.Getenv(az.AdminKeyEnv),
			APIVersion:     az.APIVersion,
			SemanticConfig: cfg.Index.SemanticConfig,
			Timeout:        timeout,
		})
		queryStore = azure.NewClient(azure.Config{
			Endpoint:       az.Endpoint,
			APIKey:         os.Getenv(az.QueryKeyEnv),
			APIVersion:     az.APIVersion,
			SemanticConfig: cfg.Index.SemanticConfig,
			Timeout:        timeout,
		})
		return adminStore, queryStore
	default:
		slog.Error("unknown search backend", "type", cfg.Search.Type)
		os.Exit(1)
		return nil, nil
	}
}
