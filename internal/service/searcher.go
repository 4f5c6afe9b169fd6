package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docsearch/internal/domain"
)

// Searcher answers natural-language queries against a populated index.
// Every call is gated on the readiness flag before anything touches the
// embedding provider or the backend.
type Searcher struct {
	embedder  domain.Embedder
	store     domain.SearchStore
	readiness *Readiness
	indexName string
	log       *slog.Logger
}

// NewSearcher creates a query pipeline bound to one index.
func NewSearcher(embedder domain.Embedder, store domain.SearchStore, readiness *Readiness, indexName string, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	return &Searcher{
		embedder:  embedder,
		store:     store,
		readiness: readiness,
		indexName: indexName,
		log:       log,
	}
}

// Query embeds the query text and runs a hybrid search, returning at most
// topK results in the order the backend ranked them. The backend is the
// ranking authority; results are never re-sorted here. No matches yield an
// empty result set, not an error.
func (s *Searcher) Query(ctx context.Context, text string, topK int) ([]domain.SearchResult, error) {
	if !s.readiness.Ready() {
		return nil, domain.ErrIndexUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrInvalidQuery
	}
	if topK <= 0 {
		topK = 3
	}
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.store.Search(ctx, s.indexName, domain.SearchQuery{
		Text:   text,
		Vector: vector,
		TopK:   topK,
	})
	if err != nil {
		return nil, fmt.Errorf("search index %q: %w", s.indexName, err)
	}
	s.log.Info("query answered", "index", s.indexName, "top_k", topK, "results", len(results))
	return results, nil
}
