// Package service composes the ingestion and query pipelines on top of the
// extractor, embedder and search store ports.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docsearch/internal/domain"
)

const progressInterval = 10

// Ingestor populates a search index from one source document: extract,
// chunk, embed, upload. The upload is all-or-nothing; a single failed
// embedding aborts the whole run and nothing is written.
type Ingestor struct {
	extractor domain.Extractor
	chunker   domain.Chunker
	embedder  domain.Embedder
	store     domain.SearchStore
	workers   int
	log       *slog.Logger
}

// NewIngestor creates an ingestion pipeline. workers bounds the number of
// concurrent embedding calls; values below one fall back to sequential.
func NewIngestor(extractor domain.Extractor, chunker domain.Chunker, embedder domain.Embedder, store domain.SearchStore, workers int, log *slog.Logger) *Ingestor {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		workers:   workers,
		log:       log,
	}
}

// Ingest reads the document, chunks its text, embeds every chunk and uploads
// the whole batch to the named index in one call. It returns the number of
// uploaded chunks. A document yielding no text is not an error: the result
// is simply zero uploads.
func (s *Ingestor) Ingest(ctx context.Context, doc domain.Document, indexName string) (int, error) {
	text, err := s.extractor.ExtractText(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("extract text from %s: %w", doc.Path, err)
	}
	if strings.TrimSpace(text) == "" {
		s.log.Warn("no text extracted from document", "document", doc.Path)
		return 0, nil
	}
	pieces := s.chunker.Chunk(text)
	s.log.Info("document chunked", "document", doc.Path, "text_length", len(text), "chunks", len(pieces))
	if len(pieces) == 0 {
		return 0, nil
	}

	chunks := make([]domain.Chunk, len(pieces))
	var embedded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, piece := range pieces {
		i, piece := i, piece
		g.Go(func() error {
			vector, err := s.embedder.Embed(gctx, piece)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			chunks[i] = domain.Chunk{
				ID:         uuid.NewString(),
				Content:    piece,
				Embedding:  vector,
				SourceFile: doc.Path,
			}
			if done := embedded.Add(1); done%progressInterval == 0 {
				s.log.Info("embedding progress", "done", done, "total", len(pieces))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := s.store.UploadChunks(ctx, indexName, chunks); err != nil {
		return 0, fmt.Errorf("upload %d chunks to index %q: %w", len(chunks), indexName, err)
	}
	s.log.Info("document ingested", "document", doc.Path, "index", indexName, "uploaded", len(chunks))
	return len(chunks), nil
}
