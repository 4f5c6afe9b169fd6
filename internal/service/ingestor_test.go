package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/chunker"
	"docsearch/internal/domain"
	"docsearch/internal/embedding/local"
	"docsearch/internal/extract"
	"docsearch/internal/index"
	"docsearch/internal/searchindex/memory"
)

const testDims = 32

func testDefinition() domain.IndexDefinition {
	return domain.IndexDefinition{
		Name:     "earnings-index",
		Vector:   domain.VectorConfig{Dimensions: testDims, Algorithm: "hnsw", Profile: "p"},
		Semantic: domain.SemanticConfig{Name: "s", ContentFields: []string{"content"}},
	}
}

func writeTestDocument(t *testing.T, paragraphs []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(paragraphs, "\n\n")), 0o644))
	return path
}

// failingEmbedder fails on one specific chunk content.
type failingEmbedder struct {
	domain.Embedder
	failOn string
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, f.failOn) {
		return nil, errors.New("provider unavailable")
	}
	return f.Embedder.Embed(ctx, text)
}

type uploadCountingStore struct {
	domain.SearchStore
	uploads int
}

func (u *uploadCountingStore) UploadChunks(ctx context.Context, name string, chunks []domain.Chunk) error {
	u.uploads++
	return u.SearchStore.UploadChunks(ctx, name, chunks)
}

func TestIngestEndToEnd(t *testing.T) {
	ctx := context.Background()

	paragraphs := make([]string, 7)
	for i := range paragraphs {
		paragraphs[i] = fmt.Sprintf("Paragraph %d discusses general financial performance and outlook.", i+1)
	}
	paragraphs[4] = "Paragraph 5 covers the zanzibar acquisition and its expected synergies."
	docPath := writeTestDocument(t, paragraphs)

	ch, err := chunker.NewParagraphChunker(1000, 100)
	require.NoError(t, err)
	emb, err := local.NewEmbedder(testDims)
	require.NoError(t, err)
	store := memory.NewStore()

	created, err := index.NewManager(store, nil).EnsureIndex(ctx, testDefinition())
	require.NoError(t, err)
	require.True(t, created)

	ing := NewIngestor(extract.NewFileExtractor(), ch, emb, store, 4, nil)
	uploaded, err := ing.Ingest(ctx, domain.Document{Path: docPath}, "earnings-index")
	require.NoError(t, err)
	assert.Equal(t, 7, uploaded)

	// Each uploaded chunk must carry a distinct id and a full-size embedding.
	all, err := store.Search(ctx, "earnings-index", domain.SearchQuery{Text: "financial", Vector: make([]float32, testDims), TopK: 7})
	require.NoError(t, err)
	require.Len(t, all, 7)
	ids := make(map[string]struct{})
	for _, r := range all {
		ids[r.ID] = struct{}{}
	}
	assert.Len(t, ids, 7)

	// Querying for the topic unique to chunk 5 ranks it first.
	readiness := NewReadiness()
	readiness.Set(true)
	searcher := NewSearcher(emb, store, readiness, "earnings-index", nil)
	results, err := searcher.Query(ctx, "zanzibar acquisition synergies", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 3)
	assert.Contains(t, results[0].Content, "zanzibar")
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].RerankScore, results[i].RerankScore)
	}
}

func TestIngestEmptyDocumentUploadsNothing(t *testing.T) {
	ctx := context.Background()
	docPath := writeTestDocument(t, []string{"   ", "\t"})

	ch, err := chunker.NewParagraphChunker(1000, 100)
	require.NoError(t, err)
	emb, err := local.NewEmbedder(testDims)
	require.NoError(t, err)
	store := &uploadCountingStore{SearchStore: memory.NewStore()}

	ing := NewIngestor(extract.NewFileExtractor(), ch, emb, store, 2, nil)
	uploaded, err := ing.Ingest(ctx, domain.Document{Path: docPath}, "earnings-index")
	require.NoError(t, err)
	assert.Equal(t, 0, uploaded)
	assert.Equal(t, 0, store.uploads)
}

func TestIngestAbortsWhenEmbeddingFails(t *testing.T) {
	ctx := context.Background()
	docPath := writeTestDocument(t, []string{"first part", "poison pill paragraph", "third part"})

	ch, err := chunker.NewParagraphChunker(1000, 100)
	require.NoError(t, err)
	emb, err := local.NewEmbedder(testDims)
	require.NoError(t, err)
	store := &uploadCountingStore{SearchStore: memory.NewStore()}
	require.NoError(t, store.CreateIndex(ctx, testDefinition()))

	ing := NewIngestor(extract.NewFileExtractor(), ch, &failingEmbedder{Embedder: emb, failOn: "poison"}, store, 2, nil)
	_, err = ing.Ingest(ctx, domain.Document{Path: docPath}, "earnings-index")
	assert.ErrorContains(t, err, "provider unavailable")
	assert.Equal(t, 0, store.uploads)
}

func TestIngestMissingDocument(t *testing.T) {
	ch, err := chunker.NewParagraphChunker(1000, 100)
	require.NoError(t, err)
	emb, err := local.NewEmbedder(testDims)
	require.NoError(t, err)

	ing := NewIngestor(extract.NewFileExtractor(), ch, emb, memory.NewStore(), 2, nil)
	_, err = ing.Ingest(context.Background(), domain.Document{Path: "/no/such/report.txt"}, "earnings-index")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
