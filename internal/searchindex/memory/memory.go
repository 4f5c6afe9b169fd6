// Package memory is an in-process search store used for offline runs and
// tests. Vector search is brute-force cosine similarity; the semantic rerank
// pass is approximated with query/content token overlap.
package memory

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"docsearch/internal/domain"
)

var _ domain.SearchStore = (*Store)(nil)

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

type index struct {
	def    domain.IndexDefinition
	chunks []domain.Chunk
}

// Store holds named indexes in memory.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{indexes: make(map[string]*index)}
}

// GetIndex returns the stored definition or domain.ErrIndexNotFound.
func (s *Store) GetIndex(_ context.Context, name string) (domain.IndexDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[name]
	if !ok {
		return domain.IndexDefinition{}, fmt.Errorf("index %q: %w", name, domain.ErrIndexNotFound)
	}
	return idx.def, nil
}

// CreateIndex registers a new index under its definition's name.
func (s *Store) CreateIndex(_ context.Context, def domain.IndexDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("index name must not be empty")
	}
	if def.Vector.Dimensions <= 0 {
		return fmt.Errorf("index %q: vector dimensions must be positive", def.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return fmt.Errorf("index %q already exists", def.Name)
	}
	s.indexes[def.Name] = &index{def: def}
	return nil
}

// UploadChunks appends a batch of embedded chunks, validating each embedding
// against the index vector dimension.
func (s *Store) UploadChunks(_ context.Context, indexName string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[indexName]
	if !ok {
		return fmt.Errorf("index %q: %w", indexName, domain.ErrIndexNotFound)
	}
	for _, chunk := range chunks {
		if len(chunk.Embedding) != idx.def.Vector.Dimensions {
			return fmt.Errorf("chunk %s: embedding has %d dimensions, index wants %d",
				chunk.ID, len(chunk.Embedding), idx.def.Vector.Dimensions)
		}
	}
	idx.chunks = append(idx.chunks, chunks...)
	return nil
}

// Search ranks chunks by token-overlap rerank score with cosine similarity
// as the tie-break, mirroring the hybrid ordering of the managed backend.
func (s *Store) Search(_ context.Context, indexName string, query domain.SearchQuery) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[indexName]
	if !ok {
		return nil, fmt.Errorf("index %q: %w", indexName, domain.ErrIndexNotFound)
	}
	topK := query.TopK
	if topK <= 0 {
		topK = 3
	}
	queryTokens := tokenSet(query.Text)
	results := make([]domain.SearchResult, 0, len(idx.chunks))
	for _, chunk := range idx.chunks {
		results = append(results, domain.SearchResult{
			ID:          chunk.ID,
			Content:     chunk.Content,
			SourceFile:  chunk.SourceFile,
			Score:       cosine(query.Vector, chunk.Embedding),
			RerankScore: overlapScore(queryTokens, chunk.Content),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RerankScore != results[j].RerankScore {
			return results[i].RerankScore > results[j].RerankScore
		}
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapScore is the Ochiai coefficient between the query token set and the
// distinct tokens of the content.
func overlapScore(queryTokens map[string]struct{}, content string) float64 {
	contentTokens := tokenSet(content)
	if len(queryTokens) == 0 || len(contentTokens) == 0 {
		return 0
	}
	inter := 0
	for t := range contentTokens {
		if _, ok := queryTokens[t]; ok {
			inter++
		}
	}
	return float64(inter) / (math.Sqrt(float64(len(queryTokens))) * math.Sqrt(float64(len(contentTokens))))
}
