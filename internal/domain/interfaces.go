package domain

import "context"

// Document identifies a raw text source to be ingested. It is read once and
// discarded after chunking.
type Document struct {
	Path string
}

// Chunk is a bounded-size contiguous piece of a document's text, the atomic
// unit of indexing. The embedding is attached after chunking and must match
// the index vector dimension before upload.
type Chunk struct {
	ID         string
	Content    string
	Embedding  []float32
	SourceFile string
}

// SearchResult is one scored hit returned by the search store. RerankScore
// is the primary ranking key once semantic reranking is enabled; Score is
// the raw vector similarity, kept as a tie-break and diagnostic.
type SearchResult struct {
	ID          string
	Content     string
	SourceFile  string
	Score       float64
	RerankScore float64
}

// VectorConfig describes how vectors are indexed and compared.
type VectorConfig struct {
	Dimensions int
	Algorithm  string
	Profile    string
}

// SemanticConfig names the reranking configuration and the fields it ranks on.
type SemanticConfig struct {
	Name          string
	ContentFields []string
}

// IndexDefinition is the full schema of a search index. Immutable after
// creation; identified by name.
type IndexDefinition struct {
	Name     string
	Vector   VectorConfig
	Semantic SemanticConfig
}

// SearchQuery is a hybrid query: vector similarity over the embedding field
// combined with semantic reranking over the raw query text.
type SearchQuery struct {
	Text   string
	Vector []float32
	TopK   int
}

// Extractor pulls the full text out of a document source.
type Extractor interface {
	ExtractText(ctx context.Context, doc Document) (string, error)
}

// Embedder converts free text into a fixed-dimension vector. Dimensions is
// known at construction time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Chunker splits raw text into bounded chunks suitable for indexing.
type Chunker interface {
	Chunk(text string) []string
}

// SearchStore is the managed vector/semantic search backend. GetIndex
// reports absence with ErrIndexNotFound; any other failure is a transport
// error and must not be conflated with absence.
type SearchStore interface {
	GetIndex(ctx context.Context, name string) (IndexDefinition, error)
	CreateIndex(ctx context.Context, def IndexDefinition) error
	UploadChunks(ctx context.Context, indexName string, chunks []Chunk) error
	Search(ctx context.Context, indexName string, query SearchQuery) ([]SearchResult, error)
}
