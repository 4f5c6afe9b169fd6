// Package azure is a minimal REST client for an Azure AI Search-compatible
// backend: index lifecycle, batch document upload and hybrid
// (vector + semantic) search.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"docsearch/internal/domain"
)

var _ domain.SearchStore = (*Client)(nil)

// Client talks to one search service endpoint with one API key. Index
// management and uploads need an admin key; queries work with a query key.
// Build separate clients when the two are split.
type Client struct {
	endpoint       string
	apiKey         string
	apiVersion     string
	semanticConfig string
	client         *http.Client
}

// Config carries connection details for the search service. SemanticConfig
// names the semantic configuration to rerank with; the backend rejects
// semantic queries that name none.
type Config struct {
	Endpoint       string
	APIKey         string
	APIVersion     string
	SemanticConfig string
	Timeout        time.Duration
}

// NewClient creates a search store client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2023-11-01"
	}
	return &Client{
		endpoint:       cfg.Endpoint,
		apiKey:         cfg.APIKey,
		apiVersion:     apiVersion,
		semanticConfig: cfg.SemanticConfig,
		client:         &http.Client{Timeout: timeout},
	}
}

type indexField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Key        bool   `json:"key,omitempty"`
	Searchable *bool  `json:"searchable,omitempty"`
	Filterable *bool  `json:"filterable,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
	Profile    string `json:"vectorSearchProfile,omitempty"`
}

type indexSchema struct {
	Name         string       `json:"name"`
	Fields       []indexField `json:"fields"`
	VectorSearch struct {
		Algorithms []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"algorithms"`
		Profiles []struct {
			Name      string `json:"name"`
			Algorithm string `json:"algorithm"`
		} `json:"profiles"`
	} `json:"vectorSearch"`
	Semantic struct {
		Configurations []struct {
			Name              string `json:"name"`
			PrioritizedFields struct {
				ContentFields []struct {
					FieldName string `json:"fieldName"`
				} `json:"prioritizedContentFields"`
			} `json:"prioritizedFields"`
		} `json:"configurations"`
	} `json:"semantic"`
}

// GetIndex fetches the index definition by name. A 404 from the service is
// reported as domain.ErrIndexNotFound; other failures are transport errors.
func (c *Client) GetIndex(ctx context.Context, name string) (domain.IndexDefinition, error) {
	var schema indexSchema
	status, err := c.doJSON(ctx, http.MethodGet, c.indexURL(name), nil, &schema)
	if err != nil {
		return domain.IndexDefinition{}, err
	}
	if status == http.StatusNotFound {
		return domain.IndexDefinition{}, fmt.Errorf("index %q: %w", name, domain.ErrIndexNotFound)
	}
	if status >= 300 {
		return domain.IndexDefinition{}, fmt.Errorf("get index %q: status %d", name, status)
	}
	def := domain.IndexDefinition{Name: schema.Name}
	for _, f := range schema.Fields {
		if f.Dimensions > 0 {
			def.Vector.Dimensions = f.Dimensions
			def.Vector.Profile = f.Profile
		}
	}
	for _, a := range schema.VectorSearch.Algorithms {
		def.Vector.Algorithm = a.Kind
	}
	for _, sc := range schema.Semantic.Configurations {
		def.Semantic.Name = sc.Name
		for _, cf := range sc.PrioritizedFields.ContentFields {
			def.Semantic.ContentFields = append(def.Semantic.ContentFields, cf.FieldName)
		}
	}
	return def, nil
}

// CreateIndex creates the index with the fixed chunk schema: id (key),
// content (searchable), embedding (vector) and sourcefile (filterable).
func (c *Client) CreateIndex(ctx context.Context, def domain.IndexDefinition) error {
	truth, falsehood := true, false
	algorithm := def.Vector.Algorithm
	if algorithm == "" {
		algorithm = "hnsw"
	}
	algorithmName := def.Name + "-algorithm"
	contentFields := make([]map[string]string, 0, len(def.Semantic.ContentFields))
	for _, f := range def.Semantic.ContentFields {
		contentFields = append(contentFields, map[string]string{"fieldName": f})
	}
	body := map[string]any{
		"name": def.Name,
		"fields": []indexField{
			{Name: "id", Type: "Edm.String", Key: true, Filterable: &truth},
			{Name: "content", Type: "Edm.String", Searchable: &truth, Filterable: &falsehood},
			{Name: "embedding", Type: "Collection(Edm.Single)", Searchable: &truth,
				Dimensions: def.Vector.Dimensions, Profile: def.Vector.Profile},
			{Name: "sourcefile", Type: "Edm.String", Filterable: &truth},
		},
		"vectorSearch": map[string]any{
			"algorithms": []map[string]any{{"name": algorithmName, "kind": algorithm}},
			"profiles":   []map[string]any{{"name": def.Vector.Profile, "algorithm": algorithmName}},
		},
		"semantic": map[string]any{
			"defaultConfiguration": def.Semantic.Name,
			"configurations": []map[string]any{{
				"name": def.Semantic.Name,
				"prioritizedFields": map[string]any{
					"prioritizedContentFields": contentFields,
				},
			}},
		},
	}
	status, err := c.doJSON(ctx, http.MethodPost, c.serviceURL("/indexes"), body, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("create index %q: status %d", def.Name, status)
	}
	return nil
}

// UploadChunks uploads a batch of embedded chunks in one request.
func (c *Client) UploadChunks(ctx context.Context, indexName string, chunks []domain.Chunk) error {
	docs := make([]map[string]any, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, map[string]any{
			"@search.action": "upload",
			"id":             chunk.ID,
			"content":        chunk.Content,
			"embedding":      chunk.Embedding,
			"sourcefile":     chunk.SourceFile,
		})
	}
	status, err := c.doJSON(ctx, http.MethodPost, c.indexURL(indexName)+"/docs/index", map[string]any{"value": docs}, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("upload to index %q: status %d", indexName, status)
	}
	return nil
}

// Search issues a hybrid query: k-nearest vector search over the embedding
// field with semantic reranking, selecting id, content and sourcefile.
// Results come back in the order the backend ranked them.
func (c *Client) Search(ctx context.Context, indexName string, query domain.SearchQuery) ([]domain.SearchResult, error) {
	topK := query.TopK
	if topK <= 0 {
		topK = 3
	}
	body := map[string]any{
		"search": query.Text,
		"vectorQueries": []map[string]any{{
			"kind":   "vector",
			"vector": query.Vector,
			"k":      topK,
			"fields": "embedding",
		}},
		"queryType": "semantic",
		"select":    "id,content,sourcefile",
		"top":       topK,
	}
	if c.semanticConfig != "" {
		body["semanticConfiguration"] = c.semanticConfig
	}
	var out struct {
		Value []struct {
			ID            string  `json:"id"`
			Content       string  `json:"content"`
			SourceFile    string  `json:"sourcefile"`
			Score         float64 `json:"@search.score"`
			RerankerScore float64 `json:"@search.rerankerScore"`
		} `json:"value"`
	}
	status, err := c.doJSON(ctx, http.MethodPost, c.indexURL(indexName)+"/docs/search", body, &out)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("search index %q: status %d", indexName, status)
	}
	results := make([]domain.SearchResult, 0, len(out.Value))
	for _, v := range out.Value {
		results = append(results, domain.SearchResult{
			ID:          v.ID,
			Content:     v.Content,
			SourceFile:  v.SourceFile,
			Score:       v.Score,
			RerankScore: v.RerankerScore,
		})
	}
	return results, nil
}

func (c *Client) serviceURL(path string) string {
	return fmt.Sprintf("%s%s?api-version=%s", c.endpoint, path, url.QueryEscape(c.apiVersion))
}

func (c *Client) indexURL(name string) string {
	return fmt.Sprintf("%s/indexes/%s", c.endpoint, url.PathEscape(name))
}

// doJSON sends one JSON request and decodes the response into out when the
// status is a success. Transport failures return an error; HTTP status
// handling is left to the caller.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, err
	}
	q := req.URL.Query()
	if q.Get("api-version") == "" {
		q.Set("api-version", c.apiVersion)
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
