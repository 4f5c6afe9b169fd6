package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"docsearch/internal/domain"
)

// DocumentConfig names the source document to ingest.
type DocumentConfig struct {
	Path string `yaml:"path"`
}

// ChunkerConfig configures how document text is split into chunks.
type ChunkerConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size"`
	Overlap      int `yaml:"overlap"`
}

// OpenAIEmbedderConfig holds settings for the OpenAI-compatible embedder.
// APIVersion switches the client into Azure OpenAI mode.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	APIVersion  string `yaml:"api_version,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the embedder implementation.
// Dimensions applies to every implementation and must match the index
// vector configuration.
type EmbedderConfig struct {
	Type       string                `yaml:"type"`
	Dimensions int                   `yaml:"dimensions"`
	OpenAI     *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// AzureSearchConfig contains connection details for the managed search
// backend. The admin key covers index lifecycle and uploads; the query key
// is enough for searches.
type AzureSearchConfig struct {
	Endpoint    string `yaml:"endpoint"`
	AdminKeyEnv string `yaml:"admin_key_env"`
	QueryKeyEnv string `yaml:"query_key_env"`
	APIVersion  string `yaml:"api_version"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SearchConfig selects and configures the search store implementation.
type SearchConfig struct {
	Type  string             `yaml:"type"`
	Azure *AzureSearchConfig `yaml:"azure,omitempty"`
}

// IndexConfig describes the index to ensure at startup.
type IndexConfig struct {
	Name           string `yaml:"name"`
	Algorithm      string `yaml:"algorithm"`
	VectorProfile  string `yaml:"vector_profile"`
	SemanticConfig string `yaml:"semantic_config"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	TopK int    `yaml:"top_k"`
}

// AppConfig is the root application configuration.
type AppConfig struct {
	Document DocumentConfig `yaml:"document"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Search   SearchConfig   `yaml:"search"`
	Index    IndexConfig    `yaml:"index"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Server   ServerConfig   `yaml:"server"`
}

// Load reads a config from the given path. A missing file is an error so a
// mistyped path cannot silently run on defaults; LoadDefault handles the
// no-config-yet case.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then
// ~/.config/docsearch/config.yaml, writing defaults there on first run.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate fails fast on configuration that would only surface per-request
// later: bad chunker windows and embedder settings in particular.
func (cfg *AppConfig) Validate() error {
	if cfg.Chunker.MaxChunkSize <= 0 {
		return fmt.Errorf("chunker: max_chunk_size must be positive, got %d", cfg.Chunker.MaxChunkSize)
	}
	if cfg.Chunker.Overlap >= cfg.Chunker.MaxChunkSize {
		return fmt.Errorf("chunker: overlap %d must be smaller than max_chunk_size %d",
			cfg.Chunker.Overlap, cfg.Chunker.MaxChunkSize)
	}
	if cfg.Embedder.Dimensions <= 0 {
		return fmt.Errorf("embedder: dimensions must be positive, got %d", cfg.Embedder.Dimensions)
	}
	if cfg.Search.Type == "azure" && cfg.Search.Azure == nil {
		return errors.New("search: azure backend selected but azure settings missing")
	}
	if cfg.Index.Name == "" {
		return errors.New("index: name must not be empty")
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docsearch", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Document: DocumentConfig{Path: "document.txt"},
		Chunker:  ChunkerConfig{MaxChunkSize: 1000, Overlap: 100},
		Embedder: EmbedderConfig{Type: "local", Dimensions: 256},
		Search:   SearchConfig{Type: "memory"},
		Index: IndexConfig{
			Name:           "docsearch-index",
			Algorithm:      "hnsw",
			VectorProfile:  "docsearch-vector-profile",
			SemanticConfig: "docsearch-semantic-config",
		},
		Ingest: IngestConfig{Workers: 4},
		Server: ServerConfig{Addr: ":8080", TopK: 3},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.MaxChunkSize == 0 {
		cfg.Chunker.MaxChunkSize = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = cfg.Chunker.MaxChunkSize / 10
	}
	if cfg.Embedder.Dimensions == 0 {
		cfg.Embedder.Dimensions = 1536
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		oai := cfg.Embedder.OpenAI
		if oai.BaseURL == "" {
			oai.BaseURL = "https://api.openai.com/v1"
		}
		if oai.APIKeyEnv == "" {
			oai.APIKeyEnv = "OPENAI_API_KEY"
		}
		if oai.Model == "" {
			oai.Model = "text-embedding-3-small"
		}
		if oai.TimeoutSecs == 0 {
			oai.TimeoutSecs = 30
		}
		if oai.MaxRetries == 0 {
			oai.MaxRetries = 5
		}
	}
	if cfg.Search.Type == "azure" && cfg.Search.Azure != nil {
		az := cfg.Search.Azure
		if az.AdminKeyEnv == "" {
			az.AdminKeyEnv = "AZURE_SEARCH_ADMIN_KEY"
		}
		if az.QueryKeyEnv == "" {
			az.QueryKeyEnv = "AZURE_SEARCH_QUERY_KEY"
		}
		if az.APIVersion == "" {
			az.APIVersion = "2023-11-01"
		}
		if az.TimeoutSecs == 0 {
			az.TimeoutSecs = 30
		}
	}
	if cfg.Index.Algorithm == "" {
		cfg.Index.Algorithm = "hnsw"
	}
	if cfg.Index.VectorProfile == "" {
		cfg.Index.VectorProfile = "docsearch-vector-profile"
	}
	if cfg.Index.SemanticConfig == "" {
		cfg.Index.SemanticConfig = "docsearch-semantic-config"
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.TopK == 0 {
		cfg.Server.TopK = 3
	}
}

// IndexDefinition returns the index schema implied by the config, with the
// vector dimension taken from the embedder so the two can never diverge.
func (cfg *AppConfig) IndexDefinition() domain.IndexDefinition {
	return domain.IndexDefinition{
		Name: cfg.Index.Name,
		Vector: domain.VectorConfig{
			Dimensions: cfg.Embedder.Dimensions,
			Algorithm:  cfg.Index.Algorithm,
			Profile:    cfg.Index.VectorProfile,
		},
		Semantic: domain.SemanticConfig{
			Name:          cfg.Index.SemanticConfig,
			ContentFields: []string{"content"},
		},
	}
}
