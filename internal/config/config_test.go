package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, 1000, cfg.Chunker.MaxChunkSize)
	assert.Equal(t, 100, cfg.Chunker.Overlap)
	assert.Equal(t, "memory", cfg.Search.Type)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
document:
  path: report.txt
embedder:
  type: openai
  dimensions: 1536
  openai:
    api_key_env: MY_KEY
search:
  type: azure
  azure:
    endpoint: https://example.search.windows.net
index:
  name: my-index
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, 5, cfg.Embedder.OpenAI.MaxRetries)
	assert.Equal(t, "2023-11-01", cfg.Search.Azure.APIVersion)
	assert.Equal(t, "AZURE_SEARCH_ADMIN_KEY", cfg.Search.Azure.AdminKeyEnv)
	assert.Equal(t, 1000, cfg.Chunker.MaxChunkSize)
}

func TestValidateRejectsBadChunkerWindow(t *testing.T) {
	cfg := defaultConfig()
	cfg.Chunker.Overlap = cfg.Chunker.MaxChunkSize
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingAzureSettings(t *testing.T) {
	cfg := defaultConfig()
	cfg.Search.Type = "azure"
	cfg.Search.Azure = nil
	assert.Error(t, cfg.Validate())
}

func TestIndexDefinitionUsesEmbedderDimensions(t *testing.T) {
	cfg := defaultConfig()
	cfg.Embedder.Dimensions = 1536

	def := cfg.IndexDefinition()
	assert.Equal(t, cfg.Index.Name, def.Name)
	assert.Equal(t, 1536, def.Vector.Dimensions)
	assert.Equal(t, []string{"content"}, def.Semantic.ContentFields)
}
