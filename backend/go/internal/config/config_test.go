package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 79, cfg.RAG.TopK)
	assert.Equal(t, 550, cfg.RAG.MaxTokens)
	assert.Equal(t, []string{"<|eot_id|>"}, cfg.RAG.Stop)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, PreDeleteContinue, cfg.RAG.PreDeletePolicy)
	assert.Equal(t, DocumentModeSingle, cfg.RAG.DocumentMode)
	assert.Equal(t, "huggingface", cfg.LLM.Provider)
	assert.Equal(t, "test", cfg.App.Name)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte("rag:\n  topK: 5\n  documentMode: multi\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, DocumentModeMulti, cfg.RAG.DocumentMode)
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("HUGGINGFACEHUB_API_TOKEN", "hf_test")
	t.Setenv("MILVUS_ADDRESS", "milvus:19530")

	cfg, err := Parse([]byte("llm:\n  huggingface:\n    apiKey: from-yaml\n"))
	require.NoError(t, err)

	assert.Equal(t, "hf_test", cfg.LLM.HuggingFace.APIKey)
	assert.Equal(t, "hf_test", cfg.Embedding.HuggingFace.APIKey)
	assert.Equal(t, "milvus:19530", cfg.Databases.Milvus.Address)
}

func TestValidateMissingCredentials(t *testing.T) {
	t.Setenv("HUGGINGFACEHUB_API_TOKEN", "")
	cfg, err := Parse([]byte("databases:\n  vectorDriver: memory\n  blobDriver: memory\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "HUGGINGFACEHUB_API_TOKEN")
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	t.Setenv("HUGGINGFACEHUB_API_TOKEN", "hf_test")
	cfg, err := Parse([]byte("rag:\n  preDeletePolicy: sometimes\ndatabases:\n  vectorDriver: memory\n  blobDriver: memory\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Problems, 1)
}

func TestValidateInMemoryStackPasses(t *testing.T) {
	t.Setenv("HUGGINGFACEHUB_API_TOKEN", "hf_test")
	cfg, err := Parse([]byte("databases:\n  vectorDriver: memory\n  blobDriver: memory\n"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9999\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Address)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 2*time.Minute, Duration("2m", time.Second))
	assert.Equal(t, time.Second, Duration("bogus", time.Second))
}
