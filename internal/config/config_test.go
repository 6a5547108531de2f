package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultChunkSize, cfg.RAG.ChunkSize)
	assert.Equal(t, 250, cfg.RAG.ChunkSize)
	assert.Zero(t, cfg.RAG.ChunkOverlap)
	assert.Equal(t, DefaultTopK, cfg.RAG.TopK)
	assert.Equal(t, DefaultDimension, cfg.Embedding.Dimension)
	assert.Equal(t, BackendFlat, cfg.Index.Backend)
	assert.Equal(t, ProviderLocal, cfg.EmbedLLM.Provider)
	assert.Equal(t, ProviderNone, cfg.ExtractLLM.Provider)
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
embed_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: all-minilm
rag:
  chunk_size: 100
  chunk_overlap: 20
  top_k: 3
index:
  backend: chromem
  dir: /tmp/idx
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.EmbedLLM.Provider)
	assert.Equal(t, "all-minilm", cfg.EmbedLLM.Model)
	assert.Equal(t, 100, cfg.RAG.ChunkSize)
	assert.Equal(t, 20, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, BackendChromem, cfg.Index.Backend)
	assert.Equal(t, "/tmp/idx", cfg.Index.Dir)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyDefaults_ResetsInvalidOverlap(t *testing.T) {
	cfg := &Config{RAG: RAGConfig{ChunkSize: 10, ChunkOverlap: 10}}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultChunkSize, cfg.RAG.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.RAG.ChunkOverlap)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RM_PG_DSN", "postgres://u:p@localhost/db")
	t.Setenv("RM_LLM_KEY", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Database.DSN)
	assert.Equal(t, "secret", cfg.ExtractLLM.Key)
	assert.Equal(t, "secret", cfg.ChatLLM.Key)
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.ExtractLLM.Key = "sk-secret"
	cfg.Database.DSN = "postgres://app:hunter2@db:5432/rm?sslmode=disable"
	cfg.Cache.Password = "redis-pass"
	cfg.Index.EncryptionKey = "0123456789abcdef0123456789abcdef"

	r := cfg.Redacted()
	assert.Equal(t, "xxxxx", r.ExtractLLM.Key)
	assert.Empty(t, r.ChatLLM.Key)
	assert.Equal(t, "postgres://app:xxxxx@db:5432/rm?sslmode=disable", r.Database.DSN)
	assert.Equal(t, "xxxxx", r.Cache.Password)
	assert.Equal(t, "xxxxx", r.Index.EncryptionKey)

	assert.Equal(t, "sk-secret", cfg.ExtractLLM.Key)
	assert.Equal(t, "redis-pass", cfg.Cache.Password)

	cfg.Database.DSN = "host=db user=app password=hunter2"
	assert.Equal(t, "xxxxx", cfg.Redacted().Database.DSN)
}
