package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "flat", cfg.Index.Backend)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 7, cfg.BatchTopK)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
docs_path: /srv/policies
index:
  backend: qdrant
  qdrant:
    host: qdrant.internal
top_k: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/policies", cfg.DocsPath)
	assert.Equal(t, "qdrant", cfg.Index.Backend)
	assert.Equal(t, "qdrant.internal", cfg.Index.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Index.Qdrant.Port) // default preserved
	assert.Equal(t, 10, cfg.TopK)
	assert.Equal(t, "chunk_cache", cfg.CacheDir)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QDRANT_HOST", "override-host")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "override-host", cfg.Index.Qdrant.Host)
	assert.Equal(t, 7000, cfg.Index.Qdrant.Port)
	assert.Equal(t, "gemini-2.0-flash", cfg.Generation.GeminiModel)
}

func TestLoad_BadEnvIntIgnored(t *testing.T) {
	t.Setenv("QDRANT_PORT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 6334, cfg.Index.Qdrant.Port)
}
