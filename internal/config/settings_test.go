package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultCollection, s.Ingest.DefaultCollection)
	assert.Equal(t, DefaultChunkSize, s.Ingest.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, s.Ingest.ChunkOverlap)
	assert.Equal(t, "google", s.Embeddings.Provider)
}

func TestLoad_YamlThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	yml := `
embeddings:
  provider: local
  dimension: 64
vector:
  backend: sqlite
  sqlite_path: /tmp/k.db
ingest:
  chunk_size: 500
  chunk_overlap: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("CHUNK_OVERLAP", "25")
	t.Setenv("VECTOR_BACKEND", "memory")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", s.Embeddings.Provider)
	assert.Equal(t, 64, s.Embeddings.Dimension)
	assert.Equal(t, 500, s.Ingest.ChunkSize)
	assert.Equal(t, 25, s.Ingest.ChunkOverlap)
	assert.Equal(t, "memory", s.Vector.Backend)
	assert.Equal(t, "/tmp/k.db", s.Vector.SQLitePath)
}

func TestLoad_OpenAIDefaultModel(t *testing.T) {
	t.Setenv("EMBEDDINGS_PROVIDER", "openai")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, OpenAIEmbeddingModel, s.Embeddings.Model)
}

func TestLoad_BadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ingest: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
