package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), []byte(content), 0o644))
	t.Chdir(dir)
}

func TestLoadDefaults(t *testing.T) {
	writeConfig(t, "app:\n  name: biocup-api\n")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Retrieval.TopK)
	assert.Equal(t, 7, cfg.Retrieval.TopSites)
	assert.Equal(t, 3, cfg.Retrieval.EvidencePerSite)
	assert.InDelta(t, 0.6, cfg.Retrieval.DenseWeight, 1e-9)
	assert.InDelta(t, 0.4, cfg.Retrieval.SparseWeight, 1e-9)
	assert.Equal(t, "minmax", cfg.Retrieval.Normalization)
	assert.False(t, cfg.Retrieval.SectionFilter)
	assert.Equal(t, 20*time.Second, cfg.Retrieval.ChunkTimeout)

	assert.Equal(t, 120, cfg.Pipeline.MinChunkChars)
	assert.Equal(t, "biocup_hybrid_v1", cfg.Vector.Qdrant.Collection)
	assert.Equal(t, 768, cfg.Encoder.Dense.Dimension)
	assert.Equal(t, "BAAI/bge-base-en-v1.5", cfg.Encoder.Dense.Model)
	assert.Equal(t, "prithivida/Splade_PP_en_v1", cfg.Encoder.Sparse.Model)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	writeConfig(t, `
retrieval:
  top_k: 25
  dense_weight: 0.5
  sparse_weight: 0.5
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.5, cfg.Retrieval.DenseWeight, 1e-9)
	// Untouched keys keep their defaults.
	assert.Equal(t, 7, cfg.Retrieval.TopSites)
}

func TestExpandEnvPlaceholders(t *testing.T) {
	t.Setenv("BIOCUP_TEST_PORT", "9999")

	assert.Equal(t, "9999", expandEnv("${BIOCUP_TEST_PORT:8080}"))
	assert.Equal(t, "8080", expandEnv("${BIOCUP_TEST_UNSET:8080}"))
	assert.Equal(t, "${BIOCUP_TEST_UNSET}", expandEnv("${BIOCUP_TEST_UNSET}"))
	assert.Equal(t, "", expandEnv("${BIOCUP_TEST_UNSET:}"))
}

func TestLoadExpandsPlaceholdersInFile(t *testing.T) {
	t.Setenv("BIOCUP_TEST_COLLECTION", "biocup_test")
	writeConfig(t, `
vector:
  qdrant:
    collection: ${BIOCUP_TEST_COLLECTION:fallback}
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "biocup_test", cfg.Vector.Qdrant.Collection)
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load()
	require.Error(t, err)
}
