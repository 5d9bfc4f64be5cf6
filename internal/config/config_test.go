package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigHasValidDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "rrf", cfg.Search.Fusion)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
}

func TestSchemaConfigToSchemaBuildsTextField(t *testing.T) {
	sc := SchemaConfig{
		"body": FieldConfig{Kind: "text", Indexed: true, Stored: true},
	}
	schema, err := sc.ToSchema()
	require.NoError(t, err)
	require.Contains(t, schema, "body")
	assert.Equal(t, "text", string(schema["body"].Lexical.Kind))
	assert.True(t, schema["body"].Lexical.Flags.Indexed)
}

func TestSchemaConfigToSchemaBuildsVectorField(t *testing.T) {
	sc := SchemaConfig{
		"embedding": FieldConfig{Kind: "vector", VectorIndex: "hnsw", Dimension: 384, Metric: "cosine", M: 16, EfConstruction: 200},
	}
	schema, err := sc.ToSchema()
	require.NoError(t, err)
	opt := schema["embedding"].Vector
	require.NotNil(t, opt)
	assert.Equal(t, "hnsw", string(opt.Kind))
	assert.Equal(t, 384, opt.Dimension)
	assert.Equal(t, 16, opt.M)
}

func TestSchemaConfigToSchemaDefaultsVectorMetricToCosine(t *testing.T) {
	sc := SchemaConfig{"v": FieldConfig{Kind: "vector", Dimension: 8}}
	schema, err := sc.ToSchema()
	require.NoError(t, err)
	assert.Equal(t, "cosine", string(schema["v"].Vector.Metric))
}

func TestSchemaConfigToSchemaRejectsUnknownKind(t *testing.T) {
	sc := SchemaConfig{"x": FieldConfig{Kind: "bogus"}}
	_, err := sc.ToSchema()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownFusion(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.Fusion = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeWeights(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.LexicalWeight = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsShardOutOfRange(t *testing.T) {
	cfg := NewConfig()
	cfg.Storage.Shard = 70000
	assert.Error(t, cfg.Validate())
}

func TestLoadAppliesProjectConfigOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
schema:
  body:
    kind: text
    indexed: true
    stored: true
search:
  fusion: weighted_sum
  lexical_weight: 2
  vector_weight: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "laurus.yaml"), []byte(yamlContent), 0644))

	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // ensure no real user config interferes
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "weighted_sum", cfg.Search.Fusion)
	assert.Equal(t, 2.0, cfg.Search.LexicalWeight)
	require.Contains(t, cfg.Schema, "body")
}

func TestLoadAppliesEnvOverridesOverFileConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LAURUS_FUSION", "weighted_sum")
	t.Setenv("LAURUS_RRF_CONSTANT", "30")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "weighted_sum", cfg.Search.Fusion)
	assert.Equal(t, 30, cfg.Search.RRFConstant)
}

func TestWriteYAMLThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := NewConfig()
	cfg.Schema["title"] = FieldConfig{Kind: "text", Indexed: true, Stored: true}
	path := filepath.Join(dir, "laurus.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Contains(t, loaded.Schema, "title")
}
