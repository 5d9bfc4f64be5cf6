// Package config loads and validates the YAML configuration for an
// embedded laurus index: where it lives on disk, its field schema, and
// its default search/fusion tuning.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	laurus "github.com/Aman-CERP/laurus"
)

// Config is the complete configuration for one laurus index.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Schema  SchemaConfig `yaml:"schema" json:"schema"`
	Search  SearchConfig `yaml:"search" json:"search"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// StorageConfig configures where the index's segments, vector indexes,
// and WAL live.
type StorageConfig struct {
	// Dir is the filesystem directory backing storage.FileStorage. Empty
	// uses DefaultDataDir().
	Dir string `yaml:"dir" json:"dir"`
	// Shard is this process's InternalID shard id (0-65535).
	Shard int `yaml:"shard" json:"shard"`
}

// FieldConfig describes one schema field the way a YAML config file
// names it, translated into a laurus.FieldOption by ToSchema.
type FieldConfig struct {
	// Kind is one of: text, integer, float, boolean, datetime, geo,
	// bytes, vector.
	Kind string `yaml:"kind" json:"kind"`

	// Lexical text flags (Kind == text only).
	Indexed     bool `yaml:"indexed" json:"indexed"`
	Stored      bool `yaml:"stored" json:"stored"`
	TermVectors bool `yaml:"term_vectors" json:"term_vectors"`

	// Vector field settings (Kind == vector only).
	VectorIndex string  `yaml:"vector_index" json:"vector_index"` // flat, hnsw, ivf
	Dimension   int     `yaml:"dimension" json:"dimension"`
	Metric      string  `yaml:"metric" json:"metric"`
	BaseWeight  float64 `yaml:"base_weight" json:"base_weight"`
	M              int `yaml:"m" json:"m"`
	EfConstruction int `yaml:"ef_construction" json:"ef_construction"`
	NClusters      int `yaml:"n_clusters" json:"n_clusters"`
	NProbe         int `yaml:"n_probe" json:"n_probe"`
}

// SchemaConfig is a YAML-friendly laurus.Schema: field name -> FieldConfig.
type SchemaConfig map[string]FieldConfig

// ToSchema translates the YAML schema into a laurus.Schema.
func (s SchemaConfig) ToSchema() (laurus.Schema, error) {
	out := make(laurus.Schema, len(s))
	for name, f := range s {
		opt, err := f.toFieldOption()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = opt
	}
	return out, nil
}

func (f FieldConfig) toFieldOption() (laurus.FieldOption, error) {
	if f.Kind == "vector" {
		kind := laurus.VectorFlat
		switch f.VectorIndex {
		case "", "flat":
			kind = laurus.VectorFlat
		case "hnsw":
			kind = laurus.VectorHNSW
		case "ivf":
			kind = laurus.VectorIVF
		default:
			return laurus.FieldOption{}, fmt.Errorf("unknown vector_index %q", f.VectorIndex)
		}
		metric := laurus.Metric(f.Metric)
		if metric == "" {
			metric = laurus.MetricCosine
		}
		return laurus.FieldOption{Vector: &laurus.VectorFieldOption{
			Kind: kind, Dimension: f.Dimension, Metric: metric, BaseWeight: f.BaseWeight,
			M: f.M, EfConstruction: f.EfConstruction, NClusters: f.NClusters, NProbe: f.NProbe,
		}}, nil
	}

	var kind laurus.LexicalFieldKind
	switch f.Kind {
	case "text":
		kind = laurus.LexicalText
	case "integer":
		kind = laurus.LexicalInteger
	case "float":
		kind = laurus.LexicalFloat
	case "boolean":
		kind = laurus.LexicalBoolean
	case "datetime":
		kind = laurus.LexicalDateTime
	case "geo":
		kind = laurus.LexicalGeo
	case "bytes":
		kind = laurus.LexicalBytes
	default:
		return laurus.FieldOption{}, fmt.Errorf("unknown field kind %q", f.Kind)
	}
	return laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{
		Kind:  kind,
		Flags: laurus.TextFlags{Indexed: f.Indexed, Stored: f.Stored, TermVectors: f.TermVectors},
	}}, nil
}

// SearchConfig configures default hybrid-search fusion tuning. A
// Request can still override any of these per call.
type SearchConfig struct {
	// Fusion selects "rrf" (default) or "weighted_sum".
	Fusion string `yaml:"fusion" json:"fusion"`
	// RRFConstant is the RRF smoothing parameter k (default 60).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`
	// LexicalWeight/VectorWeight are used only when Fusion is
	// "weighted_sum"; must be non-negative and need not sum to 1.
	LexicalWeight float64 `yaml:"lexical_weight" json:"lexical_weight"`
	VectorWeight  float64 `yaml:"vector_weight" json:"vector_weight"`
	DefaultLimit  int     `yaml:"default_limit" json:"default_limit"`
}

// PerformanceConfig configures index-time resource usage.
type PerformanceConfig struct {
	IndexWorkers    int `yaml:"index_workers" json:"index_workers"`
	IVFTrainSampleCap int `yaml:"ivf_train_sample_cap" json:"ivf_train_sample_cap"`
}

// defaultConfig returns a Config with sensible defaults and no schema
// fields; callers add their own field definitions on top.
func defaultConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{Dir: DefaultDataDir(), Shard: 0},
		Schema:  SchemaConfig{},
		Search: SearchConfig{
			Fusion:        "rrf",
			RRFConstant:   60,
			LexicalWeight: 1,
			VectorWeight:  1,
			DefaultLimit:  20,
		},
		Performance: PerformanceConfig{
			IndexWorkers: runtime.NumCPU(),
		},
		LogLevel: "info",
	}
}

// NewConfig returns a Config pre-populated with defaults, exported so
// callers constructing one programmatically (rather than via Load)
// start from the same baseline Load would.
func NewConfig() *Config {
	return defaultConfig()
}

// DefaultDataDir returns ~/.laurus/data (or a temp-dir fallback),
// mirroring how the teacher derives its default storage path.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".laurus", "data")
	}
	return filepath.Join(home, ".laurus", "data")
}

// UserConfigPath returns the path to the user/global configuration
// file, following the XDG Base Directory convention.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "laurus", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "laurus", "config.yaml")
	}
	return filepath.Join(home, ".config", "laurus", "config.yaml")
}

// Load builds a Config in order of increasing precedence:
//  1. hardcoded defaults
//  2. user/global config (UserConfigPath)
//  3. dir/laurus.yaml (project config, if dir is non-empty)
//  4. LAURUS_* environment variables
// The result is validated before being returned.
func Load(dir string) (*Config, error) {
	cfg := defaultConfig()

	if fileExists(UserConfigPath()) {
		if err := cfg.mergeYAMLFile(UserConfigPath()); err != nil {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	if dir != "" {
		projectPath := filepath.Join(dir, "laurus.yaml")
		if fileExists(projectPath) {
			if err := cfg.mergeYAMLFile(projectPath); err != nil {
				return nil, fmt.Errorf("loading project config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields of other onto c. Schema fields are
// merged key by key so a project config can add fields without
// repeating the user config's full schema.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Storage.Dir != "" {
		c.Storage.Dir = other.Storage.Dir
	}
	if other.Storage.Shard != 0 {
		c.Storage.Shard = other.Storage.Shard
	}
	for name, f := range other.Schema {
		c.Schema[name] = f
	}
	if other.Search.Fusion != "" {
		c.Search.Fusion = other.Search.Fusion
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.LexicalWeight != 0 {
		c.Search.LexicalWeight = other.Search.LexicalWeight
	}
	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.IVFTrainSampleCap != 0 {
		c.Performance.IVFTrainSampleCap = other.Performance.IVFTrainSampleCap
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies LAURUS_* environment variable overrides,
// the highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LAURUS_DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("LAURUS_SHARD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Storage.Shard = n
		}
	}
	if v := os.Getenv("LAURUS_FUSION"); v != "" {
		c.Search.Fusion = v
	}
	if v := os.Getenv("LAURUS_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("LAURUS_LEXICAL_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 {
			c.Search.LexicalWeight = w
		}
	}
	if v := os.Getenv("LAURUS_VECTOR_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("LAURUS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Storage.Shard < 0 || c.Storage.Shard > math.MaxUint16 {
		return fmt.Errorf("storage.shard must fit in a uint16, got %d", c.Storage.Shard)
	}
	switch c.Search.Fusion {
	case "rrf", "weighted_sum":
	default:
		return fmt.Errorf("search.fusion must be 'rrf' or 'weighted_sum', got %q", c.Search.Fusion)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.LexicalWeight < 0 || c.Search.VectorWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.DefaultLimit < 0 {
		return fmt.Errorf("search.default_limit must be non-negative, got %d", c.Search.DefaultLimit)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.LogLevel)
	}
	if schema, err := c.Schema.ToSchema(); err != nil {
		return err
	} else if err := schema.Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
