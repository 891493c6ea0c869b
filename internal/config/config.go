// Package config holds the YAML configuration of the spdata command.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hupe1980/spdata/bundle"
	"github.com/hupe1980/spdata/codec"
	"github.com/hupe1980/spdata/featurize"
	"github.com/hupe1980/spdata/generator"
	"github.com/hupe1980/spdata/model"
)

// Sampling presets.
const (
	PresetWiderRange     = "wider-range"
	PresetExtremeCases   = "extreme-cases"
	PresetVectorProducts = "vector-products"
)

// Cache backends.
const (
	BackendLocal = "local"
	BackendMinIO = "minio"
	BackendS3    = "s3"
)

// Config is the root of the configuration file.
type Config struct {
	Dataset    DatasetConfig    `yaml:"dataset"`
	Generation GenerationConfig `yaml:"generation"`
	Features   FeaturesConfig   `yaml:"features"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DatasetConfig locates a dataset. The manifest lives at
// <root>/csv/<name>.csv and matrices under <root>/<name>.
type DatasetConfig struct {
	Root string `yaml:"root"`
	Name string `yaml:"name"`
	// PathPrefix, when set, is rewritten to Root in matrix paths read from
	// the manifest.
	PathPrefix string `yaml:"path_prefix,omitempty"`
}

// RangeConfig is a continuous sampling range.
type RangeConfig struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Scale string  `yaml:"scale"`
}

// Distribution converts r to a generator.Range.
func (r RangeConfig) Distribution() (generator.Range, error) {
	s, err := generator.ParseScale(r.Scale)
	if err != nil {
		return generator.Range{}, err
	}
	return generator.Range{Min: r.Min, Max: r.Max, Scale: s}, nil
}

// GenerationConfig controls the generate command.
type GenerationConfig struct {
	Trials    int     `yaml:"trials"`
	Workers   int     `yaml:"workers"`
	Seed      uint64  `yaml:"seed"`
	RateLimit float64 `yaml:"rate_limit"`

	// Preset selects fixed sampling rules: wider-range (the default, driven
	// by the fields below), extreme-cases or vector-products. The size,
	// sparsity, max_nnz and symmetric fields only apply to wider-range.
	Preset string `yaml:"preset,omitempty"`
	// ExtremeCases is shorthand for preset extreme-cases.
	ExtremeCases bool   `yaml:"extreme_cases"`
	MaxNNZ       uint64 `yaml:"max_nnz"`

	// Size is the rows of matrix 1. Inner and Cols default to Size, giving
	// square matrices of one size.
	Size  RangeConfig  `yaml:"size"`
	Inner *RangeConfig `yaml:"inner,omitempty"`
	Cols  *RangeConfig `yaml:"cols,omitempty"`

	// Sparsity applies to every sparsity parameter not overridden below.
	Sparsity     RangeConfig  `yaml:"sparsity"`
	NNZSparsity  *RangeConfig `yaml:"nnz_sparsity,omitempty"`
	RowSparsity  *RangeConfig `yaml:"row_sparsity,omitempty"`
	ColSparsity  *RangeConfig `yaml:"col_sparsity,omitempty"`
	DiagSparsity *RangeConfig `yaml:"diag_sparsity,omitempty"`
	Symmetric    []bool       `yaml:"symmetric"`

	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	// Codec decodes the generator's stdout: "go-json" or "json".
	Codec string `yaml:"codec"`
}

// FeaturesConfig controls featurization.
type FeaturesConfig struct {
	Dim int `yaml:"dim"`
}

// CacheConfig selects where processed bundles are stored.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	// Dir is the local bundle directory. Empty means <root>/processed/<name>.
	Dir      string `yaml:"dir,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`
	UseSSL   bool   `yaml:"use_ssl"`

	Compression    string `yaml:"compression"`
	MemoryCapacity int    `yaml:"memory_capacity"`
	MemoryLimit    int64  `yaml:"memory_limit"`
	ReadLimit      int64  `yaml:"read_limit"`
	Workers        int    `yaml:"workers"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `yaml:"addr,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Dataset: DatasetConfig{
			Root: "./dataset",
			Name: "wider_range",
		},
		Generation: GenerationConfig{
			Trials:    50000,
			Seed:      1,
			MaxNNZ:    100000,
			Size:      RangeConfig{Min: 1.8, Max: 3.5, Scale: "log10"},
			Sparsity:  RangeConfig{Min: -10, Max: 0, Scale: "one-minus-log10"},
			Symmetric: []bool{true, false},
			Command:   "./matrix-generator",
			Codec:     "go-json",
		},
		Features: FeaturesConfig{
			Dim: featurize.DefaultDim,
		},
		Cache: CacheConfig{
			Backend:     BackendLocal,
			Compression: "lz4",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks every section and returns the first *model.ConfigError.
func (c *Config) Validate() error {
	if c.Dataset.Root == "" {
		return &model.ConfigError{Field: "dataset.root", Value: c.Dataset.Root, Reason: "is required"}
	}
	if c.Dataset.Name == "" || strings.ContainsAny(c.Dataset.Name, `/\`) {
		return &model.ConfigError{Field: "dataset.name", Value: c.Dataset.Name, Reason: "must be a plain file name"}
	}

	g := c.Generation
	if g.Trials < 0 {
		return &model.ConfigError{Field: "generation.trials", Value: g.Trials, Reason: "must not be negative"}
	}
	if g.Workers < 0 {
		return &model.ConfigError{Field: "generation.workers", Value: g.Workers, Reason: "must not be negative"}
	}
	if g.RateLimit < 0 {
		return &model.ConfigError{Field: "generation.rate_limit", Value: g.RateLimit, Reason: "must not be negative"}
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	if _, ok := codec.ByName(g.Codec); !ok {
		return &model.ConfigError{Field: "generation.codec", Value: g.Codec, Reason: "must be go-json or json"}
	}

	if err := featurize.ValidateDim(c.Features.Dim); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case BackendLocal:
	case BackendMinIO, BackendS3:
		if c.Cache.Bucket == "" {
			return &model.ConfigError{Field: "cache.bucket", Value: "", Reason: "is required for backend " + c.Cache.Backend}
		}
		if c.Cache.Backend == BackendMinIO && c.Cache.Endpoint == "" {
			return &model.ConfigError{Field: "cache.endpoint", Value: "", Reason: "is required for backend minio"}
		}
	default:
		return &model.ConfigError{Field: "cache.backend", Value: c.Cache.Backend, Reason: "must be local, minio or s3"}
	}
	if _, err := bundle.ParseCompression(c.Cache.Compression); err != nil {
		return &model.ConfigError{Field: "cache.compression", Value: c.Cache.Compression, Reason: err.Error()}
	}
	for field, v := range map[string]int64{
		"cache.memory_capacity": int64(c.Cache.MemoryCapacity),
		"cache.memory_limit":    c.Cache.MemoryLimit,
		"cache.read_limit":      c.Cache.ReadLimit,
		"cache.workers":         int64(c.Cache.Workers),
	} {
		if v < 0 {
			return &model.ConfigError{Field: field, Value: v, Reason: "must not be negative"}
		}
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return &model.ConfigError{Field: "log.format", Value: c.Log.Format, Reason: "must be text or json"}
	}
	return nil
}

// Rules returns the sampling rules described by the generation section.
func (c *Config) Rules() (generator.SamplingRules, error) {
	g := c.Generation
	preset := g.Preset
	if g.ExtremeCases {
		preset = PresetExtremeCases
	}

	switch preset {
	case PresetExtremeCases:
		return generator.ExtremeCaseRules(), nil
	case PresetVectorProducts:
		return generator.VectorProductRules(), nil
	case "", PresetWiderRange:
	default:
		return generator.SamplingRules{}, &model.ConfigError{
			Field:  "generation.preset",
			Value:  g.Preset,
			Reason: "must be wider-range, extreme-cases or vector-products",
		}
	}

	rules := generator.DefaultRules()
	rules.MaxNNZ = g.MaxNNZ
	rules.Symmetric = g.Symmetric

	var err error
	if rules.Rows, err = g.Size.Distribution(); err != nil {
		return generator.SamplingRules{}, err
	}
	if rules.Inner, err = optional(g.Inner, nil); err != nil {
		return generator.SamplingRules{}, err
	}
	if rules.Cols, err = optional(g.Cols, nil); err != nil {
		return generator.SamplingRules{}, err
	}

	sparsity, err := g.Sparsity.Distribution()
	if err != nil {
		return generator.SamplingRules{}, err
	}
	for _, f := range []struct {
		cfg *RangeConfig
		dst *generator.Distribution
	}{
		{g.NNZSparsity, &rules.NNZSparsity},
		{g.RowSparsity, &rules.RowSparsity},
		{g.ColSparsity, &rules.ColSparsity},
		{g.DiagSparsity, &rules.DiagSparsity},
	} {
		if *f.dst, err = optional(f.cfg, sparsity); err != nil {
			return generator.SamplingRules{}, err
		}
	}

	if err := rules.Validate(); err != nil {
		return generator.SamplingRules{}, fmt.Errorf("generation: %w", err)
	}
	return rules, nil
}

// optional returns def when r is unset.
func optional(r *RangeConfig, def generator.Distribution) (generator.Distribution, error) {
	if r == nil {
		return def, nil
	}
	return r.Distribution()
}

// LogLevel parses the log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, &model.ConfigError{Field: "log.level", Value: c.Log.Level, Reason: "unknown level"}
	}
	return l, nil
}
