package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/panbanda/decomplex/internal/output"
	"github.com/panbanda/decomplex/pkg/models"
	"github.com/panbanda/decomplex/pkg/store"
)

// Config holds all configuration options for decomplex.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Score store settings
	Store StoreConfig `koanf:"store" toml:"store"`

	// Report settings
	Report ReportConfig `koanf:"report" toml:"report"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`
}

// AnalysisConfig controls how files are analyzed.
type AnalysisConfig struct {
	Workers     int   `koanf:"workers" toml:"workers"`             // 0 = 2x NumCPU
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
}

// StoreConfig selects where score history is kept.
type StoreConfig struct {
	Backend string `koanf:"backend" toml:"backend"` // json, dir, sqlite
	Path    string `koanf:"path" toml:"path"`       // empty = backend default under .decomplex
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Continuous bool            `koanf:"continuous" toml:"continuous"`
	Format     string          `koanf:"format" toml:"format"` // text, table, json, yaml, toon, markdown
	Color      bool            `koanf:"color" toml:"color"`
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`
}

// ThresholdConfig defines the limits above which nodes are highlighted.
type ThresholdConfig struct {
	Cyclomatic int `koanf:"cyclomatic" toml:"cyclomatic"`
	Cognitive  int `koanf:"cognitive" toml:"cognitive"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// DataDir is the directory holding decomplex state.
const DataDir = ".decomplex"

// ConfigNames are the file names searched by LoadConfig, in order.
var ConfigNames = []string{
	"decomplex.toml",
	"decomplex.yaml",
	"decomplex.yml",
	"decomplex.json",
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	th := models.DefaultThresholds()
	return &Config{
		Analysis: AnalysisConfig{
			Workers:     1,
			MaxFileSize: 1 << 20,
		},
		Store: StoreConfig{
			Backend: string(store.BackendJSON),
		},
		Report: ReportConfig{
			Continuous: false,
			Format:     string(output.FormatText),
			Color:      true,
			Thresholds: ThresholdConfig{
				Cyclomatic: th.MaxCyclomatic,
				Cognitive:  th.MaxCognitive,
			},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.d.ts",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				DataDir,
				"dist",
				"build",
				"__pycache__",
				".venv",
			},
			Gitignore: true,
		},
	}
}

// LoadResult is a loaded configuration and the file it came from.
type LoadResult struct {
	Config *Config
	Source string // empty when defaults were used
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
	dir  string
}

// WithPath loads from an explicit file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithDir searches for config files relative to dir instead of the working directory.
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) {
		o.dir = dir
	}
}

// LoadConfig loads the configuration from an explicit path or from the first
// config file found in the search directories, and validates it. With no
// file found the defaults are returned.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{dir: "."}
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = find(o.dir)
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// find returns the first existing config file under dir or dir/.decomplex.
func find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, DataDir)} {
		for _, name := range ConfigNames {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// Load loads configuration from a file, overlaying the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every invalid value.
func (c *Config) Validate() error {
	var errs []error

	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must be >= 0, got %d", c.Analysis.Workers))
	}
	if c.Analysis.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_file_size must be >= 0, got %d", c.Analysis.MaxFileSize))
	}
	if !slices.Contains(store.Backends, store.Backend(c.Store.Backend)) {
		errs = append(errs, fmt.Errorf("store.backend %q: %w", c.Store.Backend, store.ErrUnknownBackend))
	}
	if !slices.Contains(output.Formats, output.Format(c.Report.Format)) {
		errs = append(errs, fmt.Errorf("report.format %q is not one of %v", c.Report.Format, output.Formats))
	}
	if c.Report.Thresholds.Cyclomatic < 0 || c.Report.Thresholds.Cognitive < 0 {
		errs = append(errs, errors.New("report.thresholds must be >= 0"))
	}

	return errors.Join(errs...)
}

// StorePath returns the configured store location, or the backend's default
// under DataDir.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch store.Backend(c.Store.Backend) {
	case store.BackendDir:
		return filepath.Join(DataDir, "scores")
	case store.BackendSQLite:
		return filepath.Join(DataDir, "scores.db")
	default:
		return filepath.Join(DataDir, "scores.json")
	}
}

// Thresholds returns the report thresholds as a models.Thresholds.
func (c *Config) Thresholds() models.Thresholds {
	return models.Thresholds{
		MaxCyclomatic: c.Report.Thresholds.Cyclomatic,
		MaxCognitive:  c.Report.Thresholds.Cognitive,
	}
}
