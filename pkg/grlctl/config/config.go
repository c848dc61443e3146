package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/telekom/nusources-grl/pkg/dag"
	"github.com/telekom/nusources-grl/pkg/gapsource"
	"github.com/telekom/nusources-grl/pkg/grltable"
	"github.com/telekom/nusources-grl/pkg/telemetry"
)

const (
	VersionV1 = "v1"

	DefaultDataRoot     = "/data/exp/IceCube"
	DefaultDAGFile      = "make_sources_grl.dag"
	DefaultSubmitFile   = "submit.sub"
	DefaultOutputFormat = "table"
)

type Config struct {
	Version  string   `yaml:"version"`
	Input    Input    `yaml:"input,omitempty"`
	Reports  Reports  `yaml:"reports,omitempty"`
	Build    Build    `yaml:"build,omitempty"`
	DAG      DAG      `yaml:"dag,omitempty"`
	Metrics  Metrics  `yaml:"metrics,omitempty"`
	Tracing  Tracing  `yaml:"tracing,omitempty"`
	Settings Settings `yaml:"settings,omitempty"`
}

type Input struct {
	DataRoot      string   `yaml:"data-root,omitempty"`
	RequireLevel2 *bool    `yaml:"require-level2,omitempty"`
	Exclude       []string `yaml:"exclude,omitempty"`
}

type Reports struct {
	Archives []string `yaml:"archives,omitempty"`
	Loose    string   `yaml:"loose,omitempty"`
}

type Build struct {
	OutputDir string        `yaml:"output-dir,omitempty"`
	Prefix    string        `yaml:"prefix,omitempty"`
	Threshold time.Duration `yaml:"merge-threshold,omitempty"`
}

type DAG struct {
	Roots       []string `yaml:"roots,omitempty"`
	File        string   `yaml:"file,omitempty"`
	SubmitFile  string   `yaml:"submit-file,omitempty"`
	Env         string   `yaml:"env,omitempty"`
	Binary      string   `yaml:"binary,omitempty"`
	JobTemplate string   `yaml:"job-template,omitempty"`
	Concurrency int      `yaml:"concurrency,omitempty"`
}

type Metrics struct {
	Textfile    string `yaml:"textfile,omitempty"`
	Pushgateway string `yaml:"pushgateway,omitempty"`
	Job         string `yaml:"job,omitempty"`
}

type Tracing struct {
	// Exporter is otlp, stdout or none; empty disables tracing.
	Exporter     string  `yaml:"exporter,omitempty"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	Insecure     bool    `yaml:"insecure,omitempty"`
	SamplingRate float64 `yaml:"sampling-rate,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output-format,omitempty"`
}

func DefaultConfig() Config {
	requireLevel2 := true
	return Config{
		Version: VersionV1,
		Input: Input{
			DataRoot:      DefaultDataRoot,
			RequireLevel2: &requireLevel2,
			Exclude:       []string{"GCD"},
		},
		Reports: Reports{
			Archives: []string{gapsource.DefaultArchivePattern, gapsource.DefaultNestedArchivePattern},
			Loose:    gapsource.DefaultLoosePattern,
		},
		Build: Build{
			Prefix:    grltable.DefaultPrefix,
			Threshold: time.Second,
		},
		DAG: DAG{
			File:        DefaultDAGFile,
			SubmitFile:  DefaultSubmitFile,
			Concurrency: 4,
		},
		Metrics: Metrics{
			Job: "grlctl",
		},
		Settings: Settings{
			OutputFormat: DefaultOutputFormat,
		},
	}
}

// Load reads the config at path. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	// Lists replace rather than merge, so clear them before decoding.
	cfg.Input.Exclude = nil
	cfg.Reports.Archives = nil
	if err := yaml.UnmarshalStrict(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	def := DefaultConfig()
	if cfg.Input.Exclude == nil {
		cfg.Input.Exclude = def.Input.Exclude
	}
	if cfg.Reports.Archives == nil {
		cfg.Reports.Archives = def.Reports.Archives
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields DefaultConfig.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		def := DefaultConfig()
		return &def, nil
	}
	return cfg, err
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o644)
}

func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("config version missing")
	}
	if c.Version != VersionV1 {
		return fmt.Errorf("unsupported config version %q", c.Version)
	}
	if c.Build.Threshold < 0 {
		return fmt.Errorf("merge-threshold must not be negative, got %s", c.Build.Threshold)
	}
	if c.DAG.Concurrency < 0 {
		return fmt.Errorf("dag concurrency must not be negative, got %d", c.DAG.Concurrency)
	}
	if strings.TrimSpace(c.Reports.Loose) == "" {
		return errors.New("reports.loose pattern is required")
	}
	patterns := append([]string{c.Reports.Loose}, c.Reports.Archives...)
	for _, p := range patterns {
		if _, err := gapsource.Render(p, c.Input.DataRoot, 2012, 1); err != nil {
			return err
		}
	}
	switch c.Tracing.Exporter {
	case "", telemetry.ExporterOTLP, telemetry.ExporterStdout, telemetry.ExporterNone:
	default:
		return fmt.Errorf("unknown trace exporter %q", c.Tracing.Exporter)
	}
	if c.Tracing.Exporter == telemetry.ExporterOTLP && c.Tracing.Endpoint == "" {
		return errors.New("tracing.endpoint is required for the otlp exporter")
	}
	switch c.Settings.OutputFormat {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", c.Settings.OutputFormat)
	}
	return nil
}

// Level2Required reports whether input paths must mention level2.
func (c *Config) Level2Required() bool {
	return c.Input.RequireLevel2 == nil || *c.Input.RequireLevel2
}

// ReportPatterns returns the gap report locations below the data root.
func (c *Config) ReportPatterns() gapsource.Patterns {
	p := gapsource.DefaultPatterns(c.Input.DataRoot)
	if len(c.Reports.Archives) > 0 {
		p.Archives = c.Reports.Archives
	}
	if c.Reports.Loose != "" {
		p.Loose = c.Reports.Loose
	}
	return p
}

// DAGRoots returns the configured run directory globs, or the default
// seasons below the data root.
func (c *Config) DAGRoots() []string {
	if len(c.DAG.Roots) > 0 {
		return c.DAG.Roots
	}
	return dag.DefaultRoots(c.Input.DataRoot)
}
