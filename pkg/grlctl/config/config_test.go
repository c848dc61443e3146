package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Build.OutputDir = "/data/user/grl"
	cfg.Build.Threshold = 2500 * time.Millisecond
	cfg.DAG.Env = "/cvmfs/icecube.opensciencegrid.org/py3-v4.1.1/RHEL_7_x86_64/metaprojects/combo/stable/env-shell.sh"
	cfg.DAG.Binary = "/usr/local/bin/grlctl"

	require.NoError(t, Save(path, &cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, *loaded)
}

func TestLoadKeepsDefaultsForUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build:\n  output-dir: /out\n  merge-threshold: 3s\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, VersionV1, cfg.Version)
	assert.Equal(t, "/out", cfg.Build.OutputDir)
	assert.Equal(t, 3*time.Second, cfg.Build.Threshold)
	assert.Equal(t, DefaultDataRoot, cfg.Input.DataRoot)
	assert.Equal(t, []string{"GCD"}, cfg.Input.Exclude)
	assert.True(t, cfg.Level2Required())
	assert.Len(t, cfg.Reports.Archives, 2)
	require.NoError(t, cfg.Validate())
}

func TestLoadListsReplaceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input:\n  require-level2: false\n  exclude: [\"*GCD*\", \"*IT*\"]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"*GCD*", "*IT*"}, cfg.Input.Exclude)
	assert.False(t, cfg.Level2Required())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bulid:\n  prefix: x\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)

	_, err = Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unsupported version", func(c *Config) { c.Version = "v9" }},
		{"negative threshold", func(c *Config) { c.Build.Threshold = -time.Second }},
		{"negative concurrency", func(c *Config) { c.DAG.Concurrency = -1 }},
		{"missing loose pattern", func(c *Config) { c.Reports.Loose = " " }},
		{"broken template", func(c *Config) { c.Reports.Archives = []string{"{{ .Root "} }},
		{"unknown field in template", func(c *Config) { c.Reports.Loose = "{{ .Season }}" }},
		{"unknown output format", func(c *Config) { c.Settings.OutputFormat = "xml" }},
		{"unknown trace exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }},
		{"otlp without endpoint", func(c *Config) { c.Tracing.Exporter = "otlp" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestReportPatternsAndRoots(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.DataRoot = "/mnt/data"
	p := cfg.ReportPatterns()
	assert.Equal(t, "/mnt/data", p.Root)
	assert.Equal(t, cfg.Reports.Loose, p.Loose)

	roots := cfg.DAGRoots()
	require.NotEmpty(t, roots)
	assert.Equal(t, "/mnt/data/2010/filtered/level2pass2a/*/Run00??????", roots[0])

	cfg.DAG.Roots = []string{"/x/*/Run*"}
	assert.Equal(t, []string{"/x/*/Run*"}, cfg.DAGRoots())
}
