package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/nusources-grl/pkg/grlctl/output"
	"github.com/telekom/nusources-grl/pkg/grltable"
	"github.com/telekom/nusources-grl/pkg/reconcile"
	"github.com/telekom/nusources-grl/pkg/runfiles"
)

func TestBuildWritesTable(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	f.report(t, 0, report0)
	// No report for subrun 1; starts 0.5s after subrun 0 ends.
	f.eventFile(t, 1, 300.5, 400)

	outDir := t.TempDir()
	log, logs := observedLogger()
	out, err := execute(t, log, "build", "--path", f.runDir, "--data-root", f.root, "--output-dir", outDir, "-o", "json")
	require.NoError(t, err)

	var summary output.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 120156, summary.Run)
	assert.Equal(t, "IC86.2012", summary.Season)
	assert.Equal(t, 2, summary.Subruns)
	assert.Equal(t, 1, summary.Fallbacks)
	assert.Equal(t, 1, summary.Merged)
	assert.NotEmpty(t, summary.CorrelationID)
	require.Len(t, summary.Warnings, 1)

	rows, err := grltable.Read(filepath.Join(outDir, "IC86.2012", "NuSources_GRL_120156.npy"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, sec(2012, 100), rows[0].Start, 1e-9)
	assert.InDelta(t, sec(2012, 200), rows[0].Stop, 1e-9)
	assert.InDelta(t, sec(2012, 205), rows[1].Start, 1e-9)
	assert.InDelta(t, sec(2012, 400), rows[1].Stop, 1e-9)
	for _, r := range rows {
		assert.Equal(t, 120156, r.Run)
		assert.Equal(t, grltable.EventsUnset, r.Events)
	}

	assert.Equal(t, 1, logs.FilterMessage("Gap report unusable; falling back on event file").Len())
	for _, e := range logs.FilterMessage("Resolved run").All() {
		assert.NotEmpty(t, e.ContextMap()["correlationID"])
	}
}

func TestBuildEnvAndFlagPrecedence(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	f.report(t, 0, report0)

	envDir := t.TempDir()
	flagDir := t.TempDir()
	t.Setenv("GRLCTL_OUTPUT_DIR", envDir)
	t.Setenv("GRLCTL_DATA_ROOT", f.root)
	t.Setenv("GRLCTL_PREFIX", "Test_")

	_, err := execute(t, nil, "build", "--path", f.runDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(envDir, "IC86.2012", "Test_120156.npy"))

	_, err = execute(t, nil, "build", "--path", f.runDir, "--output-dir", flagDir, "--prefix", "Flag_")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(flagDir, "IC86.2012", "Flag_120156.npy"))
}

func TestBuildThresholdFlag(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	f.report(t, 0, report0)

	out, err := execute(t, nil, "build", "--path", f.runDir, "--data-root", f.root, "--dry-run", "--threshold", "10s", "-o", "json")
	require.NoError(t, err)

	var summary output.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, 1, summary.Merged)
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	f.report(t, 0, report0)
	outDir := t.TempDir()

	out, err := execute(t, nil, "build", "--path", f.runDir, "--data-root", f.root, "--output-dir", outDir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Merged gaps:")
	assert.NoFileExists(t, filepath.Join(outDir, "IC86.2012", "NuSources_GRL_120156.npy"))
}

func TestBuildRequiresOutputDir(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	t.Setenv("GRLCTL_OUTPUT_DIR", "")

	_, err := execute(t, nil, "build", "--path", f.runDir, "--data-root", f.root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output dir is required")
}

func TestBuildUnrecoverableSubrunWritesNothing(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	f.report(t, 0, report0)
	f.eventFile(t, 1, 0, 0)
	outDir := t.TempDir()

	_, err := execute(t, nil, "build", "--path", f.runDir, "--data-root", f.root, "--output-dir", outDir)
	var unrecoverable *reconcile.UnrecoverableSubrunError
	require.ErrorAs(t, err, &unrecoverable)
	assert.Equal(t, 1, unrecoverable.Subrun)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildInputErrors(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	other := filepath.Join(f.runDir, "Level2pass2_IC86.2012_data_Run00120157_Subrun00000000.i3.gz")
	require.NoError(t, os.WriteFile(other, nil, 0o644))
	outDir := t.TempDir()

	_, err := execute(t, nil, "build", "--path", f.runDir, "--data-root", f.root, "--output-dir", outDir)
	var ambiguous *runfiles.AmbiguousRunError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, []int{120156, 120157}, ambiguous.Runs)

	_, err = execute(t, nil, "build", "--path", filepath.Join(f.root, "nothing", "level2", "*.i3*"), "--output-dir", outDir)
	var pathErr *runfiles.PathResolutionError
	require.ErrorAs(t, err, &pathErr)

	_, err = execute(t, nil, "build", "--path", t.TempDir(), "--output-dir", outDir)
	require.True(t, errors.Is(err, runfiles.ErrNotLevel2))
}

func TestBuildRunFilter(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	f.report(t, 0, report0)
	other := filepath.Join(f.runDir, "Level2pass2_IC86.2012_data_Run00120157_Subrun00000000.i3.gz")
	require.NoError(t, os.WriteFile(other, nil, 0o644))

	_, err := execute(t, nil, "build", "--path", f.runDir, "--data-root", f.root, "--run", "120156", "--dry-run")
	require.NoError(t, err)
}

func TestBuildWritesMetricsTextfile(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	f.report(t, 0, report0)
	metricsFile := filepath.Join(t.TempDir(), "grl.prom")

	_, err := execute(t, nil, "build", "--path", f.runDir, "--data-root", f.root, "--output-dir", t.TempDir(), "--metrics-textfile", metricsFile)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `grl_intervals_written_total{season="IC86.2012"}`)
	assert.Contains(t, string(data), "grl_build_last_success_timestamp_seconds")
}

func TestBuildWithTracing(t *testing.T) {
	f := newRunFixture(t)
	f.eventFile(t, 0, 100, 300)
	f.report(t, 0, report0)

	_, err := execute(t, nil, "build", "--path", f.runDir, "--data-root", f.root, "--dry-run", "--trace-exporter", "none")
	require.NoError(t, err)

	_, err = execute(t, nil, "build", "--path", f.runDir, "--data-root", f.root, "--dry-run", "--trace-exporter", "zipkin")
	require.Error(t, err)
}
