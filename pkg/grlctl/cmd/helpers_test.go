package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/telekom/nusources-grl/pkg/daqtime"
	"github.com/telekom/nusources-grl/pkg/eventfile"
	"github.com/telekom/nusources-grl/pkg/system"
)

const ticksPerSecond = daqtime.TicksPerSecond

// Subrun 0 of run 120156: 100s to 300s with a 5s gap after 200s.
var report0 = fmt.Sprintf(`Run: 120156
First Event of File: 1 2012 %d
Gap Detected: 5.00 10 %d 11 %d
Last Event of File: 20 2012 %d
File Livetime: 195.00
`, 100*ticksPerSecond, 200*ticksPerSecond, 205*ticksPerSecond, 300*ticksPerSecond)

func configPathForTest(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

type runFixture struct {
	root   string
	runDir string
	repDir string
}

// newRunFixture lays out run 120156 of 2012 below a fresh data root with
// event files in level2pass2a and loose gap reports in level2pass2.
func newRunFixture(t *testing.T) *runFixture {
	t.Helper()
	root := t.TempDir()
	f := &runFixture{
		root:   root,
		runDir: filepath.Join(root, "2012", "filtered", "level2pass2a", "0701", "Run00120156"),
		repDir: filepath.Join(root, "2012", "filtered", "level2pass2", "0701", "Run00120156"),
	}
	require.NoError(t, os.MkdirAll(f.runDir, 0o755))
	require.NoError(t, os.MkdirAll(f.repDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.runDir, "Level2pass2_IC86.2012_data_Run00120156_0701_GCD.i3.gz"), nil, 0o644))
	return f
}

func (f *runFixture) eventFile(t *testing.T, subrun int, startSec, endSec float64) {
	t.Helper()
	path := filepath.Join(f.runDir, fmt.Sprintf("Level2pass2_IC86.2012_data_Run00120156_Subrun%08d.i3.gz", subrun))
	w, err := eventfile.Create(path)
	require.NoError(t, err)
	if endSec > 0 {
		require.NoError(t, w.WriteEventHeader(eventfile.EventHeader{
			Run:   120156,
			Sub:   uint32(subrun),
			Start: daqtime.New(2012, uint64(startSec*float64(ticksPerSecond))),
			End:   daqtime.New(2012, uint64(endSec*float64(ticksPerSecond))),
		}))
	}
	require.NoError(t, w.Close())
}

func (f *runFixture) report(t *testing.T, subrun int, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.repDir, fmt.Sprintf("%08d_gaps.txt", subrun)), []byte(content), 0o644))
}

func execute(t *testing.T, log *zap.SugaredLogger, args ...string) (string, error) {
	t.Helper()
	if log == nil {
		log = system.NewTestLogger(t)
	}
	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: configPathForTest(t), OutputWriter: buf, Logger: log})
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func sec(year int, s float64) float64 {
	return daqtime.New(year, uint64(s*float64(ticksPerSecond))).MJD()
}
