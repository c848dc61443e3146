// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package runfiles

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRunDir(t *testing.T, year string, names ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), year, "filtered", "level2", "0701", "Run00120156")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
	return dir
}

func TestDiscoverDirectory(t *testing.T) {
	dir := makeRunDir(t, "2012",
		"Level2_IC86.2012_data_Run00120156_0701_GCD.i3.gz",
		"Level2_IC86.2012_data_Run00120156_Subrun00000002.i3.bz2",
		"Level2_IC86.2012_data_Run00120156_Subrun00000000.i3.bz2",
		"Level2_IC86.2012_data_Run00120156_Subrun00000003.i3.bz2",
		"README.txt",
	)

	run, err := Discover(dir, Options{Exclude: []string{"*GCD*"}, RequireLevel2: true})
	require.NoError(t, err)
	assert.Equal(t, 120156, run.ID)
	assert.Equal(t, "IC86.2012", run.Season)
	assert.Equal(t, 2012, run.Year)
	assert.Equal(t, []int{0, 2, 3}, run.Subruns())
	assert.Equal(t, []int{1}, run.Missing)

	path, ok := run.FileFor(2)
	require.True(t, ok)
	assert.Equal(t, "Level2_IC86.2012_data_Run00120156_Subrun00000002.i3.bz2", filepath.Base(path))
	_, ok = run.FileFor(1)
	assert.False(t, ok)
}

func TestDiscoverGlobWithPartNaming(t *testing.T) {
	dir := makeRunDir(t, "2010",
		"Level2pass2_IC79.2010_data_Run00120156_Part00000001.i3.zst",
		"Level2pass2_IC79.2010_data_Run00120156_Part00000000.i3.zst",
	)

	run, err := Discover(filepath.Join(dir, "*Run00120156*"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "IC79.2010", run.Season)
	assert.Equal(t, []int{0, 1}, run.Subruns())
	assert.Empty(t, run.Missing)
}

func TestDiscoverNoFiles(t *testing.T) {
	dir := makeRunDir(t, "2012")

	_, err := Discover(dir, Options{})
	var pathErr *PathResolutionError
	require.ErrorAs(t, err, &pathErr)
	assert.Contains(t, pathErr.Pattern, "*.i3*")
}

func TestDiscoverMoreThanOneRun(t *testing.T) {
	dir := makeRunDir(t, "2012",
		"Level2_IC86.2012_data_Run00120156_Subrun00000000.i3.bz2",
		"Level2_IC86.2012_data_Run00120157_Subrun00000000.i3.bz2",
	)

	_, err := Discover(dir, Options{})
	var ambiguous *AmbiguousRunError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, []int{120156, 120157}, ambiguous.Runs)
	assert.Contains(t, err.Error(), "Run00120156")

	run, err := Discover(dir, Options{Run: 120157})
	require.NoError(t, err)
	assert.Equal(t, 120157, run.ID)
}

func TestDiscoverRequiresLevel2(t *testing.T) {
	_, err := Discover("/data/exp/IceCube/2012/filtered/PFFilt/0701/Run00120156", Options{RequireLevel2: true})
	require.True(t, errors.Is(err, ErrNotLevel2))
}

func TestDiscoverDuplicateSubrun(t *testing.T) {
	dir := makeRunDir(t, "2019",
		"Level2_IC86.2019_data_Run00120156_Subrun00000000_00000000.i3.zst",
		"Level2_IC86.2019_data_Run00120156_Subrun00000000_00000001.i3.zst",
		"Level2_IC86.2019_data_Run00120156_Subrun00000000_00000001.i3.zst.bak",
	)

	run, err := Discover(dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, run.Subruns())
	require.Len(t, run.Duplicates, 1)
}

func TestSubrunIndex(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"Level2_IC86.2012_data_Run00120156_Subrun00000003.i3.bz2", 3, false},
		{"Level2pass2_IC79.2010_data_Run00115985_Part00000012.i3.zst", 12, false},
		{"Level2_IC86.2019_data_Run00132765_Subrun00000000_00000042.i3.zst", 42, false},
		{"Level2_IC86.2012_data_Run00120156_0701_GCD.i3.gz", 0, true},
	}
	for _, tt := range tests {
		got, err := SubrunIndex(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestDataYear(t *testing.T) {
	y, err := DataYear("/data/exp/IceCube/2015/filtered/level2pass2a/0101/Run00126000/", "IC86.2014")
	require.NoError(t, err)
	assert.Equal(t, 2015, y)

	y, err = DataYear("/scratch/copy/Run00126000", "IC86.2014")
	require.NoError(t, err)
	assert.Equal(t, 2014, y)

	_, err = DataYear("/scratch/copy", "IC86")
	require.Error(t, err)
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern, name string
		want          bool
		wantErr       bool
	}{
		{"*", "anything", true, false},
		{"*GCD*", "Level2_IC86.2012_data_Run00120156_0701_GCD.i3.gz", true, false},
		{"GCD", "Level2_IC86.2012_data_Run00120156_0701_GCD.i3.gz", true, false},
		{"GCD", "Level2_IC86.2012_data_Run00120156_Subrun00000000.i3.bz2", false, false},
		{"*.bak", "x.i3.zst.bak", true, false},
		{"[invalid", "x", false, true},
	}
	for _, tt := range tests {
		got, err := GlobMatch(tt.pattern, tt.name)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s vs %s", tt.pattern, tt.name)
	}
	assert.True(t, GlobMatchAny([]string{"[invalid", "*GCD*"}, "a_GCD.i3"))
	assert.False(t, GlobMatchAny(nil, "a_GCD.i3"))
}
