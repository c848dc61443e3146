// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package runfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	runPattern        = regexp.MustCompile(`Run(\d{8})`)
	pathYearPattern   = regexp.MustCompile(`(?:^|/)(\d{4})/filtered/`)
	seasonYearPattern = regexp.MustCompile(`\.(\d{4})$`)
	subrunPrefixes    = []string{"subrun", "part"}
)

// Options controls which files are considered.
type Options struct {
	// Exclude drops files whose base name matches any glob.
	Exclude []string
	// Run, when non-zero, keeps only files of that run.
	Run int
	// RequireLevel2 rejects paths that do not mention level2.
	RequireLevel2 bool
}

// File is one subrun's event file.
type File struct {
	Path   string
	Subrun int
}

// Run is the resolved set of event files for a single run.
type Run struct {
	ID     int
	Season string
	// Year is the data-taking year used to locate gap reports.
	Year  int
	Files []File
	// Missing lists subrun indices in [0, max] without a file.
	Missing []int
	// Duplicates lists files dropped because their subrun index was
	// already taken by an earlier file.
	Duplicates []string
}

// Subruns returns the subrun indices in ascending order.
func (r *Run) Subruns() []int {
	out := make([]int, len(r.Files))
	for i, f := range r.Files {
		out[i] = f.Subrun
	}
	return out
}

// FileFor returns the event file of a subrun.
func (r *Run) FileFor(subrun int) (string, bool) {
	i := sort.Search(len(r.Files), func(i int) bool { return r.Files[i].Subrun >= subrun })
	if i < len(r.Files) && r.Files[i].Subrun == subrun {
		return r.Files[i].Path, true
	}
	return "", false
}

// Discover resolves path, a run directory or a glob, into a single Run.
func Discover(path string, opts Options) (*Run, error) {
	if opts.RequireLevel2 && !strings.Contains(strings.ToLower(path), "level2") {
		return nil, fmt.Errorf("%w: %s", ErrNotLevel2, path)
	}

	pattern := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		pattern = filepath.Join(path, "*.i3*")
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	var files []string
	for _, m := range matches {
		base := filepath.Base(m)
		if GlobMatchAny(opts.Exclude, base) {
			continue
		}
		if !runPattern.MatchString(base) {
			continue
		}
		files = append(files, m)
	}

	runs := map[int]struct{}{}
	var kept []string
	for _, f := range files {
		id, _ := RunNumber(filepath.Base(f))
		if opts.Run != 0 && id != opts.Run {
			continue
		}
		runs[id] = struct{}{}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return nil, &PathResolutionError{Pattern: pattern}
	}
	if len(runs) > 1 {
		ids := make([]int, 0, len(runs))
		for id := range runs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		return nil, &AmbiguousRunError{Path: path, Runs: ids}
	}

	first := filepath.Base(kept[0])
	run := &Run{Season: Season(first)}
	run.ID, _ = RunNumber(first)

	seen := map[int]bool{}
	for _, f := range kept {
		sub, err := SubrunIndex(filepath.Base(f))
		if err != nil {
			return nil, err
		}
		if seen[sub] {
			run.Duplicates = append(run.Duplicates, f)
			continue
		}
		seen[sub] = true
		run.Files = append(run.Files, File{Path: f, Subrun: sub})
	}
	sort.Slice(run.Files, func(i, j int) bool { return run.Files[i].Subrun < run.Files[j].Subrun })

	maxSub := run.Files[len(run.Files)-1].Subrun
	for i := 0; i <= maxSub; i++ {
		if !seen[i] {
			run.Missing = append(run.Missing, i)
		}
	}

	run.Year, err = DataYear(path, run.Season)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RunNumber extracts the 8-digit run number following "Run".
func RunNumber(name string) (int, error) {
	m := runPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("no run number in %q", name)
	}
	return strconv.Atoi(m[1])
}

// Season returns the season label, the second underscore-separated token of
// the base name ("IC86.2012").
func Season(name string) string {
	parts := strings.Split(filepath.Base(name), "_")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// SubrunIndex extracts the file index from the last underscore-separated
// token of the base name, accepting an optional Subrun or Part prefix.
func SubrunIndex(name string) (int, error) {
	base := filepath.Base(name)
	token := base[strings.LastIndex(base, "_")+1:]
	if dot := strings.Index(token, "."); dot >= 0 {
		token = token[:dot]
	}
	lower := strings.ToLower(token)
	for _, p := range subrunPrefixes {
		if strings.HasPrefix(lower, p) {
			token = token[len(p):]
			break
		}
	}
	idx, err := strconv.Atoi(token)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("no subrun index in %q", base)
	}
	return idx, nil
}

// DataYear finds the data-taking year from the "<year>/filtered/" path
// element, falling back to the season label's year suffix.
func DataYear(path, season string) (int, error) {
	if m := pathYearPattern.FindStringSubmatch(filepath.ToSlash(path)); m != nil {
		return strconv.Atoi(m[1])
	}
	if m := seasonYearPattern.FindStringSubmatch(season); m != nil {
		return strconv.Atoi(m[1])
	}
	return 0, fmt.Errorf("cannot determine data year from path %q or season %q", path, season)
}
