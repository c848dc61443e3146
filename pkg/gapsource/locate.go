// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package gapsource

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"go.uber.org/zap"
)

// Default locations of gap reports below the data root. Runs before 2018
// were reprocessed as level2pass2.
const (
	DefaultArchivePattern       = `{{ .Root }}/{{ .Year }}/filtered/{{ ternary "level2pass2" "level2" (lt .Year 2018) }}/*/Run{{ printf "%08d" .Run }}_GapsTxt.tar`
	DefaultNestedArchivePattern = `{{ .Root }}/{{ .Year }}/filtered/{{ ternary "level2pass2" "level2" (lt .Year 2018) }}/*/Run{{ printf "%08d" .Run }}/Run{{ printf "%08d" .Run }}_GapsTxt.tar`
	DefaultLoosePattern         = `{{ .Root }}/{{ .Year }}/filtered/{{ ternary "level2pass2" "level2" (lt .Year 2018) }}/*/Run{{ printf "%08d" .Run }}/*_gaps.txt`
)

// ErrNoReports is returned when the archive is unusable and no loose
// reports exist to fall back on.
var ErrNoReports = errors.New("no usable gap reports")

// ArchiveCorruptWarning records an archive that could not be read. It is
// recoverable when loose reports exist.
type ArchiveCorruptWarning struct {
	Path string
	Err  error
}

func (w *ArchiveCorruptWarning) Error() string {
	return fmt.Sprintf("gap archive %s is broken: %v", w.Path, w.Err)
}

func (w *ArchiveCorruptWarning) Unwrap() error { return w.Err }

// Patterns are the templates used to find reports. Templates see .Root,
// .Year and .Run.
type Patterns struct {
	Root     string
	Archives []string
	Loose    string
}

// DefaultPatterns returns the data-warehouse layout rooted at root.
func DefaultPatterns(root string) Patterns {
	return Patterns{
		Root:     root,
		Archives: []string{DefaultArchivePattern, DefaultNestedArchivePattern},
		Loose:    DefaultLoosePattern,
	}
}

type templateData struct {
	Root string
	Year int
	Run  int
}

// Render expands one pattern template.
func Render(pattern string, root string, year, run int) (string, error) {
	tmpl, err := template.New("pattern").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, templateData{Root: strings.TrimSuffix(root, "/"), Year: year, Run: run}); err != nil {
		return "", fmt.Errorf("failed to render pattern %q: %w", pattern, err)
	}
	return b.String(), nil
}

// Locator finds the report source of a run.
type Locator struct {
	Log      *zap.SugaredLogger
	Patterns Patterns
}

// Locate resolves the report source for a run. An archive is preferred; a
// corrupt archive falls back to loose reports and is recorded in warnings.
// When nothing is found an empty loose source is returned so every subrun
// takes the event-file fallback.
func (l Locator) Locate(year, run int) (src Source, warnings []error, err error) {
	log := l.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.With("run", run, "year", year)

	var archives []string
	for _, p := range l.Patterns.Archives {
		rendered, err := Render(p, l.Patterns.Root, year, run)
		if err != nil {
			return nil, nil, err
		}
		matches, err := filepath.Glob(rendered)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid archive pattern %q: %w", rendered, err)
		}
		archives = append(archives, matches...)
	}

	loosePattern, err := Render(l.Patterns.Loose, l.Patterns.Root, year, run)
	if err != nil {
		return nil, nil, err
	}
	loose, err := filepath.Glob(loosePattern)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid loose pattern %q: %w", loosePattern, err)
	}
	looseSrc := NewLooseSource(loosePattern, loose)

	if len(archives) == 0 {
		if len(loose) == 0 {
			log.Warnw("No gap reports found; every subrun will use its event file", "archivePatterns", l.Patterns.Archives, "loosePattern", loosePattern)
		} else {
			log.Debugw("Using loose gap reports", "pattern", loosePattern, "count", len(loose))
		}
		return looseSrc, nil, nil
	}
	if len(archives) > 1 {
		log.Debugw("Multiple gap archives found; using the first", "archives", archives)
	}

	archive, err := OpenArchive(archives[0])
	if err == nil {
		log.Debugw("Using gap archive", "archive", archives[0], "entries", len(archive.Names()))
		return archive, nil, nil
	}

	warn := &ArchiveCorruptWarning{Path: archives[0], Err: err}
	if len(loose) == 0 {
		return nil, []error{warn}, fmt.Errorf("%w for run %d: %w", ErrNoReports, run, warn)
	}
	log.Warnw("Gap archive is broken; falling back on loose gap reports", "archive", archives[0], "error", err, "loose", len(loose))
	return looseSrc, []error{warn}, nil
}
