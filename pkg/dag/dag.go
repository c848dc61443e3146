// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package dag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultJobTemplate renders the two DAG lines of one job.
const DefaultJobTemplate = `JOB {{ .Name }} {{ .SubmitFile }}
VARS {{ .Name }} cmd="{{ list .Env .Binary | compact | join " " }} build --path {{ .RunDir }} --output-dir {{ .OutputDir }}"
`

// DefaultSeasons are the data years and processing levels GRLs are built
// for. 2017 exists in both processings.
var DefaultSeasons = []struct {
	Year  int
	Level string
}{
	{2010, "level2pass2a"}, {2011, "level2pass2a"}, {2012, "level2pass2a"}, {2013, "level2pass2a"},
	{2014, "level2pass2a"}, {2015, "level2pass2a"}, {2016, "level2pass2a"}, {2017, "level2pass2a"},
	{2017, "level2"}, {2018, "level2"}, {2019, "level2"}, {2020, "level2"},
	{2021, "level2"}, {2022, "level2"}, {2023, "level2"},
}

// DefaultRoots returns the run directory globs below dataRoot.
func DefaultRoots(dataRoot string) []string {
	roots := make([]string, 0, len(DefaultSeasons))
	for _, s := range DefaultSeasons {
		roots = append(roots, filepath.Join(dataRoot, fmt.Sprint(s.Year), "filtered", s.Level, "*", "Run00??????"))
	}
	return roots
}

// Job is one DAG node.
type Job struct {
	Name       string
	RunDir     string
	SubmitFile string
	Env        string
	Binary     string
	OutputDir  string
}

// Options configures DAG generation.
type Options struct {
	Roots       []string
	OutputDir   string
	SubmitFile  string
	Env         string
	Binary      string
	JobTemplate string
	// Concurrency bounds parallel root scans; zero means one per root.
	Concurrency int
}

// Generator builds DAGs.
type Generator struct {
	Log     *zap.SugaredLogger
	Options Options
}

// Enumerate globs every root and returns the run directories, sorted within
// each root and in root order overall.
func (g *Generator) Enumerate(ctx context.Context) ([]string, error) {
	log := g.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	perRoot := make([][]string, len(g.Options.Roots))

	eg, ctx := errgroup.WithContext(ctx)
	if g.Options.Concurrency > 0 {
		eg.SetLimit(g.Options.Concurrency)
	}
	for i, root := range g.Options.Roots {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			matches, err := filepath.Glob(root)
			if err != nil {
				return fmt.Errorf("invalid root pattern %q: %w", root, err)
			}
			dirs := matches[:0]
			for _, m := range matches {
				if info, err := os.Stat(m); err == nil && info.IsDir() {
					dirs = append(dirs, m)
				}
			}
			sort.Strings(dirs)
			log.Infow("Scanned season root", "root", root, "runs", len(dirs))
			perRoot[i] = dirs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for _, dirs := range perRoot {
		out = append(out, dirs...)
	}
	return out, nil
}

// Jobs turns run directories into jobs named after the directory. Repeated
// names get a numeric suffix so node names stay unique.
func (g *Generator) Jobs(runDirs []string) []Job {
	submit := g.Options.SubmitFile
	if submit == "" {
		submit = "submit.sub"
	}
	seen := map[string]int{}
	jobs := make([]Job, 0, len(runDirs))
	for _, dir := range runDirs {
		name := filepath.Base(filepath.Clean(dir))
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		jobs = append(jobs, Job{
			Name:       name,
			RunDir:     dir,
			SubmitFile: submit,
			Env:        g.Options.Env,
			Binary:     g.Options.Binary,
			OutputDir:  g.Options.OutputDir,
		})
	}
	return jobs
}

// checkQuotable rejects values that would break the quoted VARS line.
func (j Job) checkQuotable() error {
	for _, f := range []struct{ name, value string }{
		{"run directory", j.RunDir},
		{"output dir", j.OutputDir},
		{"env", j.Env},
		{"binary", j.Binary},
	} {
		if strings.ContainsAny(f.value, "\"\n") {
			return fmt.Errorf("job %s: %s %q cannot be quoted in a DAG", j.Name, f.name, f.value)
		}
	}
	return nil
}

// Render writes the DAG for jobs.
func (g *Generator) Render(w io.Writer, jobs []Job) error {
	text := g.Options.JobTemplate
	if text == "" {
		text = DefaultJobTemplate
	}
	tmpl, err := template.New("job").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return fmt.Errorf("invalid job template: %w", err)
	}
	for _, j := range jobs {
		if err := j.checkQuotable(); err != nil {
			return err
		}
		if err := tmpl.Execute(w, j); err != nil {
			return fmt.Errorf("failed to render job %s: %w", j.Name, err)
		}
	}
	return nil
}

// Write enumerates, renders and atomically writes the DAG to path. It
// returns the jobs written.
func (g *Generator) Write(ctx context.Context, path string) ([]Job, error) {
	if g.Options.Binary == "" {
		return nil, errors.New("binary path is required")
	}
	if g.Options.OutputDir == "" {
		return nil, errors.New("output dir is required")
	}
	dirs, err := g.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	jobs := g.Jobs(dirs)
	var buf bytes.Buffer
	if err := g.Render(&buf, jobs); err != nil {
		return nil, err
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return jobs, nil
}
