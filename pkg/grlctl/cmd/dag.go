package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/telekom/nusources-grl/pkg/dag"
	"github.com/telekom/nusources-grl/pkg/grlctl/output"
)

type dagOptions struct {
	file        string
	outputDir   string
	binary      string
	env         string
	submitFile  string
	dataRoot    string
	roots       []string
	concurrency int
}

type dagSummary struct {
	File string `json:"file" yaml:"file"`
	Jobs int    `json:"jobs" yaml:"jobs"`
}

func NewDAGCommand() *cobra.Command {
	opts := &dagOptions{}

	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Write an HTCondor DAG running build for every run directory",
		Example: `  grlctl dag --output-dir /data/user/grl --env /cvmfs/.../env-shell.sh
  grlctl dag --root '/data/exp/IceCube/2019/filtered/level2/*/Run00??????' --file 2019.dag`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			cfg := rt.cfg
			flags := cmd.Flags()

			gen := &dag.Generator{
				Log: rt.Log(),
				Options: dag.Options{
					OutputDir:   stringSetting(flags, "output-dir", "GRLCTL_OUTPUT_DIR", cfg.Build.OutputDir),
					SubmitFile:  stringSetting(flags, "submit-file", "GRLCTL_SUBMIT_FILE", cfg.DAG.SubmitFile),
					Env:         stringSetting(flags, "env", "GRLCTL_ENV", cfg.DAG.Env),
					Binary:      stringSetting(flags, "binary", "GRLCTL_BINARY", cfg.DAG.Binary),
					JobTemplate: cfg.DAG.JobTemplate,
					Concurrency: cfg.DAG.Concurrency,
				},
			}
			if flags.Changed("concurrency") {
				gen.Options.Concurrency = opts.concurrency
			}
			if gen.Options.Binary == "" {
				self, err := os.Executable()
				if err != nil {
					return fmt.Errorf("cannot determine grlctl binary, pass --binary: %w", err)
				}
				gen.Options.Binary = self
			}
			if gen.Options.OutputDir != "" {
				if abs, err := filepath.Abs(gen.Options.OutputDir); err == nil {
					gen.Options.OutputDir = abs
				}
			}
			switch {
			case len(opts.roots) > 0:
				gen.Options.Roots = opts.roots
			case flags.Changed("data-root") || os.Getenv("GRLCTL_DATA_ROOT") != "":
				gen.Options.Roots = dag.DefaultRoots(stringSetting(flags, "data-root", "GRLCTL_DATA_ROOT", cfg.Input.DataRoot))
			default:
				gen.Options.Roots = cfg.DAGRoots()
			}

			path := stringSetting(flags, "file", "GRLCTL_DAG_FILE", cfg.DAG.File)
			jobs, err := gen.Write(cmd.Context(), path)
			if err != nil {
				return err
			}
			rt.Log().Infow("Wrote DAG", "file", path, "jobs", len(jobs))

			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				_, _ = fmt.Fprintf(rt.Writer(), "Wrote %d jobs to %s\n", len(jobs), path)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, dagSummary{File: path, Jobs: len(jobs)})
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "DAG file to write")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Output directory passed to every build job")
	cmd.Flags().StringVar(&opts.binary, "binary", "", "grlctl binary the jobs run (default: this executable)")
	cmd.Flags().StringVar(&opts.env, "env", "", "Environment wrapper prefixed to every job command")
	cmd.Flags().StringVar(&opts.submitFile, "submit-file", "", "HTCondor submit file referenced by every job")
	cmd.Flags().StringVar(&opts.dataRoot, "data-root", "", "Data warehouse root the default seasons live under")
	cmd.Flags().StringArrayVar(&opts.roots, "root", nil, "Run directory glob; repeatable, replaces the default seasons")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Number of roots scanned in parallel")
	return cmd
}
