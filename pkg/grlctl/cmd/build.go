package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/telekom/nusources-grl/pkg/gapsource"
	"github.com/telekom/nusources-grl/pkg/grlctl/output"
	"github.com/telekom/nusources-grl/pkg/grltable"
	"github.com/telekom/nusources-grl/pkg/metrics"
	"github.com/telekom/nusources-grl/pkg/reconcile"
	"github.com/telekom/nusources-grl/pkg/runfiles"
	"github.com/telekom/nusources-grl/pkg/system"
	"github.com/telekom/nusources-grl/pkg/telemetry"
	"github.com/telekom/nusources-grl/pkg/version"
)

type buildOptions struct {
	path      string
	run       int
	outputDir string
	prefix    string
	dataRoot  string
	threshold time.Duration
	noLevel2  bool
	dryRun    bool
	textfile  string
	pushURL   string

	traceExporter string
	traceEndpoint string
}

func NewBuildCommand() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the good run list of one run",
		Long: `Build reads the gap reports of every subrun of one run, falling back on
the subrun's event file where a report is missing or broken, merges gaps
shorter than the threshold and writes <output-dir>/<season>/<prefix><run>.npy.`,
		Example: `  grlctl build --path /data/exp/IceCube/2012/filtered/level2pass2a/0701/Run00120156 --output-dir /data/user/grl
  grlctl build --path '/data/exp/IceCube/2012/filtered/level2pass2a/0701/*Run00120156*' --dry-run -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runBuild(cmd, rt, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "Run directory or glob of the run's event files")
	cmd.Flags().IntVar(&opts.run, "run", 0, "Only use files of this run number")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory receiving <season>/<prefix><run>.npy")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "Output file name prefix")
	cmd.Flags().StringVar(&opts.dataRoot, "data-root", "", "Root of the data warehouse used to locate gap reports")
	cmd.Flags().DurationVar(&opts.threshold, "threshold", 0, "Gaps shorter than this are merged away")
	cmd.Flags().BoolVar(&opts.noLevel2, "no-level2-check", false, "Accept paths that do not mention level2")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Compute the intervals without writing the table")
	cmd.Flags().StringVar(&opts.textfile, "metrics-textfile", "", "Write build metrics to this node-exporter textfile")
	cmd.Flags().StringVar(&opts.pushURL, "pushgateway", "", "Push build metrics to this Prometheus pushgateway")
	cmd.Flags().StringVar(&opts.traceExporter, "trace-exporter", "", "Trace the build: otlp, stdout or none")
	cmd.Flags().StringVar(&opts.traceEndpoint, "trace-endpoint", "", "OTLP gRPC collector endpoint")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func runBuild(cmd *cobra.Command, rt *runtimeState, opts *buildOptions) error {
	start := time.Now()
	cfg := rt.cfg
	flags := cmd.Flags()

	outputDir := stringSetting(flags, "output-dir", "GRLCTL_OUTPUT_DIR", cfg.Build.OutputDir)
	prefix := stringSetting(flags, "prefix", "GRLCTL_PREFIX", cfg.Build.Prefix)
	textfile := stringSetting(flags, "metrics-textfile", "GRLCTL_METRICS_TEXTFILE", cfg.Metrics.Textfile)
	pushURL := stringSetting(flags, "pushgateway", "GRLCTL_PUSHGATEWAY", cfg.Metrics.Pushgateway)
	patterns := cfg.ReportPatterns()
	patterns.Root = stringSetting(flags, "data-root", "GRLCTL_DATA_ROOT", patterns.Root)
	threshold, err := durationSetting(cmd, "threshold", "GRLCTL_THRESHOLD", cfg.Build.Threshold)
	if err != nil {
		return err
	}
	if outputDir == "" && !opts.dryRun {
		return errors.New("output dir is required: pass --output-dir, set GRLCTL_OUTPUT_DIR or build.output-dir")
	}

	format, err := rt.OutputFormat()
	if err != nil {
		return err
	}
	opts.traceExporter = stringSetting(flags, "trace-exporter", "GRLCTL_TRACE_EXPORTER", cfg.Tracing.Exporter)

	correlationID := uuid.NewString()
	log := rt.Log().With("correlationID", correlationID)
	log.Infow("Building good run list", "path", opts.path, "threshold", threshold)

	_, shutdown, err := telemetry.Init(cmd.Context(), telemetry.Options{
		Enabled:        opts.traceExporter != "",
		Exporter:       opts.traceExporter,
		Endpoint:       stringSetting(flags, "trace-endpoint", "GRLCTL_TRACE_ENDPOINT", cfg.Tracing.Endpoint),
		Insecure:       cfg.Tracing.Insecure,
		SamplingRate:   cfg.Tracing.SamplingRate,
		ServiceVersion: version.GetBuildInfo().Version,
		Logger:         log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(cmd.Context())); err != nil {
			log.Warnw("Failed to flush traces", "error", err)
		}
	}()
	ctx, span := telemetry.Tracer().Start(cmd.Context(), "grlctl.build",
		trace.WithAttributes(attribute.String("grl.correlation_id", correlationID), attribute.String("grl.path", opts.path)))
	defer span.End()

	var (
		season = ""
		runID  = 0
	)
	fail := func(reason string, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		metrics.RunsFailed.WithLabelValues(season, reason).Inc()
		exportMetrics(ctx, log, textfile, pushURL, cfg.Metrics.Job, runID, season)
		return err
	}

	run, err := runfiles.Discover(opts.path, runfiles.Options{
		Exclude:       cfg.Input.Exclude,
		Run:           opts.run,
		RequireLevel2: cfg.Level2Required() && !opts.noLevel2,
	})
	if err != nil {
		return fail(discoverReason(err), err)
	}
	season, runID = run.Season, run.ID
	span.SetAttributes(attribute.Int("grl.run", run.ID), attribute.String("grl.season", run.Season))
	log = log.With(system.RunFields(run.ID, run.Season)...)
	log.Infow("Resolved run", "year", run.Year, "subruns", len(run.Files))
	if len(run.Missing) > 0 {
		log.Warnw("Subruns missing from input", "count", len(run.Missing), "subruns", run.Missing)
	}
	for _, dup := range run.Duplicates {
		log.Warnw("Ignoring duplicate subrun file", "file", dup)
	}

	locator := gapsource.Locator{Log: log, Patterns: patterns}
	src, warnings, err := locator.Locate(run.Year, run.ID)
	for _, w := range warnings {
		var corrupt *gapsource.ArchiveCorruptWarning
		if errors.As(w, &corrupt) && err == nil {
			metrics.ArchiveFallbacks.WithLabelValues(run.Season).Inc()
			log.Warnw("Gap archive unreadable; using loose gap reports", "archive", corrupt.Path, "error", corrupt.Err)
		}
	}
	if err != nil {
		return fail("no_reports", err)
	}

	res, err := reconcile.NewReconciler(log, threshold).Reconcile(ctx, run, src)
	if err != nil {
		var unrecoverable *reconcile.UnrecoverableSubrunError
		if errors.As(err, &unrecoverable) {
			span.SetStatus(codes.Error, "unrecoverable_subrun")
			// Already counted by the reconciler.
			exportMetrics(ctx, log, textfile, pushURL, cfg.Metrics.Job, runID, season)
			return err
		}
		return fail("reconcile", err)
	}

	outPath := grltable.Path(outputDir, run.Season, prefix, run.ID)
	if opts.dryRun {
		log.Infow("Dry run; not writing table", "output", outPath)
	} else {
		if err := grltable.Write(outPath, res.Rows); err != nil {
			return fail("write", err)
		}
		metrics.IntervalsWritten.WithLabelValues(run.Season).Add(float64(len(res.Rows)))
		metrics.LastSuccess.SetToCurrentTime()
		log.Infow("Wrote good run list", "output", outPath, "intervals", len(res.Rows), "livetime", res.Livetime())
	}
	metrics.BuildDuration.Observe(time.Since(start).Seconds())
	exportMetrics(ctx, log, textfile, pushURL, cfg.Metrics.Job, runID, season)

	summary := summarize(correlationID, run, src, res, outPath)
	if format == output.FormatTable {
		output.WriteRunSummary(rt.Writer(), summary)
		return nil
	}
	return output.WriteObject(rt.Writer(), format, summary)
}

func summarize(correlationID string, run *runfiles.Run, src gapsource.Source, res *reconcile.Result, outPath string) output.RunSummary {
	s := output.RunSummary{
		CorrelationID: correlationID,
		Run:           run.ID,
		Season:        run.Season,
		Output:        outPath,
		Subruns:       len(res.Subruns),
		Missing:       run.Missing,
		Merged:        res.Merged,
		Livetime:      res.Livetime(),
		Rows:          res.Rows,
	}
	if src != nil && src.Origin() != "" {
		s.ReportSource = fmt.Sprintf("%s %s", src.Kind(), src.Origin())
	}
	for _, r := range res.Subruns {
		if r.Kind == reconcile.KindFallback {
			s.Fallbacks++
		}
	}
	for _, w := range res.Warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	return s
}

func discoverReason(err error) string {
	var (
		pathErr      *runfiles.PathResolutionError
		ambiguousErr *runfiles.AmbiguousRunError
	)
	switch {
	case errors.As(err, &pathErr):
		return "no_input"
	case errors.As(err, &ambiguousErr):
		return "ambiguous_run"
	case errors.Is(err, runfiles.ErrNotLevel2):
		return "not_level2"
	default:
		return "discover"
	}
}

// exportMetrics writes and pushes metrics when configured. Export failures
// are logged and never fail the build.
func exportMetrics(ctx context.Context, log *zap.SugaredLogger, textfile, pushURL, job string, run int, season string) {
	if textfile != "" {
		if err := metrics.WriteTextfile(textfile); err != nil {
			log.Warnw("Failed to write metrics textfile", "error", err)
		}
	}
	if pushURL != "" {
		if job == "" {
			job = "grlctl"
		}
		grouping := map[string]string{}
		if season != "" {
			grouping["season"] = season
		}
		if run != 0 {
			grouping["run"] = strconv.Itoa(run)
		}
		if err := metrics.Push(ctx, pushURL, job, grouping); err != nil {
			log.Warnw("Failed to push metrics", "error", err)
		}
	}
}

func durationSetting(cmd *cobra.Command, name, env string, fromConfig time.Duration) (time.Duration, error) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return cmd.Flags().GetDuration(name)
	}
	if v := os.Getenv(env); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", env, err)
		}
		return d, nil
	}
	return fromConfig, nil
}
