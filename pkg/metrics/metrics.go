package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Subrun source labels.
const (
	SourceReport        = "report"
	SourceFallback      = "fallback"
	SourceUnrecoverable = "unrecoverable"
)

var (
	// Registry holds every GRL metric. It is separate from the default
	// registry so exports don't carry Go runtime metrics.
	Registry = prometheus.NewRegistry()

	SubrunsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grl_subruns_processed_total",
		Help: "Total number of subruns processed, by where their boundaries came from",
	}, []string{"season", "source"})
	GapReportsMalformed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grl_gap_reports_malformed_total",
		Help: "Total number of gap reports that failed to parse",
	}, []string{"season"})
	ArchiveFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grl_gap_archive_fallbacks_total",
		Help: "Total number of broken gap archives replaced by loose reports",
	}, []string{"season"})
	GapsMerged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grl_gaps_merged_total",
		Help: "Total number of gaps shorter than the threshold that were merged away",
	}, []string{"season"})
	GapsKept = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grl_gaps_kept_total",
		Help: "Total number of gaps that split a run",
	}, []string{"season"})
	IntervalsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grl_intervals_written_total",
		Help: "Total number of good intervals written",
	}, []string{"season"})
	RunsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grl_runs_failed_total",
		Help: "Total number of runs whose GRL could not be built",
	}, []string{"season", "reason"})
	RunLivetime = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "grl_run_livetime_seconds",
		Help: "Summed livetime of the good intervals of the last built run",
	}, []string{"season", "run"})
	LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grl_build_last_success_timestamp_seconds",
		Help: "Unix time of the last successful build",
	})
	BuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grl_build_duration_seconds",
		Help:    "Wall time of a GRL build",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

func init() {
	Registry.MustRegister(SubrunsProcessed)
	Registry.MustRegister(GapReportsMalformed)
	Registry.MustRegister(ArchiveFallbacks)
	Registry.MustRegister(GapsMerged)
	Registry.MustRegister(GapsKept)
	Registry.MustRegister(IntervalsWritten)
	Registry.MustRegister(RunsFailed)
	Registry.MustRegister(RunLivetime)
	Registry.MustRegister(LastSuccess)
	Registry.MustRegister(BuildDuration)
}

// WriteTextfile writes all metrics in the text exposition format for the
// node-exporter textfile collector. The write is atomic.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Push sends all metrics to a pushgateway under job, replacing the previous
// push with the same grouping.
func Push(ctx context.Context, url, job string, grouping map[string]string) error {
	p := push.New(url, job).Gatherer(Registry)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
