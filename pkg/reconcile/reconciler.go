// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/telekom/nusources-grl/pkg/daqtime"
	"github.com/telekom/nusources-grl/pkg/gapreport"
	"github.com/telekom/nusources-grl/pkg/gapsource"
	"github.com/telekom/nusources-grl/pkg/grltable"
	"github.com/telekom/nusources-grl/pkg/metrics"
	"github.com/telekom/nusources-grl/pkg/runfiles"
	"github.com/telekom/nusources-grl/pkg/telemetry"
)

// Reconciler computes the good intervals of a run.
type Reconciler struct {
	Log *zap.SugaredLogger
	// Threshold is the shortest gap that splits a run; zero means
	// DefaultThreshold.
	Threshold time.Duration
}

// NewReconciler returns a Reconciler using the given merge threshold.
func NewReconciler(log *zap.SugaredLogger, threshold time.Duration) *Reconciler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Reconciler{Log: log, Threshold: threshold}
}

// Result is the outcome of reconciling one run.
type Result struct {
	Run        int
	Season     string
	SourceKind gapsource.Kind
	Rows       []grltable.Row
	Subruns    []SubrunResult
	// Warnings holds every recoverable problem met along the way.
	Warnings []error
	// Merged counts boundaries dropped as shorter than the threshold.
	Merged int
}

// Livetime sums the livetime of all rows.
func (r *Result) Livetime() time.Duration {
	var days float64
	for _, row := range r.Rows {
		days += row.Livetime
	}
	return daqtime.DaysToDuration(days)
}

// Reconcile extracts every subrun of run in ascending order, aggregates the
// boundaries and merges short gaps. Any unrecoverable subrun fails the run.
func (rc *Reconciler) Reconcile(ctx context.Context, run *runfiles.Run, reports gapsource.Source) (_ *Result, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "reconcile.run")
	span.SetAttributes(attribute.Int("grl.run", run.ID), attribute.String("grl.season", run.Season))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	threshold := rc.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	log := rc.Log.With("run", run.ID, "season", run.Season)
	if len(run.Files) == 0 {
		return nil, fmt.Errorf("run %d has no subruns", run.ID)
	}

	res := &Result{Run: run.ID, Season: run.Season}
	if reports != nil {
		res.SourceKind = reports.Kind()
	}

	for _, sub := range run.Subruns() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		eventFile, _ := run.FileFor(sub)
		subCtx, subSpan := telemetry.Tracer().Start(ctx, "reconcile.subrun")
		r := ExtractSubrun(subCtx, SubrunInput{
			Run:       run.ID,
			Subrun:    sub,
			Reports:   reports,
			EventFile: eventFile,
		})
		subSpan.SetAttributes(
			attribute.Int("grl.subrun", sub),
			attribute.String("grl.source_kind", string(r.Kind)),
			attribute.String("grl.source", r.Source),
		)
		if r.Kind == KindUnrecoverable {
			subSpan.SetStatus(codes.Error, r.Err.Error())
		}
		subSpan.End()
		rc.record(log, run.Season, r)
		if r.Warning != nil && r.Kind == KindFallback {
			res.Warnings = append(res.Warnings, r.Warning)
		}
		res.Subruns = append(res.Subruns, r)
		if r.Kind == KindUnrecoverable {
			metrics.RunsFailed.WithLabelValues(run.Season, "unrecoverable_subrun").Inc()
			return nil, r.Err
		}
	}

	starts, ends, err := Aggregate(res.Subruns)
	if err != nil {
		return nil, err
	}
	intervals, merged, err := Merge(starts, ends, threshold)
	if err != nil {
		return nil, err
	}
	res.Merged = merged
	span.SetAttributes(attribute.Int("grl.intervals", len(intervals)), attribute.Int("grl.merged", merged))
	for _, iv := range intervals {
		res.Rows = append(res.Rows, grltable.NewRow(run.ID, iv.Start, iv.Stop))
	}

	metrics.GapsMerged.WithLabelValues(run.Season).Add(float64(merged))
	metrics.GapsKept.WithLabelValues(run.Season).Add(float64(len(intervals) - 1))
	if len(intervals) > 1 {
		log.Infow("Found gaps in run", "pieces", len(intervals), "merged", merged)
	}
	metrics.RunLivetime.WithLabelValues(run.Season, strconv.Itoa(run.ID)).Set(res.Livetime().Seconds())
	return res, nil
}

func (rc *Reconciler) record(log *zap.SugaredLogger, season string, r SubrunResult) {
	log = log.With("subrun", r.Subrun)
	switch r.Kind {
	case KindReport:
		metrics.SubrunsProcessed.WithLabelValues(season, metrics.SourceReport).Inc()
		log.Debugw("Read gap report", "report", r.Source, "gaps", r.Gaps())
	case KindFallback:
		metrics.SubrunsProcessed.WithLabelValues(season, metrics.SourceFallback).Inc()
		if errors.Is(r.Warning, gapreport.ErrMalformed) {
			metrics.GapReportsMalformed.WithLabelValues(season).Inc()
		}
		log.Warnw("Gap report unusable; falling back on event file", "eventFile", r.Source, "reason", r.Warning.Error())
	case KindUnrecoverable:
		metrics.SubrunsProcessed.WithLabelValues(season, metrics.SourceUnrecoverable).Inc()
		log.Errorw("Subrun has neither gap report nor event header", "error", r.Err)
	}
}
