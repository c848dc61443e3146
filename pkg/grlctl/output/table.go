/*
SPDX-FileCopyrightText: 2025 Deutsche Telekom AG

SPDX-License-Identifier: Apache-2.0
*/

package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/telekom/nusources-grl/pkg/daqtime"
	"github.com/telekom/nusources-grl/pkg/gapreport"
	"github.com/telekom/nusources-grl/pkg/grltable"
)

// RunSummary describes a finished build.
type RunSummary struct {
	CorrelationID string         `json:"correlationID" yaml:"correlationID"`
	Run           int            `json:"run" yaml:"run"`
	Season        string         `json:"season" yaml:"season"`
	Output        string         `json:"output" yaml:"output"`
	ReportSource  string         `json:"reportSource,omitempty" yaml:"reportSource,omitempty"`
	Subruns       int            `json:"subruns" yaml:"subruns"`
	Fallbacks     int            `json:"fallbacks" yaml:"fallbacks"`
	Missing       []int          `json:"missingSubruns,omitempty" yaml:"missingSubruns,omitempty"`
	Merged        int            `json:"mergedGaps" yaml:"mergedGaps"`
	Livetime      time.Duration  `json:"livetime" yaml:"livetime"`
	Warnings      []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Rows          []grltable.Row `json:"rows" yaml:"rows"`
}

func WriteRowsTable(w io.Writer, rows []grltable.Row) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTART (MJD)\tSTOP (MJD)\tSTART (UTC)\tSTOP (UTC)\tLIVETIME\tEVENTS")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%d\t%.8f\t%.8f\t%s\t%s\t%s\t%s\n",
			r.Run, r.Start, r.Stop,
			formatMJD(r.Start), formatMJD(r.Stop),
			formatDays(r.Livetime), formatEvents(r.Events))
	}
	_ = tw.Flush()
}

func WriteRunSummary(w io.Writer, s RunSummary) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Run:\t%d\n", s.Run)
	_, _ = fmt.Fprintf(tw, "Season:\t%s\n", s.Season)
	_, _ = fmt.Fprintf(tw, "Output:\t%s\n", s.Output)
	if s.ReportSource != "" {
		_, _ = fmt.Fprintf(tw, "Gap reports:\t%s\n", s.ReportSource)
	}
	_, _ = fmt.Fprintf(tw, "Subruns:\t%d (%d from event files)\n", s.Subruns, s.Fallbacks)
	if len(s.Missing) > 0 {
		_, _ = fmt.Fprintf(tw, "Missing subruns:\t%s\n", joinInts(s.Missing))
	}
	_, _ = fmt.Fprintf(tw, "Merged gaps:\t%d\n", s.Merged)
	_, _ = fmt.Fprintf(tw, "Livetime:\t%s\n", s.Livetime.Round(time.Millisecond))
	_, _ = fmt.Fprintf(tw, "Correlation ID:\t%s\n", s.CorrelationID)
	_ = tw.Flush()
	if len(s.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range s.Warnings {
			_, _ = fmt.Fprintf(w, "  %s\n", warn)
		}
	}
	_, _ = fmt.Fprintln(w)
	WriteRowsTable(w, s.Rows)
}

// WriteReportTable prints the events of a gap report in time order.
func WriteReportTable(w io.Writer, r *gapreport.Report) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tEVENT\tYEAR\tTICKS\tUTC\tDURATION")
	writeEvent := func(kind string, e gapreport.Event, dur string) {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n", kind, e.ID, e.Time.Year, e.Time.Ticks, formatUTC(e.Time.UTC()), dur)
	}
	writeEvent("first", r.First, "-")
	for _, g := range r.Gaps {
		writeEvent("gap-before", g.Before, fmt.Sprintf("%.2fs", g.Seconds))
		writeEvent("gap-after", g.After, "-")
	}
	writeEvent("last", r.Last, "-")
	_ = tw.Flush()
	if r.HasLivetime {
		_, _ = fmt.Fprintf(w, "\nRun %d, livetime %.2fs, %d gap(s)\n", r.Run, r.Livetime, len(r.Gaps))
	} else {
		_, _ = fmt.Fprintf(w, "\nRun %d, %d gap(s)\n", r.Run, len(r.Gaps))
	}
}

func formatMJD(mjd float64) string {
	return formatUTC(daqtime.MJDToTime(mjd))
}

func formatUTC(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func formatDays(days float64) string {
	return daqtime.DaysToDuration(days).Round(time.Millisecond).String()
}

func formatEvents(n int32) string {
	if n == grltable.EventsUnset {
		return "-"
	}
	return fmt.Sprint(n)
}

func joinInts(xs []int) string {
	s := make([]string, len(xs))
	for i, x := range xs {
		s[i] = fmt.Sprint(x)
	}
	return strings.Join(s, ",")
}
