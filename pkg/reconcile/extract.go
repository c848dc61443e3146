// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/telekom/nusources-grl/pkg/eventfile"
	"github.com/telekom/nusources-grl/pkg/gapreport"
	"github.com/telekom/nusources-grl/pkg/gapsource"
)

// ErrNoEventFile is the cause of an UnrecoverableSubrunError when the subrun
// has no event file to fall back on.
var ErrNoEventFile = errors.New("no event file")

// ResultKind tags where a subrun's boundaries came from.
type ResultKind string

const (
	KindReport        ResultKind = "report"
	KindFallback      ResultKind = "fallback"
	KindUnrecoverable ResultKind = "unrecoverable"
)

// SubrunInput is everything needed to extract one subrun.
type SubrunInput struct {
	Run    int
	Subrun int
	// Reports may be nil when the run has no report source at all.
	Reports gapsource.Source
	// EventFile is empty when the subrun has no event file.
	EventFile string
}

// SubrunResult is the tagged outcome of extracting one subrun. For
// KindReport and KindFallback, Starts and Ends have equal length and
// alternate start, end, start, ... in time. For KindUnrecoverable, Err is set.
type SubrunResult struct {
	Subrun int
	Kind   ResultKind
	Starts []float64
	Ends   []float64
	// Source is the report name or event file the boundaries came from.
	Source  string
	Report  *gapreport.Report
	Warning *MissingGapReportWarning
	Err     *UnrecoverableSubrunError
}

// Gaps is the number of gaps inside the subrun.
func (r SubrunResult) Gaps() int {
	if len(r.Starts) == 0 {
		return 0
	}
	return len(r.Starts) - 1
}

// ExtractSubrun reads a subrun's boundaries from its gap report, falling back
// to the first event header of its event file when the report is missing,
// malformed or filed under another run. It has no side effects beyond
// reading files.
func ExtractSubrun(ctx context.Context, in SubrunInput) SubrunResult {
	res := SubrunResult{Subrun: in.Subrun}

	var cause error
	if in.Reports != nil {
		if name, ok := in.Reports.Lookup(in.Subrun); ok {
			rep, err := readReport(in.Reports, name)
			if err == nil && in.Run != 0 && int(rep.Run) != in.Run {
				err = fmt.Errorf("%w: %s belongs to run %d", gapreport.ErrMalformed, name, rep.Run)
			}
			if err == nil {
				res.Kind = KindReport
				res.Source = name
				res.Report = rep
				res.Starts, res.Ends = rep.Bounds()
				return res
			}
			cause = err
		}
	}
	res.Warning = &MissingGapReportWarning{Run: in.Run, Subrun: in.Subrun, Cause: cause}

	if in.EventFile == "" {
		res.Kind = KindUnrecoverable
		res.Err = &UnrecoverableSubrunError{Run: in.Run, Subrun: in.Subrun, Err: ErrNoEventFile}
		return res
	}
	hdr, err := eventfile.FirstEventHeader(ctx, in.EventFile)
	if err != nil {
		res.Kind = KindUnrecoverable
		res.Err = &UnrecoverableSubrunError{Run: in.Run, Subrun: in.Subrun, Err: err}
		return res
	}
	res.Kind = KindFallback
	res.Source = in.EventFile
	res.Starts = []float64{hdr.Start.MJD()}
	res.Ends = []float64{hdr.End.MJD()}
	return res
}

func readReport(src gapsource.Source, name string) (*gapreport.Report, error) {
	rc, err := src.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()
	return gapreport.Parse(rc)
}
