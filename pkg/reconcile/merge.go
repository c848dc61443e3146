// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"
	"time"

	"github.com/telekom/nusources-grl/pkg/daqtime"
)

// DefaultThreshold is the shortest gap that splits a run.
const DefaultThreshold = time.Second

// Interval is a gap-free span in MJD.
type Interval struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
}

// Aggregate concatenates subrun boundaries in the order given. It fails on
// the first unrecoverable subrun.
func Aggregate(results []SubrunResult) (starts, ends []float64, err error) {
	for _, r := range results {
		if r.Kind == KindUnrecoverable {
			return nil, nil, r.Err
		}
		if len(r.Starts) != len(r.Ends) || len(r.Starts) == 0 {
			return nil, nil, fmt.Errorf("subrun %d has %d starts and %d ends", r.Subrun, len(r.Starts), len(r.Ends))
		}
		starts = append(starts, r.Starts...)
		ends = append(ends, r.Ends...)
	}
	return starts, ends, nil
}

// Merge drops every boundary pair whose gap, starts[i+1]-ends[i], is shorter
// than threshold and returns the remaining intervals. The first start and the
// last end are always kept. merged counts the dropped boundaries, so
// len(out) == len(starts) - merged.
func Merge(starts, ends []float64, threshold time.Duration) (out []Interval, merged int, err error) {
	if len(starts) != len(ends) {
		return nil, 0, fmt.Errorf("boundary count mismatch: %d starts, %d ends", len(starts), len(ends))
	}
	if len(starts) == 0 {
		return nil, 0, nil
	}
	minGap := daqtime.DurationToDays(threshold)

	cur := Interval{Start: starts[0]}
	for i := 0; i < len(starts)-1; i++ {
		if starts[i+1]-ends[i] < minGap {
			merged++
			continue
		}
		cur.Stop = ends[i]
		out = append(out, cur)
		cur = Interval{Start: starts[i+1]}
	}
	cur.Stop = ends[len(ends)-1]
	out = append(out, cur)
	return out, merged, nil
}
