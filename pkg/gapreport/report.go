// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package gapreport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/telekom/nusources-grl/pkg/daqtime"
)

const (
	prefixRun      = "Run:"
	prefixFirst    = "First Event of File:"
	prefixGap      = "Gap Detected:"
	prefixLast     = "Last Event of File:"
	prefixLivetime = "File Livetime:"
)

// Column positions in a whitespace-split "Gap Detected" line.
const (
	gapColDuration    = 2
	gapColEventBefore = 3
	gapColTicksBefore = 4
	gapColEventAfter  = 5
	gapColTicksAfter  = 6
	gapColumns        = 7
)

// ErrMalformed is wrapped by every parse and validation failure.
var ErrMalformed = errors.New("malformed gap report")

// Event identifies one event by id and DAQ time.
type Event struct {
	ID   uint64       `json:"id"`
	Time daqtime.Time `json:"time"`
}

// Gap is one "Gap Detected" entry. Before is the last event preceding the
// gap, After the first event following it.
type Gap struct {
	Seconds float64 `json:"seconds"`
	Before  Event   `json:"before"`
	After   Event   `json:"after"`
}

// Report is a validated gap report for one subrun file.
type Report struct {
	Run         uint32  `json:"run"`
	First       Event   `json:"first"`
	Gaps        []Gap   `json:"gaps,omitempty"`
	Last        Event   `json:"last"`
	Livetime    float64 `json:"livetime,omitempty"`
	HasLivetime bool    `json:"-"`
}

// Parse reads and validates a gap report.
func Parse(r io.Reader) (*Report, error) {
	var (
		rep       Report
		haveFirst bool
		haveLast  bool
		lineNo    int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		var err error
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, prefixRun):
			err = rep.parseRun(line)
		case strings.HasPrefix(line, prefixFirst):
			rep.First, err = parseEventLine(line)
			haveFirst = err == nil
		case strings.HasPrefix(line, prefixGap):
			if !haveFirst {
				err = errors.New("gap before first event line")
				break
			}
			var gap Gap
			gap, err = parseGapLine(line, rep.First.Time)
			rep.Gaps = append(rep.Gaps, gap)
		case strings.HasPrefix(line, prefixLast):
			rep.Last, err = parseEventLine(line)
			haveLast = err == nil
		case strings.HasPrefix(line, prefixLivetime):
			err = rep.parseLivetime(line)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read gap report: %w", err)
	}

	if !haveFirst {
		return nil, fmt.Errorf("%w: missing %q line", ErrMalformed, prefixFirst)
	}
	if !haveLast {
		return nil, fmt.Errorf("%w: missing %q line", ErrMalformed, prefixLast)
	}
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	return &rep, nil
}

// Validate checks that the report's timestamps are in range and ordered
// first, gaps, last.
func (r *Report) Validate() error {
	prev := r.First.Time.MJD()
	check := func(what string, t daqtime.Time) error {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformed, what, err)
		}
		cur := t.MJD()
		if cur < prev {
			return fmt.Errorf("%w: %s at %s precedes previous entry", ErrMalformed, what, t)
		}
		prev = cur
		return nil
	}

	if err := check("first event", r.First.Time); err != nil {
		return err
	}
	for i, g := range r.Gaps {
		if err := check(fmt.Sprintf("gap %d start", i+1), g.Before.Time); err != nil {
			return err
		}
		if err := check(fmt.Sprintf("gap %d end", i+1), g.After.Time); err != nil {
			return err
		}
	}
	return check("last event", r.Last.Time)
}

// Bounds returns the start and end MJD of every gap-free stretch in the
// file: the first event opens the first stretch, each gap closes one at its
// Before event and opens the next at its After event, and the last event
// closes the final stretch. len(starts) == len(ends) == len(r.Gaps)+1.
func (r *Report) Bounds() (starts, ends []float64) {
	starts = make([]float64, 0, len(r.Gaps)+1)
	ends = make([]float64, 0, len(r.Gaps)+1)
	starts = append(starts, r.First.Time.MJD())
	for _, g := range r.Gaps {
		ends = append(ends, g.Before.Time.MJD())
		starts = append(starts, g.After.Time.MJD())
	}
	ends = append(ends, r.Last.Time.MJD())
	return starts, ends
}

// WriteTo renders the report in the layout Parse reads.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", prefixRun, r.Run)
	fmt.Fprintf(&b, "%s %d %d %d\n", prefixFirst, r.First.ID, r.First.Time.Year, r.First.Time.Ticks)
	for _, g := range r.Gaps {
		fmt.Fprintf(&b, "%s %.2f %d %d %d %d\n", prefixGap, g.Seconds, g.Before.ID, g.Before.Time.Ticks, g.After.ID, g.After.Time.Ticks)
	}
	fmt.Fprintf(&b, "%s %d %d %d\n", prefixLast, r.Last.ID, r.Last.Time.Year, r.Last.Time.Ticks)
	if r.HasLivetime {
		fmt.Fprintf(&b, "%s %.2f\n", prefixLivetime, r.Livetime)
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func (r *Report) parseRun(line string) error {
	fields := strings.Fields(strings.TrimPrefix(line, prefixRun))
	if len(fields) != 1 {
		return fmt.Errorf("expected one value after %q", prefixRun)
	}
	run, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid run number %q", fields[0])
	}
	r.Run = uint32(run)
	return nil
}

func (r *Report) parseLivetime(line string) error {
	fields := strings.Fields(strings.TrimPrefix(line, prefixLivetime))
	if len(fields) != 1 {
		return fmt.Errorf("expected one value after %q", prefixLivetime)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("invalid livetime %q", fields[0])
	}
	r.Livetime = v
	r.HasLivetime = true
	return nil
}

// parseEventLine reads "<prefix> <event> <year> <ticks>".
func parseEventLine(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Event{}, errors.New("event line too short")
	}
	fields = fields[len(fields)-3:]
	id, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("invalid event id %q", fields[0])
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil {
		return Event{}, fmt.Errorf("invalid year %q", fields[1])
	}
	ticks, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("invalid ticks %q", fields[2])
	}
	return Event{ID: id, Time: daqtime.New(year, ticks)}, nil
}

// parseGapLine reads a "Gap Detected" line. Gap lines carry no year, so the
// first event's year is used, rolled over when the ticks wrap past New Year.
func parseGapLine(line string, first daqtime.Time) (Gap, error) {
	fields := strings.Fields(line)
	if len(fields) < gapColumns {
		return Gap{}, fmt.Errorf("gap line has %d columns, want %d", len(fields), gapColumns)
	}
	secs, err := strconv.ParseFloat(fields[gapColDuration], 64)
	if err != nil {
		return Gap{}, fmt.Errorf("invalid gap length %q", fields[gapColDuration])
	}
	before, err := gapEvent(fields[gapColEventBefore], fields[gapColTicksBefore], first)
	if err != nil {
		return Gap{}, err
	}
	after, err := gapEvent(fields[gapColEventAfter], fields[gapColTicksAfter], first)
	if err != nil {
		return Gap{}, err
	}
	return Gap{Seconds: secs, Before: before, After: after}, nil
}

func gapEvent(idField, ticksField string, first daqtime.Time) (Event, error) {
	id, err := strconv.ParseUint(idField, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("invalid event id %q", idField)
	}
	ticks, err := strconv.ParseUint(ticksField, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("invalid ticks %q", ticksField)
	}
	year := first.Year
	if ticks < first.Ticks {
		year++
	}
	return Event{ID: id, Time: daqtime.New(year, ticks)}, nil
}
