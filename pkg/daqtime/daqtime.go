// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package daqtime

import (
	"fmt"
	"math"
	"time"
)

const (
	// TicksPerSecond is the DAQ clock resolution (0.1 ns).
	TicksPerSecond uint64 = 10_000_000_000
	// SecondsPerDay is the length of a civil day without leap seconds.
	SecondsPerDay = 86400
	// UnixEpochMJD is the Modified Julian Day of 1970-01-01.
	UnixEpochMJD = 40587
)

// leapSeconds lists, per year, the offset in seconds from the start of the
// year at which a leap second was inserted. DAQ ticks count through leap
// seconds, MJD does not.
var leapSeconds = map[int][]uint64{
	2012: {182 * SecondsPerDay},
	2015: {181 * SecondsPerDay},
	2016: {366 * SecondsPerDay},
}

// Time is a DAQ timestamp.
type Time struct {
	Year  int    `json:"year"`
	Ticks uint64 `json:"ticks"`
}

// New returns a Time for the given year and tick count.
func New(year int, ticks uint64) Time {
	return Time{Year: year, Ticks: ticks}
}

// Validate checks that the tick count fits inside the year.
func (t Time) Validate() error {
	if t.Year < 1970 || t.Year > 9999 {
		return fmt.Errorf("year %d out of range", t.Year)
	}
	limit := uint64(daysInYear(t.Year)*SecondsPerDay+len(leapSeconds[t.Year])) * TicksPerSecond
	if t.Ticks >= limit {
		return fmt.Errorf("ticks %d exceed length of year %d", t.Ticks, t.Year)
	}
	return nil
}

// MJD returns the Modified Julian Day of t, with the fractional part holding
// the time of day. A tick count that falls inside a leap second is pinned to
// the end of that second's day.
func (t Time) MJD() float64 {
	whole := t.Ticks / TicksPerSecond
	frac := t.Ticks % TicksPerSecond

	for _, at := range leapSeconds[t.Year] {
		switch {
		case whole > at:
			whole--
		case whole == at:
			frac = 0
		}
	}

	days := whole / SecondsPerDay
	secOfDay := float64(whole%SecondsPerDay) + float64(frac)/float64(TicksPerSecond)
	return float64(yearStartMJD(t.Year)+int64(days)) + secOfDay/SecondsPerDay
}

// UTC returns the wall-clock time for t.
func (t Time) UTC() time.Time {
	return MJDToTime(t.MJD())
}

func (t Time) String() string {
	return fmt.Sprintf("%d/%d", t.Year, t.Ticks)
}

// MJDToTime converts a Modified Julian Day value to UTC, rounded to the
// microsecond which is the precision a float64 MJD carries.
func MJDToTime(mjd float64) time.Time {
	days := math.Floor(mjd)
	sec := (mjd - days) * SecondsPerDay
	base := time.Unix((int64(days)-UnixEpochMJD)*SecondsPerDay, 0).UTC()
	return base.Add(time.Duration(math.Round(sec*1e6)) * time.Microsecond)
}

// DaysToDuration converts a difference of two MJD values into a duration.
func DaysToDuration(days float64) time.Duration {
	return time.Duration(math.Round(days * SecondsPerDay * float64(time.Second)))
}

// DurationToDays is the inverse of DaysToDuration.
func DurationToDays(d time.Duration) float64 {
	return d.Seconds() / SecondsPerDay
}

func yearStartMJD(year int) int64 {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()/SecondsPerDay + UnixEpochMJD
}

func daysInYear(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}
