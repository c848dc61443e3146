// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package reconcile

import "fmt"

// MissingGapReportWarning records a subrun whose report was absent or
// unusable, so its boundaries came from the event file.
type MissingGapReportWarning struct {
	Run    int
	Subrun int
	// Cause is nil when no report exists and the parse error otherwise.
	Cause error
}

func (w *MissingGapReportWarning) Error() string {
	if w.Cause == nil {
		return fmt.Sprintf("missing gap report for run %d subrun %d", w.Run, w.Subrun)
	}
	return fmt.Sprintf("unusable gap report for run %d subrun %d: %v", w.Run, w.Subrun, w.Cause)
}

func (w *MissingGapReportWarning) Unwrap() error { return w.Cause }

// UnrecoverableSubrunError reports a subrun with neither a usable report nor
// a usable event file. It fails the whole run.
type UnrecoverableSubrunError struct {
	Run    int
	Subrun int
	Err    error
}

func (e *UnrecoverableSubrunError) Error() string {
	return fmt.Sprintf("run %d subrun %d has no gap report and no usable event file: %v", e.Run, e.Subrun, e.Err)
}

func (e *UnrecoverableSubrunError) Unwrap() error { return e.Err }
