// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package runfiles

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotLevel2 is returned when level2 inputs are required and the path does
// not point at them.
var ErrNotLevel2 = errors.New("path does not point at level2 files")

// PathResolutionError reports that no event files matched the input.
type PathResolutionError struct {
	Pattern string
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("no event files match %q", e.Pattern)
}

// AmbiguousRunError reports that the input spans more than one run.
type AmbiguousRunError struct {
	Path string
	Runs []int
}

func (e *AmbiguousRunError) Error() string {
	runs := make([]string, len(e.Runs))
	for i, r := range e.Runs {
		runs[i] = strconv.Itoa(r)
	}
	return fmt.Sprintf("more than one run in %s (%s); pass a pattern such as \"/path/*Run%08d*\"",
		e.Path, strings.Join(runs, ", "), e.Runs[0])
}
