// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package gapsource locates the gap reports of a run. Reports are shipped
// either bundled in a per-run tar archive or as loose "<subrun>_gaps.txt"
// files next to the event files; archive and loose-file locations are
// configured as text/template patterns with the sprig function map.
package gapsource
