// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package reconcile turns the gap reports of a run's subruns into good run
// list intervals. Each subrun is extracted on its own into a tagged result;
// the results are concatenated in subrun order and adjacent stretches closer
// than the merge threshold are stitched together.
package reconcile
