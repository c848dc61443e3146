// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package dag enumerates run directories below the season roots and writes
// an HTCondor DAG with one job per run, each job building that run's GRL.
package dag
