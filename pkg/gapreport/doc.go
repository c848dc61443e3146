// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package gapreport parses the per-subrun "_gaps.txt" reports written by the
// data processing. A report looks like:
//
//	Run: 115985
//	First Event of File: 23007693 2010 131181339339644591
//	Gap Detected: 1.10 23179753 131182116942247695 23182031 131182127922598317
//	Last Event of File: 23182045 2010 131182128415663331
//	File Livetime: 77.81
//
// A "Gap Detected" line carries the gap length in seconds followed by the
// event id and DAQ ticks of the last event before the gap and of the first
// event after it.
package gapreport
