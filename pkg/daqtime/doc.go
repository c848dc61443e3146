// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package daqtime converts detector DAQ timestamps, expressed as a year plus
// 0.1 ns ticks since the start of that UTC year, into Modified Julian Day
// values that can be compared and subtracted across year boundaries.
package daqtime
