// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package eventfile reads and writes raw event files as a stream of frames.
// Each frame is tagged with a stop type and carries named binary payloads;
// the one this module cares about is the event header, which holds the start
// and end DAQ time of an event. Files may be plain, gzip, bzip2 or zstd
// compressed, selected by file extension.
package eventfile
