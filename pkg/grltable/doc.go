// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package grltable stores good run list tables as NumPy .npy structured
// arrays with the columns run, start, stop, livetime and events, so the
// per-run files can be loaded directly with numpy.load downstream.
package grltable
