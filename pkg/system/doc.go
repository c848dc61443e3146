// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package system holds process-wide plumbing shared by the grlctl commands,
// currently the zap logger setup.
package system
