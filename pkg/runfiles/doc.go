// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package runfiles resolves the event files of a single run from a directory
// or glob pattern and extracts run number, season, data year and subrun
// indices from the file naming convention, e.g.
//
//	/data/exp/IceCube/2012/filtered/level2/0701/Run00120156/Level2_IC86.2012_data_Run00120156_Subrun00000003.i3.bz2
//	/data/exp/IceCube/2019/filtered/level2/0612/Run00132765/Level2_IC86.2019_data_Run00132765_Subrun00000000_00000012.i3.zst
package runfiles
