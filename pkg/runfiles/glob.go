// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package runfiles

import (
	"path"
	"strings"
)

// GlobMatch checks if a file name matches a glob pattern.
// Patterns support path.Match wildcards:
//   - "*" matches any sequence of characters
//   - "?" matches any single character
//   - "[...]" matches character classes
//
// A pattern without wildcards matches when the name contains it, so "GCD"
// and "*GCD*" are equivalent.
//
//	GlobMatch("*GCD*", "Level2_IC86.2012_data_Run00120156_GCD.i3.gz") → true, nil
//	GlobMatch("GCD", "Level2_IC86.2012_data_Run00120156_GCD.i3.gz")   → true, nil
//	GlobMatch("*.tar", "Run00120156_GapsTxt.tar")                   → true, nil
//	GlobMatch("[invalid", "x")                                      → false, syntax error
func GlobMatch(pattern, name string) (bool, error) {
	if pattern == "*" {
		return true, nil
	}
	if strings.ContainsAny(pattern, "*?[") {
		return path.Match(pattern, name)
	}
	return strings.Contains(name, pattern), nil
}

// GlobMatchAny checks if any pattern matches name. Invalid patterns are
// skipped.
func GlobMatchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if matched, _ := GlobMatch(p, name); matched {
			return true
		}
	}
	return false
}
