// Package cli provides shared utilities for CLI commands.
package cli

import (
	"fmt"
	"path"
	"strings"
)

// HasGlob reports whether pattern contains glob characters (*?[).
func HasGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// ExpandPattern expands a glob pattern against account descriptions.
// If the pattern contains glob characters (*?[), it performs glob matching
// where '*' does not cross a '/' so "work/*" selects one group.
// Otherwise, it performs exact matching.
func ExpandPattern(pattern string, descriptions []string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}

	if !HasGlob(pattern) {
		for _, d := range descriptions {
			if d == pattern {
				return []string{pattern}, nil
			}
		}
		return nil, fmt.Errorf("account '%s' not found", pattern)
	}

	var matches []string
	for _, d := range descriptions {
		matched, err := path.Match(pattern, d)
		if err != nil {
			return nil, err
		}
		if matched {
			matches = append(matches, d)
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no accounts match pattern '%s'", pattern)
	}

	return matches, nil
}

// ExpandPatterns expands multiple glob patterns against account descriptions.
// Returns unique matching descriptions preserving order of first match.
func ExpandPatterns(patterns []string, descriptions []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, pattern := range patterns {
		matches, err := ExpandPattern(pattern, descriptions)
		if err != nil {
			return nil, err
		}
		for _, d := range matches {
			if !seen[d] {
				seen[d] = true
				result = append(result, d)
			}
		}
	}

	return result, nil
}

// Select returns the items whose name matches any of the patterns, in their
// original order. Items sharing a matched name are all selected.
func Select[T any](patterns []string, items []T, name func(T) string) ([]T, error) {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = name(item)
	}

	matched, err := ExpandPatterns(patterns, names)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(matched))
	for _, n := range matched {
		want[n] = true
	}

	var selected []T
	for i, item := range items {
		if want[names[i]] {
			selected = append(selected, item)
		}
	}
	return selected, nil
}
