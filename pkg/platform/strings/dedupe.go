// Package strings provides string list utilities for request and config parsing.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empty and repeated values,
// preserving first-seen order. Comparison uses key(v) so callers choose
// case sensitivity.
func DedupeAndTrim(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	if key == nil {
		key = func(s string) string { return s }
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		k := key(trimmed)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// SplitList parses a comma separated list such as an environment variable.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(raw, ","), nil)
}
