// Package strings provides string slice helpers.
package strings

import (
	"slices"
	"strings"
)

// SortedSet trims each value, drops blanks and duplicates, and returns the
// rest sorted. It returns nil when nothing is left so callers can omit the
// field entirely.
//
//	SortedSet([]string{" phone", "email", "phone", ""})
//	// []string{"email", "phone"}
func SortedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// FirstNonEmpty returns the first value that is not blank after trimming.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
