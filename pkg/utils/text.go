// Package utils provides shared helpers for logging and text formatting.
package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate shortens s to at most maxLen runes, cutting on a rune boundary and appending "..."
// when anything was dropped. Whitespace before the ellipsis is trimmed. A maxLen of 0 or less
// returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return strings.TrimRight(s[:i], " \t\n") + "..."
		}
		n++
	}
	return s
}
