// Package utils provides shared utilities for text, math, and logging.
package utils

// Truncate returns s truncated to maxRunes characters, with "..." appended
// when truncation happened. Counting is rune-based: chunk text is Thai and
// byte slicing would split multi-byte characters.
// If maxRunes is 0 or negative, returns s unchanged.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
