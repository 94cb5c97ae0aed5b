package models

import "unicode/utf8"

// TruncateRunes shortens s to at most n characters without splitting a
// multibyte rune. Column widths in MySQL count characters, not bytes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
