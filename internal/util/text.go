package util

import (
	"strings"
	"unicode"
)

// CleanLabel trims a node or relation label and folds runs of whitespace
// (including line breaks inside quoted CSV fields) into single spaces.
// Control characters are dropped.
func CleanLabel(value string) string {
	if value == "" {
		return value
	}

	var b strings.Builder
	b.Grow(len(value))
	space := false
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r):
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
