// Package dedup detects and merges duplicate papers reported by multiple
// providers, matching first on DOI and then on normalized title plus
// publication year.
package dedup

import (
	"strings"
	"unicode"
)

// NormalizeTitle normalizes a paper title for comparison:
//   - Converts to lowercase
//   - Removes all non-letter, non-digit, non-space characters
//   - Collapses runs of whitespace to a single space
//   - Trims leading and trailing whitespace
//
// Two titles that normalize to the same string are considered the same
// work when their publication years also agree.
func NormalizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(title))
	prevSpace := false

	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
		// Punctuation and symbols are dropped.
	}

	return strings.TrimRight(sb.String(), " ")
}
