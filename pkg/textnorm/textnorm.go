// Package textnorm canonicalizes display names for case and diacritic
// insensitive comparison. Normalized keys are used only at match time inside
// the catalog registry and are never shown to users.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics decomposes text to NFKD and drops combining marks, so
// "Škoda" compares equal to "Skoda".
func RemoveDiacritics(text string) string {
	stripper := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(stripper, text)
	if err != nil {
		return text
	}
	return out
}

// Normalize produces the comparison key: trimmed, diacritic-stripped,
// lowercased. Pure function.
func Normalize(text string) string {
	return strings.ToLower(RemoveDiacritics(strings.TrimSpace(text)))
}
