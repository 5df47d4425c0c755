// Package normalize folds inbound user text into the canonical form the
// dispatcher and flows compare against: lower case, no combining marks.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text lowercases s and strips diacritics ("Recuérdame" -> "recuerdame").
// Emoji and other non-mark runes are preserved.
func Text(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		// transform.String only fails on malformed chains; fall back to the lowercased input.
		return strings.ToLower(s)
	}
	return out
}

// Fields normalizes s and splits it on whitespace.
func Fields(s string) []string {
	return strings.Fields(Text(s))
}
