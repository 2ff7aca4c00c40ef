// Package textnorm prepares feedback text for storage and keyword matching.
//
// Two forms are produced from the same input:
//
//   - storage form: NFC composed, trimmed, whitespace collapsed. This is the
//     form that is displayed, cached and persisted.
//   - matching form: lower-cased, combining marks stripped, whitespace
//     collapsed. It is only ever compared against keyword phrases.
//
// All functions are safe for concurrent use.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeForStorage composes the text to NFC, trims it and collapses
// internal whitespace runs to a single space.
func NormalizeForStorage(text string) string {
	return collapseWhitespace(norm.NFC.String(text))
}

// NormalizeForMatching lower-cases the text and strips every nonspacing mark
// after decomposing it. The base letter đ has no decomposition and survives.
func NormalizeForMatching(text string) string {
	// transform.Chain keeps per-call state, so it is never shared.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

	stripped, _, err := transform.String(stripMarks, strings.ToLower(text))
	if err != nil {
		// Only reachable on invalid transformer state; fall back to the
		// decomposed form so callers still get a lower-cased string.
		stripped = norm.NFD.String(strings.ToLower(text))
	}
	return collapseWhitespace(stripped)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
