package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minGarbageRunes  = 4   // shorter trimmed inputs are rejected
	minGarbageTokens = 2   // single words are rejected
	minLetterRatio   = 0.4 // share of Latin/Vietnamese letters required
)

// vietnameseLetters mirrors the class [A-Za-zÀ-ỹĐđ]. Đ and đ fall inside
// the À-ỹ block.
var vietnameseLetters = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 'A', Hi: 'Z', Stride: 1},
		{Lo: 'a', Hi: 'z', Stride: 1},
		{Lo: 0x00C0, Hi: 0x1EF9, Stride: 1},
	},
	LatinOffset: 2,
}

// IsGarbage reports whether text is too short, a single token, or has too
// few letters to be a real sentence. Garbage is not an error: callers skip
// analysis and report no aspects.
func IsGarbage(text string) bool {
	t := strings.TrimSpace(text)

	total := utf8.RuneCountInString(t)
	if total < minGarbageRunes {
		return true
	}
	if len(strings.Fields(t)) < minGarbageTokens {
		return true
	}

	letters := 0
	for _, r := range t {
		if unicode.Is(vietnameseLetters, r) {
			letters++
		}
	}
	return float64(letters)/float64(total) < minLetterRatio
}
