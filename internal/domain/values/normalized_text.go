package values

import (
	"regexp"
	"strings"
)

// normalizePattern strips everything that is not an ASCII letter, an ASCII
// digit, or a character in the Cyrillic block used by Serbian text. Compiled
// once at package initialization; Normalize is called on every candidate
// comparison during classification.
var normalizePattern = regexp.MustCompile(`[^a-zA-Z0-9\x{0400}-\x{04FF}]+`)

// Normalize reduces free-text identifiers (merchant names, invoice numbers)
// to a comparable form: punctuation and whitespace removed, letters
// lower-cased. Both Latin and Cyrillic Serbian survive normalization, so
// "Телеком Србија" and "ТЕЛЕКОМ СРБИЈА " normalize to the same string.
//
// An empty result means the input carried no usable identity. Callers must
// never treat two empty normalized strings as a match.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.ToLower(normalizePattern.ReplaceAllString(text, ""))
}

// TextMatches reports whether two raw strings are equivalent after
// normalization. Empty normalized forms never match each other.
func TextMatches(a, b string) bool {
	na := Normalize(a)
	if na == "" {
		return false
	}
	return na == Normalize(b)
}
