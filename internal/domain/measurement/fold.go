// Package measurement holds the measurement record model and the pure
// normalisation functions applied to it: value parsing, unit conversion to
// the mg/L reference unit, analyte canonicalisation and fraction detection.
//
// Nothing in this package returns an error for bad data.  An unparseable
// value or unknown unit is carried as a nil *float64 and the checkers decide
// what that means.
package measurement

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and removes diacritics using NFKD decomposition.
// Compatibility decomposition also maps the micro sign (U+00B5) onto the
// Greek mu (U+03BC).
func Fold(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ContainsFolded reports whether needle occurs in haystack after both are
// folded.  An empty needle never matches.
func ContainsFolded(haystack, needle string) bool {
	n := strings.TrimSpace(Fold(needle))
	if n == "" {
		return false
	}
	return strings.Contains(Fold(haystack), n)
}
