// Package textsim provides edit-distance based string similarity.
package textsim

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Distance returns the Levenshtein distance between a and b, counting one
// per inserted, deleted or substituted rune. Comparison is case-sensitive.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity returns a score in [0, 1] where 1 means the strings are equal.
// It is 0 when either string is empty, otherwise
// 1 - Distance(a, b) / max(len(a), len(b)) with lengths counted in runes.
func Similarity(a, b string) float64 {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0.0
	}

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}

	return 1 - float64(Distance(a, b))/float64(maxLen)
}
