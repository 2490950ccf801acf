package engine

import (
	"strings"
	"unicode"
)

// Terms lowercases s and splits it on anything that is not a letter or digit.
func Terms(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// AutoFuzziness returns the edit budget allowed for a query term: none up to
// two characters, one up to five, two beyond.
func AutoFuzziness(term string) int {
	switch n := len([]rune(term)); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}
