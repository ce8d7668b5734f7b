package index

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases s and splits it on non-alphanumeric boundaries.
// Empty tokens never occur; everything else is kept, so "e-mail" yields
// ["e", "mail"] and "VS16" yields ["vs16"].
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
