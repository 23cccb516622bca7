package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// unitSuffixRe matches a bracketed or parenthesized unit such as "[K]",
// "(rpm)" or "[°C]".
var unitSuffixRe = regexp.MustCompile(`[\[(]\s*([^\])]*?)\s*[\])]`)

var unitWords = map[string]string{
	"k":   "kelvin",
	"°k":  "kelvin",
	"c":   "celsius",
	"°c":  "celsius",
	"f":   "fahrenheit",
	"°f":  "fahrenheit",
	"nm":  "newton meter",
	"n m": "newton meter",
	"n.m": "newton meter",
	"rpm": "rpm",
	"min": "minutes",
	"s":   "seconds",
	"h":   "hours",
	"mm":  "millimeter",
	"%":   "percent",
}

// Normalize canonicalizes a column header for matching: it lowercases,
// spells out known bracketed units, turns every non-alphanumeric rune into
// a separator and collapses whitespace. Normalize is total and idempotent.
func Normalize(column string) string {
	s := strings.ToLower(column)
	s = unitSuffixRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := unitSuffixRe.FindStringSubmatch(m)[1]
		if word, ok := unitWords[inner]; ok {
			return " " + word + " "
		}
		return " " + inner + " "
	})

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
