package state

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var rfc1459Replacer = strings.NewReplacer("[", "{", "]", "}", "\\", "|", "~", "^")

var strictRFC1459Replacer = strings.NewReplacer("[", "{", "]", "}", "\\", "|")

// Fold returns the key two names compare equal by. It lowercases the name
// for the locale, then applies the server's CASEMAPPING on top.
func Fold(locale language.Tag, caseMapping, name string) string {
	// A Caser keeps state, so it can't be shared between goroutines.
	folded := cases.Lower(locale).String(name)

	switch caseMapping {
	case "rfc1459":
		return rfc1459Replacer.Replace(folded)
	case "strict-rfc1459":
		return strictRFC1459Replacer.Replace(folded)
	default:
		return folded
	}
}
