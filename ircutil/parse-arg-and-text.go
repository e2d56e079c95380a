package ircutil

import (
	"strings"
)

// ParseArgAndText parses a text like "#Channel stuff and things" into "#Channel"
// and "stuff and things", as used by input commands. Spaces around the argument
// are skipped, but the text is kept as it is after the first of them.
func ParseArgAndText(s string) (arg, text string) {
	arg, text, _ = strings.Cut(strings.TrimLeft(s, " "), " ")
	return arg, text
}
