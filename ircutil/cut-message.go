package ircutil

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// DefaultLineLength is the longest line, without the CR-LF, that a server
// takes if it doesn't say otherwise with LINELEN.
const DefaultLineLength = 510

// ErrNoRoom is returned when the overhead leaves too little of the line for
// the message to fit.
var ErrNoRoom = errors.New("ircutil: no room for the message after the overhead")

// MessageOverhead calculates the overhead in a `PRIVMSG` sent by a client
// with the given nick, user, host and target name. A `NOTICE` is shorter, so
// it is safe to use the same function for it.
func MessageOverhead(nick, user, host, target string, action bool) int {
	template := ":!@ PRIVMSG  :"
	if action {
		template += "\x01ACTION \x01"
	}

	return len(template) + len(nick) + len(user) + len(host) + len(target)
}

// CutMessage splits the message between words so that each cut plus the
// overhead fits in lineLength. If a word is too long by itself, the message is
// cut with CutMessageNoSpace instead.
func CutMessage(text string, lineLength, overhead int) ([]string, error) {
	cutLength, err := cutLength(lineLength, overhead)
	if err != nil {
		return nil, err
	}

	words := strings.Split(text, " ")
	for _, word := range words {
		if len(word) >= cutLength {
			return CutMessageNoSpace(text, lineLength, overhead)
		}
	}

	result := make([]string, 0, len(text)/cutLength+1)
	current := strings.Builder{}
	current.Grow(cutLength)

	for i, word := range words {
		if i > 0 && current.Len()+1+len(word) > cutLength {
			result = append(result, current.String())
			current.Reset()
		} else if i > 0 {
			current.WriteByte(' ')
		}

		current.WriteString(word)
	}

	return append(result, current.String()), nil
}

// CutMessageNoSpace splits the message between runes, never inside one.
func CutMessageNoSpace(text string, lineLength, overhead int) ([]string, error) {
	cutLength, err := cutLength(lineLength, overhead)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(text)/cutLength+1)
	start := 0

	for i, r := range text {
		if i+utf8.RuneLen(r)-start > cutLength {
			result = append(result, text[start:i])
			start = i
		}
	}

	return append(result, text[start:]), nil
}

// cutLength is the room left for text. It must fit the widest rune.
func cutLength(lineLength, overhead int) (int, error) {
	if lineLength <= 0 {
		lineLength = DefaultLineLength
	}

	cutLength := lineLength - overhead
	if cutLength < utf8.UTFMax {
		return 0, ErrNoRoom
	}

	return cutLength, nil
}
