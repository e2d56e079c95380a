package irctest

import (
	"strings"
	"testing"

	"github.com/gissleh/ircbot/state"
	"github.com/stretchr/testify/assert"
)

var levelPrefixes = map[state.Level]string{
	state.LevelOwner:   "~",
	state.LevelSuperOp: "&",
	state.LevelOp:      "@",
	state.LevelHalfOp:  "%",
	state.LevelVoice:   "+",
}

// AssertUserlist compares the channel's users, in order, to a list of nicks
// prefixed by their highest level, e.g. "@Test".
func AssertUserlist(t *testing.T, channel *state.Channel, assertedOrder ...string) bool {
	users := channel.Users()
	order := make([]string, 0, len(users))
	for _, user := range users {
		prefix := ""
		if levels := channel.Levels(user); len(levels) > 0 {
			prefix = levelPrefixes[levels[0]]
		}

		order = append(order, prefix+user.Nick())
	}

	return assert.Equal(t, strings.Join(assertedOrder, ", "), strings.Join(order, ", "), "userlist of %s", channel.Name())
}
