package state

import (
	"strings"
	"time"
)

// A Channel is a channel the client is in.
type Channel struct {
	dir           *Directory
	frozen        bool
	generatedFrom *Channel

	name        string
	topic       string
	topicSetter string
	topicTime   time.Time
	createdAt   time.Time
	mode        string
}

// Name gets the channel name as first seen.
func (channel *Channel) Name() string {
	return channel.name
}

// Topic gets the topic.
func (channel *Channel) Topic() string {
	return channel.topic
}

// TopicSetter gets who set the topic, if known.
func (channel *Channel) TopicSetter() string {
	return channel.topicSetter
}

// TopicTime gets when the topic was set, if known.
func (channel *Channel) TopicTime() time.Time {
	return channel.topicTime
}

// CreatedAt gets the channel creation time from RPL_CREATIONTIME.
func (channel *Channel) CreatedAt() time.Time {
	return channel.createdAt
}

// Mode gets the mode string as last set by SetMode and changed by ApplyMode.
func (channel *Channel) Mode() string {
	return channel.mode
}

// HasMode returns true if the mode letter is set on the channel.
func (channel *Channel) HasMode(mode rune) bool {
	letters, _, _ := strings.Cut(channel.mode, " ")

	return mode != '+' && mode != '-' && strings.ContainsRune(letters, mode)
}

// IsSnapshot returns true for frozen copies.
func (channel *Channel) IsSnapshot() bool {
	return channel.frozen
}

// GeneratedFrom gets the live channel a snapshot was made from.
func (channel *Channel) GeneratedFrom() *Channel {
	return channel.generatedFrom
}

// Directory gets the directory the channel belongs to. For snapshots made with
// Directory.SnapshotChannel, it's a frozen directory holding just this
// channel and its members.
func (channel *Channel) Directory() *Directory {
	return channel.dir
}

// Users gets the channel members, highest level first.
func (channel *Channel) Users() []*User {
	return channel.dir.UsersIn(channel)
}

// UsersAt gets the members that have the level.
func (channel *Channel) UsersAt(level Level) []*User {
	return channel.dir.UsersAt(channel, level)
}

// Levels gets the user's levels in the channel, highest first. It's empty if
// the user is not a member.
func (channel *Channel) Levels(user *User) []Level {
	return channel.dir.Levels(user, channel)
}

// Member finds a member by nick.
func (channel *Channel) Member(nick string) (*User, bool) {
	user, err := channel.dir.User(nick)
	if err != nil || len(channel.dir.Levels(user, channel)) == 0 {
		return nil, false
	}

	return user, true
}

// SetTopic sets the topic. The setter and time may be empty.
func (channel *Channel) SetTopic(topic, setter string, at time.Time) error {
	return channel.update("SetTopic", func() {
		channel.topic = topic
		channel.topicSetter = setter
		channel.topicTime = at
	})
}

// SetTopicInfo sets who set the topic and when, from RPL_TOPICWHOTIME.
func (channel *Channel) SetTopicInfo(setter string, at time.Time) error {
	return channel.update("SetTopicInfo", func() {
		channel.topicSetter = setter
		channel.topicTime = at
	})
}

// SetCreatedAt sets the creation time.
func (channel *Channel) SetCreatedAt(at time.Time) error {
	return channel.update("SetCreatedAt", func() { channel.createdAt = at })
}

// SetMode replaces the mode string, e.g. from RPL_CHANNELMODEIS.
func (channel *Channel) SetMode(mode string) error {
	return channel.update("SetMode", func() { channel.mode = mode })
}

// ParseMode applies a mode change to the channel. See Directory.ApplyMode.
func (channel *Channel) ParseMode(raw string) (refresh bool, err error) {
	if channel.frozen {
		return false, channel.immutable("ParseMode")
	}

	return channel.dir.ApplyMode(channel, raw)
}

func (channel *Channel) update(operation string, fn func()) error {
	if channel.frozen {
		return channel.immutable(operation)
	}

	channel.dir.mutex.Lock()
	defer channel.dir.mutex.Unlock()

	fn()

	return nil
}

func (channel *Channel) immutable(operation string) error {
	return &ImmutableStateError{Entity: "channel", Name: channel.name, Operation: operation}
}

func (channel *Channel) freeze(dir *Directory) *Channel {
	frozen := *channel
	frozen.dir = dir
	frozen.frozen = true
	frozen.generatedFrom = channel

	return &frozen
}

// applyModeString adds or removes mode letters. Changes with arguments can't
// be applied, so they leave the mode as is and ask for a refresh.
func applyModeString(current, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, " ") {
		return current, true
	}

	letters, args, hasArgs := strings.Cut(current, " ")
	adding := true
	for _, ch := range raw {
		switch ch {
		case '+':
			adding = true
		case '-':
			adding = false
		default:
			if adding {
				if !strings.ContainsRune(letters, ch) {
					letters += string(ch)
				}
			} else {
				letters = strings.ReplaceAll(letters, string(ch), "")
			}
		}
	}

	if hasArgs {
		return letters + " " + args, false
	}

	return letters, false
}
