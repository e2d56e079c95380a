package ircbot

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gissleh/ircbot/dcc"
	"github.com/gissleh/ircbot/state"
)

// An Event is anything that passes through the client's dispatcher. The name
// is its kind and verb separated by a dot, e.g. "packet.privmsg". Events
// can't be changed once made, and they only refer to snapshots, so they can
// be kept and passed between goroutines.
type Event struct {
	kind string
	verb string
	name string

	time time.Time
	nick string
	user string
	host string
	args []string
	text string
	tags map[string]string
	raw  string

	channel *state.Channel
	source  *state.User
	dcc     *dcc.Request

	err      error
	listener ListenerID
	original *Event

	client *Client
}

// NewEvent makes an event. Use it with Client.Emit for events of your own.
func NewEvent(kind, verb, text string, args ...string) *Event {
	return &Event{
		kind: kind,
		verb: verb,
		name: kind + "." + verb,
		time: time.Now(),
		text: text,
		args: append([]string{}, args...),
		tags: map[string]string{},
	}
}

// Kind gets the event's kind
func (event *Event) Kind() string {
	return event.kind
}

// Verb gets the event's verb
func (event *Event) Verb() string {
	return event.verb
}

// Name gets the event name, which is Kind and Verb separated by a dot.
func (event *Event) Name() string {
	return event.name
}

// IsEither returns true if the event has the kind and one of the verbs.
func (event *Event) IsEither(kind string, verbs ...string) bool {
	if event.kind != kind {
		return false
	}

	for i := range verbs {
		if event.verb == verbs[i] {
			return true
		}
	}

	return false
}

// Time gets when the event happened, using the server-time tag if present.
func (event *Event) Time() time.Time {
	return event.time
}

// Nick gets the nick of the source, or the server name.
func (event *Event) Nick() string {
	return event.nick
}

// Login gets the user part of the source.
func (event *Event) Login() string {
	return event.user
}

// Host gets the host part of the source.
func (event *Event) Host() string {
	return event.host
}

// Arg gets the argument by index, or "" if there isn't one. The trailing
// argument is not included, use Text for that.
func (event *Event) Arg(index int) string {
	if index < 0 || index >= len(event.args) {
		return ""
	}

	return event.args[index]
}

// Args gets a copy of the arguments.
func (event *Event) Args() []string {
	return append([]string{}, event.args...)
}

// Text gets the trailing argument.
func (event *Event) Text() string {
	return event.text
}

// Tag gets a message tag.
func (event *Event) Tag(key string) (string, bool) {
	value, ok := event.tags[key]
	return value, ok
}

// Raw gets the line the event was parsed from.
func (event *Event) Raw() string {
	return event.raw
}

// Channel gets a snapshot of the channel the event happened in, as it was
// after the event. For parts and kicks, it's the channel just before.
func (event *Event) Channel() *state.Channel {
	return event.channel
}

// User gets a snapshot of the user that caused the event.
func (event *Event) User() *state.User {
	return event.source
}

// DCC gets the request of a dcc event.
func (event *Event) DCC() *dcc.Request {
	return event.dcc
}

// Err gets the error of error events.
func (event *Event) Err() error {
	return event.err
}

// Listener gets the listener that failed, for listener.exception events.
func (event *Event) Listener() ListenerID {
	return event.listener
}

// Original gets the event a listener failed on, for listener.exception events.
func (event *Event) Original() *Event {
	return event.original
}

// Target gets where a reply should go: the channel for channel messages,
// otherwise the nick of the sender.
func (event *Event) Target() string {
	if event.channel != nil {
		return event.channel.Name()
	}

	if event.client != nil && len(event.args) > 0 && event.client.ISupport().IsChannel(event.args[0]) {
		return event.args[0]
	}

	return event.nick
}

// Respond sends a PRIVMSG to the event's target. Long messages are cut into
// more lines.
func (event *Event) Respond(text string) error {
	if event.client == nil {
		return ErrNoConnection
	}

	target := event.Target()
	if target == "" {
		return ErrNoTarget
	}

	return event.client.Privmsg(target, text)
}

// MarshalJSON makes a JSON object from the event.
func (event *Event) MarshalJSON() ([]byte, error) {
	data := map[string]interface{}{
		"name": event.name,
		"time": event.time,
		"nick": event.nick,
		"args": event.args,
		"text": event.text,
		"tags": event.tags,
	}
	if event.channel != nil {
		data["channel"] = event.channel.Name()
	}
	if event.dcc != nil {
		data["dcc"] = event.dcc.String()
	}
	if event.err != nil {
		data["error"] = event.err.Error()
	}

	return json.Marshal(data)
}

func (event *Event) setName(kind, verb string) {
	event.kind = kind
	event.verb = verb
	event.name = kind + "." + strings.ToLower(verb)
}
