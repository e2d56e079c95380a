package ircbot

import (
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/pkg/errors"
)

// ParsePacket parses an irc line and returns an event that's either of kind `packet`, `ctcp` or `ctcp-reply`
func ParsePacket(line string) (*Event, error) {
	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		return nil, errors.Wrap(err, "irc: could not parse line")
	}

	return packetEvent(msg, line), nil
}

func packetEvent(msg ircmsg.Message, line string) *Event {
	event := &Event{
		time: time.Now(),
		raw:  line,
		tags: msg.AllTags(),
	}
	if event.tags == nil {
		event.tags = map[string]string{}
	}

	if msg.Source != "" {
		nuh, err := msg.NUH()
		if err == nil {
			event.nick, event.user, event.host = nuh.Name, nuh.User, nuh.Host
		} else {
			event.nick = msg.Source
		}
	}

	// IRCv3 `server-time`
	if timeTag, ok := event.tags["time"]; ok {
		serverTime, err := time.Parse(time.RFC3339Nano, timeTag)
		if err == nil && serverTime.Year() > 2000 {
			event.time = serverTime
		}
	}

	params := msg.Params
	if len(params) > 0 && trailing(line) {
		event.text = params[len(params)-1]
		params = params[:len(params)-1]
	}
	event.args = append(make([]string, 0, len(params)), params...)

	event.setName("packet", msg.Command)

	// CTCP
	if (msg.Command == "PRIVMSG" || msg.Command == "NOTICE") && strings.HasPrefix(event.text, "\x01") {
		verbText := strings.SplitN(strings.Replace(event.text, "\x01", "", 2), " ", 2)

		kind := "ctcp"
		if msg.Command == "NOTICE" {
			kind = "ctcp-reply"
		}

		event.setName(kind, verbText[0])
		if len(verbText) == 2 {
			event.text = verbText[1]
		} else {
			event.text = ""
		}
	}

	return event
}

// trailing returns true if the line's last parameter has a colon, so that
// "PING :x" puts x in the text while "PING x" puts it in the args.
func trailing(line string) bool {
	if strings.HasPrefix(line, "@") {
		if i := strings.IndexByte(line, ' '); i >= 0 {
			line = line[i+1:]
		}
	}
	line = strings.TrimLeft(line, " ")
	if strings.HasPrefix(line, ":") {
		if i := strings.IndexByte(line, ' '); i >= 0 {
			line = line[i+1:]
		}
	}

	return strings.Contains(line, " :")
}
