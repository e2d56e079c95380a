package handlers

import (
	"errors"
	"strings"

	"github.com/gissleh/ircbot"
	"github.com/gissleh/ircbot/ircutil"
)

// ErrUsage is wrapped by errors from Input when a command is used wrong.
var ErrUsage = errors.New("usage")

// ErrNoInputTarget is returned by Input when a command needs a target and none is selected.
var ErrNoInputTarget = errors.New("no target selected")

// NewInput makes an `input.<command>` event from a line like "/msg Someone hello". Lines without
// a leading slash become `input.text`. The target is the selected channel or nick, and may be empty.
func NewInput(line, target string) *ircbot.Event {
	command, text := "text", line
	if strings.HasPrefix(line, "/") && !strings.HasPrefix(line, "//") {
		command, text = ircutil.ParseArgAndText(line[1:])
	} else if strings.HasPrefix(line, "//") {
		text = line[1:]
	}

	return ircbot.NewEvent("input", strings.ToLower(command), text, target)
}

// Input handles the default input. The first argument of the event is the selected target. Mistakes
// are returned as errors, so they show up as listener.exception events.
func Input(event *ircbot.Event, client *ircbot.Client) error {
	if event.Kind() != "input" {
		return nil
	}

	target := event.Arg(0)

	switch event.Verb() {

	// /msg sends a message to a target specified before the message.
	case "msg":
		{
			targetName, text := ircutil.ParseArgAndText(event.Text())
			if targetName == "" || text == "" {
				return usage("/msg <target> <text...>")
			}

			return client.Privmsg(targetName, text)
		}

	// /text (or text without a command) sends a message to the target.
	case "text":
		{
			if event.Text() == "" {
				return usage("/text <text...>")
			}
			if target == "" {
				return ErrNoInputTarget
			}

			return client.Privmsg(target, event.Text())
		}

	// /me and /action sends a CTCP ACTION.
	case "me", "action":
		{
			if event.Text() == "" {
				return usage("/me <text...>")
			}
			if target == "" {
				return ErrNoInputTarget
			}

			return sendAction(client, target, event.Text())
		}

	// /describe sends an action to a target specified before the message, like /msg.
	case "describe":
		{
			targetName, text := ircutil.ParseArgAndText(event.Text())
			if targetName == "" || text == "" {
				return usage("/describe <target> <text...>")
			}

			return sendAction(client, targetName, text)
		}

	// /m is a shorthand for /mode that targets the current channel
	case "m":
		{
			if event.Text() == "" {
				return usage("/m <modes...>")
			}
			if !client.ISupport().IsChannel(target) {
				return ErrNoInputTarget
			}

			return client.Sendf("MODE %s %s", target, event.Text())
		}

	case "join":
		{
			if event.Text() == "" {
				return usage("/join <channel>")
			}

			return client.Join(strings.Fields(event.Text())...)
		}

	case "part":
		{
			channel, reason := ircutil.ParseArgAndText(event.Text())
			if !client.ISupport().IsChannel(channel) {
				channel, reason = target, event.Text()
			}
			if !client.ISupport().IsChannel(channel) {
				return usage("/part [channel] [reason...]")
			}

			return client.Part(channel, reason)
		}

	// /quote sends the text as it is.
	case "quote", "raw":
		{
			if event.Text() == "" {
				return usage("/quote <line...>")
			}

			return client.Send(event.Text())
		}

	case "quit":
		{
			return client.Quit(event.Text())
		}
	}

	return nil
}

func sendAction(client *ircbot.Client, target, text string) error {
	cuts, err := client.Cut(target, text, true)
	if err != nil {
		return err
	}

	for _, cut := range cuts {
		if err := client.SendCTCP("ACTION", target, false, cut); err != nil {
			return err
		}
	}

	return nil
}

func usage(text string) error {
	return &usageError{text: text}
}

type usageError struct {
	text string
}

func (err *usageError) Error() string {
	return "usage: " + err.text
}

func (err *usageError) Unwrap() error {
	return ErrUsage
}
