package handlers

import (
	"encoding/json"

	"github.com/gissleh/ircbot"
	"github.com/inconshreveable/log15"
)

// Debug makes a listener that logs every event as JSON at the debug level.
func Debug(logger log15.Logger) ircbot.Listener {
	logger = logger.New("component", "debug")

	return func(event *ircbot.Event, client *ircbot.Client) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		logger.Debug(event.Name(), "client", client.ID(), "event", string(data))

		return nil
	}
}
