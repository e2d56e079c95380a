package handlers

import (
	"strings"
	"time"

	"github.com/gissleh/ircbot"
)

// CTCP answers the widely used CTCP commands (CLIENTINFO, VERSION, TIME, and PING). DCC requests are
// left to other listeners as `dcc.*` events.
//
// For every other CTCP command supported, you should expand the `ctcp.clientinfo.reply` client value.
func CTCP(event *ircbot.Event, client *ircbot.Client) error {
	switch event.Name() {
	case "ctcp.clientinfo":
		{
			response := "ACTION CLIENTINFO DCC PING TIME VERSION"
			if v, ok := client.Value("ctcp.clientinfo.reply"); ok {
				if r, ok := v.(string); ok {
					response = r
				}
			}

			return client.SendCTCP("CLIENTINFO", event.Nick(), true, response)
		}
	case "ctcp.version":
		{
			version := client.Config().Version
			if v, ok := client.Value("ctcp.version.reply"); ok {
				if r, ok := v.(string); ok {
					version = r
				}
			}

			return client.SendCTCP("VERSION", event.Nick(), true, version)
		}
	case "ctcp.time":
		{
			return client.SendCTCP("TIME", event.Nick(), true, time.Now().Local().Format(time.RFC1123))
		}
	case "ctcp.ping":
		{
			return client.SendCTCP("PING", event.Nick(), true, strings.TrimSpace(event.Text()))
		}
	}

	return nil
}
