package irctest

import (
	"context"
	"testing"
	"time"

	"github.com/gissleh/ircbot"
	"github.com/inconshreveable/log15"
	"github.com/stretchr/testify/require"
)

// Server is the source used for server lines in tests.
const Server = "irc.example.com"

// QuietLogger gets a logger that discards everything.
func QuietLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	return logger
}

// Register starts a client on a Transport without capability negotiation,
// and returns once it's registered as config.Nick. The client is destroyed
// when the test ends.
func Register(t *testing.T, config ircbot.Config) (*ircbot.Client, *Transport) {
	t.Helper()

	config.DisableCAP = true
	if config.Nick == "" {
		config.Nick = "Test"
	}
	if config.Logger == nil {
		config.Logger = QuietLogger()
	}

	client, err := ircbot.New(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(client.Destroy)

	transport := NewTransport()
	transport.Feed(":" + Server + " 001 " + config.Nick + " :Welcome to the test network")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()

	require.NoError(t, client.Start(ctx, transport))

	return client, transport
}
