package ircbot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gissleh/ircbot/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_WithDefaults(t *testing.T) {
	config := Config{Nick: "Bot"}.WithDefaults()

	assert.Equal(t, "IrcUser", config.User)
	assert.Equal(t, "...", config.RealName)
	assert.Equal(t, []string{"Bot1", "Bot2", "Bot3", "Bot4", "Bot5", "Bot6", "Bot7", "Bot8", "Bot9"}, config.Alternatives)
	assert.Equal(t, supportedCaps, config.Capabilities)
	assert.Equal(t, time.Minute*5, config.IdleTimeout)
	assert.Equal(t, DispatchSync, config.Dispatch)
	assert.NotNil(t, config.Logger)
	assert.NoError(t, config.validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
nick: Bot
alternatives: [Bot_, Bot__]
server: irc.example.com:6697
tls: true
sasl:
  username: bot
  password: hunter2
channels: ["#bots", "#test"]
idleTimeout: 30s
dispatch: parallel
locale: tr
`), 0600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Bot", config.Nick)
	assert.Equal(t, []string{"Bot_", "Bot__"}, config.Alternatives)
	assert.Equal(t, "irc.example.com:6697", config.Server)
	assert.True(t, config.TLS)
	require.NotNil(t, config.SASL)
	assert.Equal(t, "hunter2", config.SASL.Password)
	assert.Equal(t, []string{"#bots", "#test"}, config.Channels)
	assert.Equal(t, time.Second*30, config.IdleTimeout)
	assert.Equal(t, DispatchParallel, config.Dispatch)

	config = config.WithDefaults()
	assert.NoError(t, config.validate())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nick: [unclosed"), 0600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	table := map[string]Config{
		"dispatch": {Dispatch: "sideways"},
		"starttls": {TLS: true, STARTTLS: true},
		"locale":   {Locale: "not a locale!"},
	}

	for name, config := range table {
		t.Run(name, func(t *testing.T) {
			config = config.WithDefaults()
			assert.Error(t, config.validate())
		})
	}
}

func TestConfig_CapHandlers(t *testing.T) {
	config := Config{
		Capabilities: []string{"server-time", "sasl", "tls"},
		SASL:         &SASLConfig{Username: "bot", Password: "hunter2"},
		STARTTLS:     true,
	}.WithDefaults()

	handlers := config.capHandlers()
	require.Len(t, handlers, 3)
	assert.Equal(t, "server-time", handlers[0].Capability())
	assert.IsType(t, &capability.SASLHandler{}, handlers[1])
	assert.IsType(t, &capability.TLSHandler{}, handlers[2])

	_, err := capability.New(nil, handlers, nil)
	assert.NoError(t, err)
}
