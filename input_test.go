package ircbot_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gissleh/ircbot"
	"github.com/gissleh/ircbot/capability"
	"github.com/gissleh/ircbot/internal/irctest"
	"github.com/gissleh/ircbot/ircutil"
	"github.com/gissleh/ircbot/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timeout = time.Second * 2

func expectLines(t *testing.T, transport *irctest.Transport, lines ...string) {
	t.Helper()

	for _, line := range lines {
		skipped, err := transport.Expect(line, timeout)
		require.NoError(t, err, "expected %q, got %q", line, skipped)
	}
}

func startAsync(client *ircbot.Client, transport *irctest.Transport) chan error {
	result := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result <- client.Start(ctx, transport)
	}()

	return result
}

func TestInput_Negotiation(t *testing.T) {
	client, err := ircbot.New(context.Background(), ircbot.Config{
		Nick:         "Test",
		User:         "tester",
		Capabilities: []string{"server-time"},
		SASL:         &ircbot.SASLConfig{Username: "user", Password: "pass"},
		Logger:       irctest.QuietLogger(),
	})
	require.NoError(t, err)
	defer client.Destroy()

	transport := irctest.NewTransport()
	result := startAsync(client, transport)

	expectLines(t, transport, "CAP LS")
	assert.Equal(t, ircbot.Negotiating, client.ConnState())

	transport.Feed(":irc.example.com CAP * LS :server-time sasl=PLAIN")
	expectLines(t, transport, "CAP REQ :server-time", "CAP REQ :sasl")

	transport.Feed(":irc.example.com CAP * ACK :server-time sasl")
	expectLines(t, transport, "AUTHENTICATE PLAIN")

	transport.Feed("AUTHENTICATE +")
	payload := base64.StdEncoding.EncodeToString([]byte("user\x00user\x00pass"))
	expectLines(t, transport, "AUTHENTICATE "+payload)

	transport.Feed(":irc.example.com 900 * Test!tester@host user :You are now logged in as user")
	expectLines(t, transport, "CAP END", "NICK Test", "USER tester 8 * :...")

	transport.Feed(":irc.example.com 903 * :SASL authentication successful", ":irc.example.com 001 Test :Welcome")

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(timeout):
		t.Fatal("Start did not return")
	}

	assert.Equal(t, ircbot.Registered, client.ConnState())
	assert.Equal(t, "Test", client.Nick())
	assert.True(t, client.CapEnabled("sasl"))
	assert.Equal(t, []string{"sasl", "server-time"}, client.EnabledCaps())
}

func TestInput_NegotiationFailure(t *testing.T) {
	client, err := ircbot.New(context.Background(), ircbot.Config{
		Capabilities: []string{},
		SASL:         &ircbot.SASLConfig{Username: "user", Password: "wrong"},
		Logger:       irctest.QuietLogger(),
	})
	require.NoError(t, err)
	defer client.Destroy()

	transport := irctest.NewTransport()
	result := startAsync(client, transport)

	expectLines(t, transport, "CAP LS")
	transport.Feed(":irc.example.com CAP * LS :sasl")
	expectLines(t, transport, "CAP REQ :sasl")
	transport.Feed(":irc.example.com CAP * ACK :sasl")
	expectLines(t, transport, "AUTHENTICATE PLAIN")
	transport.Feed("AUTHENTICATE +")
	transport.Feed(":irc.example.com 904 * :SASL authentication failed")

	select {
	case err := <-result:
		authErr := &capability.AuthenticationFailedError{}
		require.True(t, errors.As(err, &authErr), "got %v", err)
		assert.Equal(t, "SASL authentication failed", authErr.Message)
	case <-time.After(timeout):
		t.Fatal("Start did not return")
	}

	assert.True(t, transport.Closed())
	assert.Eventually(t, func() bool {
		return client.ConnState() == ircbot.Disconnected
	}, timeout, time.Millisecond*10)
}

func TestInput_NoCAP(t *testing.T) {
	client, err := ircbot.New(context.Background(), ircbot.Config{Nick: "Test", Logger: irctest.QuietLogger()})
	require.NoError(t, err)
	defer client.Destroy()

	transport := irctest.NewTransport()
	result := startAsync(client, transport)

	expectLines(t, transport, "CAP LS")
	transport.Feed(":irc.example.com 421 * CAP :Unknown command")
	expectLines(t, transport, "NICK Test")
	transport.Feed(":irc.example.com 001 Test :Welcome")

	require.NoError(t, <-result)
	assert.NotContains(t, transport.Written(), "CAP END")
}

func TestInput_AlreadyConnected(t *testing.T) {
	client, _ := irctest.Register(t, ircbot.Config{})

	assert.ErrorIs(t, client.Start(context.Background(), irctest.NewTransport()), ircbot.ErrAlreadyConnected)
}

func TestInput_IdlePing(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{IdleTimeout: time.Millisecond * 150})

	time.Sleep(time.Millisecond * 220)

	pings := 0
	for _, line := range transport.Written() {
		if strings.HasPrefix(line, "PING ") {
			pings++
		}
	}

	assert.Equal(t, 1, pings)
	assert.Equal(t, ircbot.Registered, client.ConnState())
}

func TestInput_Pong(t *testing.T) {
	_, transport := irctest.Register(t, ircbot.Config{})

	transport.Feed("PING :irc.example.com")
	expectLines(t, transport, "PONG :irc.example.com")

	transport.Feed("PING token")
	expectLines(t, transport, "PONG :token")
}

func TestInput_ReadErrors(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})

	// The next read after the PING fails, but the connection lives on.
	transport.SetReadErr(errors.New("something odd happened"))
	transport.Feed("PING :first")
	expectLines(t, transport, "PONG :first")

	transport.Feed("PING :second")
	expectLines(t, transport, "PONG :second")
	assert.Equal(t, ircbot.Registered, client.ConnState())
}

func TestInput_ReadErrorsBackOff(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})

	// More failures in a row than any fixed limit would allow.
	transport.FailReads(errors.New("something odd happened"), 12)
	transport.Feed("PING :after")

	_, err := transport.Expect("PONG :after", time.Second*5)
	require.NoError(t, err)
	assert.Equal(t, ircbot.Registered, client.ConnState())
	assert.False(t, transport.Closed())
}

func TestInput_ReadErrorsStopOnDisconnect(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})
	waiter := client.NewWaiter("client.disconnect")
	defer waiter.Close()

	transport.FailReads(errors.New("something odd happened"), 1000)
	time.Sleep(time.Millisecond * 50)
	require.NoError(t, client.Disconnect())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	event, err := waiter.Next(ctx)
	require.NoError(t, err)
	assert.NoError(t, event.Err())
	assert.True(t, transport.Closed())
}

func TestInput_BadListener(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})
	client.AddListener(func(event *ircbot.Event, client *ircbot.Client) error {
		if event.Name() == "packet.privmsg" {
			panic("oh no")
		}

		return nil
	})

	waiter := client.NewWaiter("listener.exception")
	defer waiter.Close()

	transport.Feed(":Someone!some@one PRIVMSG Test :hello")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	event, err := waiter.Next(ctx)
	require.NoError(t, err)

	listenerPanic := &ircbot.ListenerPanic{}
	require.True(t, errors.As(event.Err(), &listenerPanic))
	assert.Equal(t, "oh no", listenerPanic.Value)

	transport.Feed("PING :still-alive")
	expectLines(t, transport, "PONG :still-alive")
}

func TestInput_Disconnect(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})

	waiter := client.NewWaiter("client.disconnect")
	defer waiter.Close()

	require.NoError(t, transport.Close())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	event, err := waiter.Next(ctx)
	require.NoError(t, err)
	assert.Error(t, event.Err())
	assert.Equal(t, ircbot.Disconnected, client.ConnState())
	assert.ErrorIs(t, client.Send("PRIVMSG #Test :anyone?"), ircbot.ErrNoConnection)
	assert.ErrorIs(t, client.Disconnect(), ircbot.ErrNoConnection)
}

func TestInput_DisconnectByClient(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})

	waiter := client.NewWaiter("client.disconnect")
	defer waiter.Close()

	require.NoError(t, client.Disconnect())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	event, err := waiter.Next(ctx)
	require.NoError(t, err)
	assert.NoError(t, event.Err())
	assert.True(t, transport.Closed())
}

func TestInput_ChannelState(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})

	waiter := client.NewWaiter("packet.mode", "packet.part")
	defer waiter.Close()

	transport.Feed(
		":irc.example.com 005 Test PREFIX=(qaohv)~&@%+ CHANMODES=beI,k,l,imnpst CASEMAPPING=ascii :are supported by this server",
		":Test!test@example.com JOIN #Channel",
		":irc.example.com 353 Test = #Channel :Test ~Boss &Admin %Half +Voiced Normal",
		":irc.example.com 366 Test #Channel :End of /NAMES list.",
		":Boss!boss@example.com MODE #Channel +o-v Voiced Voiced",
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	event, err := waiter.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, event.Channel())

	snapshot := event.Channel()
	assert.True(t, snapshot.IsSnapshot())
	irctest.AssertUserlist(t, snapshot, "~Boss", "&Admin", "@Voiced", "%Half", "Normal", "Test")
	require.NotNil(t, event.User())
	assert.Equal(t, "Boss", event.User().Nick())
	assert.Equal(t, []state.Level{state.LevelOwner}, snapshot.Levels(event.User()))

	transport.Feed(":Normal!normal@example.com PART #Channel :bye")

	event, err = waiter.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "packet.part", event.Name())

	// The part event has the channel from before, and the earlier snapshot
	// is unchanged.
	_, ok := event.Channel().Member("Normal")
	assert.True(t, ok)
	_, ok = snapshot.Member("Normal")
	assert.True(t, ok)

	current, err := client.Channel("#channel")
	require.NoError(t, err)
	_, ok = current.Member("Normal")
	assert.False(t, ok)
}

func TestInput_ModeRefresh(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})

	transport.Feed(
		":Test!test@example.com JOIN #Channel",
		":irc.example.com 324 Test #Channel +nt",
	)
	expectLines(t, transport, "MODE #Channel")

	transport.Feed(":Op!op@example.com MODE #Channel +k secret")
	expectLines(t, transport, "MODE #Channel")

	transport.Feed(":irc.example.com 324 Test #Channel +ntk secret", "PING :sync")
	expectLines(t, transport, "PONG :sync")

	channel, err := client.Channel("#Channel")
	require.NoError(t, err)
	assert.Equal(t, "+ntk secret", channel.Mode())
	assert.True(t, channel.HasMode('k'))
}

func TestInput_DCC(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})

	waiter := client.NewWaiter("dcc")
	defer waiter.Close()

	transport.Feed(":Sender!send@example.com PRIVMSG Test :\x01DCC CHAT chat fe80::202:b3ff:fe1e:5329 4000\x01")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	event, err := waiter.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dcc.chat", event.Name())
	require.NotNil(t, event.DCC())
	assert.Equal(t, 4000, event.DCC().Port)
	assert.Equal(t, "fe80::202:b3ff:fe1e:5329", event.DCC().Addr.String())
}

func TestInput_NickChange(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})

	waiter := client.NewWaiter("packet.nick")
	defer waiter.Close()

	transport.Feed(":Test!test@example.com NICK :Renamed")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	event, err := waiter.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, event.User())
	assert.Equal(t, "Renamed", event.User().Nick())
	assert.Equal(t, "Renamed", client.Nick())
}

func TestInput_PrivmsgLineLength(t *testing.T) {
	client, transport := irctest.Register(t, ircbot.Config{})
	client.ISupport().SetToken("LINELEN=300")

	words := strings.Repeat("abcdefghi ", 15)
	require.NoError(t, client.Privmsg("#channel", strings.TrimSpace(words)))

	expectLines(t, transport,
		"PRIVMSG #channel :"+strings.TrimSpace(words[:90]),
		"PRIVMSG #channel :"+strings.TrimSpace(words[90:]),
	)

	client.ISupport().SetToken("LINELEN=203")
	assert.ErrorIs(t, client.Privmsg("#channel", "hello"), ircutil.ErrNoRoom)
	assert.ErrorIs(t, client.Notice("#channel", "hello"), ircutil.ErrNoRoom)

	for _, line := range transport.Written() {
		assert.NotEqual(t, "PRIVMSG #channel :", line)
		assert.NotContains(t, line, "hello")
	}
}
