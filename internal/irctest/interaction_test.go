package irctest_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gissleh/ircbot"
	"github.com/gissleh/ircbot/internal/irctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteraction(t *testing.T) {
	interaction := irctest.Interaction{
		Strict: true,
		Lines: []irctest.InteractionLine{
			{Client: "FIRST MESSAGE"},
			{Server: "SERVER MESSAGE"},
			{Client: "SECOND *"},
		},
	}

	addr, err := interaction.Listen()
	if err != nil {
		t.Fatal("Listen:", err)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal("Dial:", err)
	}

	_, err = conn.Write([]byte("FIRST MESSAGE\r\n"))
	if err != nil {
		t.Fatal("Write:", err)
	}

	buffer := make([]byte, 64)
	n, err := conn.Read(buffer)
	if err != nil {
		t.Fatal("Read:", err)
	}
	if string(buffer[:n]) != "SERVER MESSAGE\r\n" {
		t.Fatal("Read not correct:", string(buffer[:n]))
	}

	_, err = conn.Write([]byte("SECOND MESSAGE\r\n"))
	if err != nil {
		t.Fatal("Write 2:", err)
	}

	interaction.Wait()

	if interaction.Failure != nil {
		t.Error("Index:", interaction.Failure.Index)
		t.Error("Result:", interaction.Failure.Result)
		t.Error("NetErr:", interaction.Failure.NetErr)
		t.FailNow()
	}
}

func TestInteraction_Strict(t *testing.T) {
	interaction := irctest.Interaction{
		Strict: true,
		Lines: []irctest.InteractionLine{
			{Client: "EXPECTED"},
		},
	}

	addr, err := interaction.Listen()
	require.NoError(t, err)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("UNEXPECTED\r\n"))
	require.NoError(t, err)

	interaction.Wait()

	require.NotNil(t, interaction.Failure)
	assert.Equal(t, 0, interaction.Failure.Index)
	assert.Equal(t, "UNEXPECTED", interaction.Failure.Result)
	assert.EqualError(t, interaction.Err(), `irctest: line 0: expected "EXPECTED", got "UNEXPECTED"`)
}

func TestInteraction_Run(t *testing.T) {
	client, err := ircbot.New(context.Background(), ircbot.Config{
		Nick:       "Test",
		DisableCAP: true,
		Logger:     irctest.QuietLogger(),
	})
	require.NoError(t, err)
	defer client.Destroy()

	interaction := irctest.Interaction{
		Strict: true,
		Lines: []irctest.InteractionLine{
			{Client: "NICK Test"},
			{Client: "USER *"},
			{Server: ":irc.example.com 001 Test :Welcome"},
			{Client: "WHO Test"},
			{Server: ":irc.example.com PING :123"},
			{Client: "PONG :123"},
		},
	}

	transport := irctest.NewTransport()
	interaction.Run(transport)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()

	require.NoError(t, client.Start(ctx, transport))
	require.NoError(t, interaction.Err())
	assert.Equal(t, []string{"NICK Test", "USER IrcUser 8 * :...", "WHO Test", "PONG :123"}, interaction.Log)
}

func TestInteraction_RunTimeout(t *testing.T) {
	interaction := irctest.Interaction{
		Lines: []irctest.InteractionLine{
			{Client: "NEVER"},
		},
	}

	interaction.Run(irctest.NewTransport())

	assert.ErrorIs(t, interaction.Err(), irctest.ErrTimeout)
}
