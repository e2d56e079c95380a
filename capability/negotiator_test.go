package capability_test

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/gissleh/ircbot/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	lines    []string
	upgraded bool
	tlsErr   error
}

func (conn *fakeConn) SendLineNow(line string) error {
	conn.lines = append(conn.lines, line)
	return nil
}

func (conn *fakeConn) StartTLS(config *tls.Config) error {
	if conn.tlsErr != nil {
		return conn.tlsErr
	}

	conn.upgraded = true
	conn.lines = append(conn.lines, "<tls>")
	return nil
}

// feed passes server lines to the negotiator and stops at the first error.
func feed(t *testing.T, n *capability.Negotiator, lines ...string) error {
	t.Helper()

	for _, line := range lines {
		msg, err := ircmsg.ParseLine(line)
		require.NoError(t, err)

		if _, err := n.HandleLine(msg); err != nil {
			return err
		}
	}

	return nil
}

func TestNew_TLSMustBeLast(t *testing.T) {
	table := []struct {
		Name     string
		Handlers []capability.Handler
		Err      error
	}{
		{"Empty", nil, nil},
		{"Last", []capability.Handler{capability.Enable("away-notify", true), &capability.TLSHandler{}}, nil},
		{"Only", []capability.Handler{&capability.TLSHandler{}}, nil},
		{"First", []capability.Handler{&capability.TLSHandler{}, &capability.SASLHandler{}}, capability.ErrTLSNotLast},
		{"Twice", []capability.Handler{&capability.TLSHandler{}, &capability.TLSHandler{}}, capability.ErrTLSNotLast},
	}

	for _, row := range table {
		t.Run(row.Name, func(t *testing.T) {
			_, err := capability.New(&fakeConn{}, row.Handlers, nil)
			assert.Equal(t, row.Err, err)
		})
	}
}

func TestNegotiator_Enable(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{
		capability.Enable("server-time", false),
		capability.Enable("away-notify", true),
		capability.Enable("chghost", true),
	}, nil)
	require.NoError(t, err)

	require.NoError(t, n.Start())
	require.NoError(t, feed(t, n,
		":irc.example.com CAP * LS * :server-time multi-prefix",
		":irc.example.com CAP * LS :away-notify sasl=PLAIN,EXTERNAL",
	))

	assert.Equal(t, []string{"CAP LS", "CAP REQ :server-time", "CAP REQ :away-notify"}, conn.lines)
	assert.Equal(t, "PLAIN,EXTERNAL", n.Available()["sasl"])
	assert.False(t, n.Finished())

	require.NoError(t, feed(t, n, ":irc.example.com CAP * ACK :server-time"))
	assert.False(t, n.Finished())
	require.NoError(t, feed(t, n, ":irc.example.com CAP * NAK :away-notify"))
	assert.True(t, n.Finished())

	assert.Equal(t, "CAP END", conn.lines[len(conn.lines)-1])
	assert.True(t, n.Enabled("server-time"))
	assert.False(t, n.Enabled("away-notify"))
	assert.Equal(t, []string{"server-time"}, n.EnabledCaps())

	// CAP END is only sent once.
	require.NoError(t, feed(t, n, ":irc.example.com CAP * ACK :multi-prefix"))
	assert.Len(t, conn.lines, 4)
}

func TestNegotiator_Unsupported(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{capability.Enable("chghost", false)}, nil)
	require.NoError(t, err)

	err = feed(t, n, ":irc.example.com CAP * LS :server-time")

	var unsupported *capability.UnsupportedCapabilityError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "chghost", unsupported.Capability)
	assert.False(t, n.Finished())
}

func TestNegotiator_NoCAP(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{capability.Enable("chghost", true)}, nil)
	require.NoError(t, err)

	require.NoError(t, n.Start())
	require.NoError(t, feed(t, n, ":irc.example.com 421 * CAP :Unknown command"))

	assert.True(t, n.Finished())
	assert.Equal(t, []string{"CAP LS"}, conn.lines)
}

func TestNegotiator_UnrelatedLines(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{capability.Enable("chghost", true)}, nil)
	require.NoError(t, err)

	msg, err := ircmsg.ParseLine(":irc.example.com NOTICE * :*** Looking up your hostname...")
	require.NoError(t, err)

	handled, err := n.HandleLine(msg)
	assert.NoError(t, err)
	assert.False(t, handled)
}

func TestNegotiator_CapNotify(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{capability.Enable("away-notify", true)}, nil)
	require.NoError(t, err)

	require.NoError(t, feed(t, n,
		":irc.example.com CAP * LS :cap-notify",
		":irc.example.com CAP * NEW :away-notify",
	))
	assert.True(t, n.Finished())
	assert.Equal(t, []string{"CAP END", "CAP REQ :away-notify"}, conn.lines)

	require.NoError(t, feed(t, n, ":irc.example.com CAP Bot ACK :away-notify"))
	assert.True(t, n.Enabled("away-notify"))

	require.NoError(t, feed(t, n, ":irc.example.com CAP Bot DEL :away-notify"))
	assert.False(t, n.Enabled("away-notify"))
}

func TestSASLHandler(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{
		capability.Enable("server-time", true),
		&capability.SASLHandler{Username: "user", Password: "pass"},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, feed(t, n,
		":irc.example.com CAP * LS :server-time sasl",
		":irc.example.com CAP * ACK :server-time",
		":irc.example.com CAP * ACK :sasl",
	))
	assert.Equal(t, "AUTHENTICATE PLAIN", conn.lines[len(conn.lines)-1])
	assert.True(t, n.Enabled("sasl"))

	require.NoError(t, feed(t, n, "AUTHENTICATE +"))
	payload := base64.StdEncoding.EncodeToString([]byte("user\x00user\x00pass"))
	assert.Equal(t, "AUTHENTICATE "+payload, conn.lines[len(conn.lines)-1])

	require.NoError(t, feed(t, n,
		":irc.example.com 900 Bot Bot!user@host user :You are now logged in as user",
		":irc.example.com 903 Bot :SASL authentication successful",
	))
	assert.True(t, n.Finished())
	assert.Equal(t, "CAP END", conn.lines[len(conn.lines)-1])
}

func TestSASLHandler_Failure(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{
		&capability.SASLHandler{Username: "user", Password: "wrong"},
	}, nil)
	require.NoError(t, err)

	err = feed(t, n,
		":irc.example.com CAP * LS :sasl",
		":irc.example.com CAP * ACK :sasl",
		"AUTHENTICATE +",
		":irc.example.com 904 * :SASL authentication failed",
	)

	var authErr *capability.AuthenticationFailedError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "SASL authentication failed", authErr.Message)
	assert.False(t, n.Enabled("sasl"))
	assert.False(t, n.Finished())
}

func TestSASLHandler_IgnoreFailure(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{
		&capability.SASLHandler{Username: "user", Password: "wrong", IgnoreFail: true},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, feed(t, n,
		":irc.example.com CAP * LS :sasl",
		":irc.example.com CAP * ACK :sasl",
		"AUTHENTICATE +",
		":irc.example.com 904 * :SASL authentication failed",
	))

	assert.False(t, n.Enabled("sasl"))
	assert.True(t, n.Finished())
}

func TestSASLHandler_Chunks(t *testing.T) {
	// user\0user\0<password> with 300 bytes of credentials encodes to exactly
	// 400 bytes, which needs a + to mark the end.
	password := strings.Repeat("p", 300-len("user\x00user\x00"))

	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{
		&capability.SASLHandler{Username: "user", Password: password},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, feed(t, n,
		":irc.example.com CAP * LS :sasl",
		":irc.example.com CAP * ACK :sasl",
		"AUTHENTICATE +",
	))

	last := conn.lines[len(conn.lines)-2:]
	assert.Len(t, last[0], len("AUTHENTICATE ")+400)
	assert.Equal(t, "AUTHENTICATE +", last[1])
}

func TestTLSHandler(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{
		capability.Enable("server-time", true),
		&capability.TLSHandler{},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, feed(t, n, ":irc.example.com CAP * LS :server-time tls"))
	assert.Equal(t, []string{"CAP REQ :server-time"}, conn.lines)

	require.NoError(t, feed(t, n,
		":irc.example.com CAP * ACK :server-time",
		":irc.example.com CAP * ACK :tls",
		":irc.example.com 670 * :STARTTLS successful, go ahead with TLS handshake",
	))

	assert.True(t, conn.upgraded)
	assert.True(t, n.Finished())
	assert.Equal(t, []string{"CAP REQ :server-time", "CAP REQ :tls", "STARTTLS", "<tls>", "CAP END"}, conn.lines)
}

func TestTLSHandler_Failures(t *testing.T) {
	conn := &fakeConn{}
	n, err := capability.New(conn, []capability.Handler{&capability.TLSHandler{}}, nil)
	require.NoError(t, err)

	err = feed(t, n,
		":irc.example.com CAP * LS :tls",
		":irc.example.com CAP * ACK :tls",
		":irc.example.com 691 * :STARTTLS failed",
	)
	var unsupported *capability.UnsupportedCapabilityError
	assert.True(t, errors.As(err, &unsupported))

	conn = &fakeConn{tlsErr: errors.New("handshake failed")}
	n, err = capability.New(conn, []capability.Handler{&capability.TLSHandler{IgnoreFail: true}}, nil)
	require.NoError(t, err)

	err = feed(t, n,
		":irc.example.com CAP * LS :tls",
		":irc.example.com CAP * ACK :tls",
		":irc.example.com 670 * :STARTTLS successful",
	)
	assert.EqualError(t, err, "handshake failed")
}
