package ircbot

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircreader"
	"github.com/pkg/errors"
)

// A Transport carries lines to and from the server. ReadLine is only called
// from one goroutine at a time, and never while StartTLS runs. WriteLine may
// be called from any goroutine.
type Transport interface {
	// ReadLine reads a line without the line ending. It returns io.EOF or
	// net.ErrClosed once the stream is gone.
	ReadLine() (string, error)
	// WriteLine writes a line, adding the line ending.
	WriteLine(line string) error
	// Close closes the stream. It's safe to call more than once.
	Close() error
	// StartTLS upgrades the stream in place.
	StartTLS(config *tls.Config) error
}

const writeTimeout = time.Second * 30

type netTransport struct {
	mutex      sync.Mutex
	conn       net.Conn
	reader     *ircreader.Reader
	serverName string
}

// Dial connects to addr, which must include the port. If secure is true, the
// connection uses TLS from the start. The config may be nil.
func Dial(ctx context.Context, addr string, secure bool, config *tls.Config) (Transport, error) {
	dialer := &net.Dialer{Timeout: time.Second * 30}
	serverName := addr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		serverName = host
	}

	var conn net.Conn
	var err error
	if secure {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: withServerName(config, serverName)}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "irc: could not connect to %s", addr)
	}

	return NewTransport(conn, serverName), nil
}

// NewTransport wraps an established connection. The server name is used to
// verify the certificate on STARTTLS.
func NewTransport(conn net.Conn, serverName string) Transport {
	return &netTransport{
		conn:       conn,
		reader:     ircreader.NewIRCReader(conn),
		serverName: serverName,
	}
}

func (t *netTransport) ReadLine() (string, error) {
	line, err := t.reader.ReadLine()
	if err != nil {
		return "", err
	}

	return strings.TrimSuffix(string(line), "\r"), nil
}

func (t *netTransport) WriteLine(line string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := t.conn.Write([]byte(line + "\r\n"))
	if err != nil {
		return errors.Wrap(err, "irc: write failed")
	}

	return nil
}

func (t *netTransport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.conn.Close()
}

func (t *netTransport) StartTLS(config *tls.Config) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	tlsConn := tls.Client(t.conn, withServerName(config, t.serverName))
	if err := tlsConn.Handshake(); err != nil {
		return errors.Wrap(err, "irc: tls handshake failed")
	}

	t.conn = tlsConn
	t.reader = ircreader.NewIRCReader(tlsConn)

	return nil
}

func withServerName(config *tls.Config, serverName string) *tls.Config {
	if config == nil {
		return &tls.Config{ServerName: serverName}
	}
	if config.ServerName == "" && !config.InsecureSkipVerify {
		config = config.Clone()
		config.ServerName = serverName
	}

	return config
}
