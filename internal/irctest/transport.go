package irctest

import (
	"crypto/tls"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrTimeout is returned by Transport.Next if no line was written in time.
var ErrTimeout = errors.New("irctest: timed out waiting for line")

// ErrClosed is returned when feeding a line to a closed transport.
var ErrClosed = errors.New("irctest: transport closed")

// A Transport is an in-memory connection to a client. Lines given to Feed are
// read by the client, and lines the client writes are recorded.
type Transport struct {
	incoming chan string
	writes   chan string
	closed   chan struct{}

	mutex     sync.Mutex
	written   []string
	upgraded  bool
	closeOnce sync.Once
	readErr   error
	readFails int
}

// NewTransport creates a transport.
func NewTransport() *Transport {
	return &Transport{
		incoming: make(chan string, 256),
		writes:   make(chan string, 256),
		closed:   make(chan struct{}),
	}
}

// Feed queues lines for the client to read.
func (t *Transport) Feed(lines ...string) {
	for _, line := range lines {
		select {
		case t.incoming <- line:
		case <-t.closed:
			return
		}
	}
}

// ReadLine is called by the client.
func (t *Transport) ReadLine() (string, error) {
	t.mutex.Lock()
	if t.readFails > 0 {
		t.readFails--
		err := t.readErr
		t.mutex.Unlock()
		return "", err
	}
	t.mutex.Unlock()

	select {
	case line := <-t.incoming:
		return line, nil
	case <-t.closed:
		return "", io.EOF
	}
}

// WriteLine is called by the client.
func (t *Transport) WriteLine(line string) error {
	select {
	case <-t.closed:
		return io.ErrClosedPipe
	default:
	}

	t.mutex.Lock()
	t.written = append(t.written, line)
	t.mutex.Unlock()

	select {
	case t.writes <- line:
	default:
	}

	return nil
}

// Close ends the stream, and the client's next read gets io.EOF.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})

	return nil
}

// StartTLS only marks the transport as upgraded.
func (t *Transport) StartTLS(*tls.Config) error {
	t.mutex.Lock()
	t.upgraded = true
	t.mutex.Unlock()

	return nil
}

// SetReadErr makes the next read fail with the error.
func (t *Transport) SetReadErr(err error) {
	t.FailReads(err, 1)
}

// FailReads makes the next n reads fail with the error.
func (t *Transport) FailReads(err error, n int) {
	t.mutex.Lock()
	t.readErr = err
	t.readFails = n
	t.mutex.Unlock()
}

// Next waits for the next line written by the client.
func (t *Transport) Next(timeout time.Duration) (string, error) {
	select {
	case line := <-t.writes:
		return line, nil
	case <-time.After(timeout):
		return "", ErrTimeout
	}
}

// Expect waits for a written line equal to line, skipping others. It returns
// the skipped lines if it times out.
func (t *Transport) Expect(line string, timeout time.Duration) ([]string, error) {
	deadline := time.Now().Add(timeout)
	skipped := make([]string, 0, 4)

	for {
		next, err := t.Next(time.Until(deadline))
		if err != nil {
			return skipped, err
		}
		if next == line {
			return skipped, nil
		}

		skipped = append(skipped, next)
	}
}

// Written gets every line the client has written.
func (t *Transport) Written() []string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return append([]string{}, t.written...)
}

// Upgraded returns true after StartTLS.
func (t *Transport) Upgraded() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.upgraded
}

// Closed returns true after Close.
func (t *Transport) Closed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}
