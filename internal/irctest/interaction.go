package irctest

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gissleh/ircbot"
)

// LineTimeout is how long an Interaction waits for each line.
const LineTimeout = time.Second * 2

// An Interaction is a scripted server. Lines with Server set are sent to the
// client, and lines with Client set must be read from it. A Client line ending
// with "*" matches by prefix. Unless Strict is set, client lines that don't
// match are skipped. The script can run over TCP with Listen, or over an
// in-memory Transport with Run.
type Interaction struct {
	wg sync.WaitGroup

	Strict  bool
	Lines   []InteractionLine
	Log     []string
	Failure *InteractionFailure
}

// peer is the server's end of a connection.
type peer interface {
	send(line string) error
	receive() (string, error)
}

// Listen accepts one client on a random local port, and runs the script
// against it in a separate goroutine.
func (interaction *Interaction) Listen() (addr string, err error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}

	interaction.wg.Add(1)
	go func() {
		defer interaction.wg.Done()
		defer listener.Close()

		conn, err := listener.Accept()
		if err != nil {
			interaction.Failure = &InteractionFailure{Index: -1, NetErr: err}
			return
		}

		p := &netPeer{conn: conn, transport: ircbot.NewTransport(conn, "")}
		defer p.transport.Close()

		interaction.run(p)
	}()

	return listener.Addr().String(), nil
}

// Run runs the script against a client reading from the transport, in a
// separate goroutine. Start the client on the transport after calling it.
func (interaction *Interaction) Run(transport *Transport) {
	interaction.wg.Add(1)
	go func() {
		defer interaction.wg.Done()

		interaction.run(transportPeer{transport: transport})
	}()
}

// Wait waits for the script to end. It's safe to check Failure after that.
func (interaction *Interaction) Wait() {
	interaction.wg.Wait()
}

// Err waits for the script to end and returns the failure, if any.
func (interaction *Interaction) Err() error {
	interaction.Wait()

	if interaction.Failure == nil {
		return nil
	}

	return interaction.Failure
}

func (interaction *Interaction) run(p peer) {
	lines := append([]InteractionLine{}, interaction.Lines...)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch {
		case line.Server != "":
			if err := p.send(line.Server); err != nil {
				interaction.Failure = &InteractionFailure{Index: i, NetErr: err}
				return
			}
		case line.Client != "":
			input, err := p.receive()
			if err != nil {
				interaction.Failure = &InteractionFailure{Index: i, NetErr: err}
				return
			}

			interaction.Log = append(interaction.Log, input)

			if !line.matches(input) {
				if !interaction.Strict {
					i--
					continue
				}

				interaction.Failure = &InteractionFailure{Index: i, Expected: line.Client, Result: input}
				return
			}
		case line.Callback != nil:
			if err := line.Callback(); err != nil {
				interaction.Failure = &InteractionFailure{Index: i, CBErr: err}
				return
			}
		}
	}
}

// InteractionFailure tells where and why the script stopped.
type InteractionFailure struct {
	Index    int
	Expected string
	Result   string
	NetErr   error
	CBErr    error
}

func (failure *InteractionFailure) Error() string {
	switch {
	case failure.NetErr != nil:
		return fmt.Sprintf("irctest: line %d: %v", failure.Index, failure.NetErr)
	case failure.CBErr != nil:
		return fmt.Sprintf("irctest: line %d: callback: %v", failure.Index, failure.CBErr)
	default:
		return fmt.Sprintf("irctest: line %d: expected %q, got %q", failure.Index, failure.Expected, failure.Result)
	}
}

// InteractionLine is part of an interaction, whether it is a line
// that is sent to a client or a line expected from a client.
type InteractionLine struct {
	Client   string
	Server   string
	Callback func() error
}

func (line InteractionLine) matches(input string) bool {
	if strings.HasSuffix(line.Client, "*") {
		return strings.HasPrefix(input, line.Client[:len(line.Client)-1])
	}

	return line.Client == input
}

// netPeer reads and writes lines with the same transport the client uses,
// with a deadline on each read.
type netPeer struct {
	conn      net.Conn
	transport ircbot.Transport
}

func (p *netPeer) send(line string) error {
	return p.transport.WriteLine(line)
}

func (p *netPeer) receive() (string, error) {
	_ = p.conn.SetReadDeadline(time.Now().Add(LineTimeout))
	return p.transport.ReadLine()
}

type transportPeer struct {
	transport *Transport
}

func (p transportPeer) send(line string) error {
	if p.transport.Closed() {
		return ErrClosed
	}

	p.transport.Feed(line)
	return nil
}

func (p transportPeer) receive() (string, error) {
	return p.transport.Next(LineTimeout)
}
