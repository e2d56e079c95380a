package capability

import (
	"sort"
	"strings"
	"sync"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/inconshreveable/log15"
)

// A Negotiator runs the capability negotiation for one connection. HandleLine
// must only be called from the goroutine that reads the connection, but
// Enabled and the other getters can be used anywhere.
type Negotiator struct {
	conn     Conn
	handlers []Handler
	logger   log15.Logger

	mutex       sync.RWMutex
	available   map[string]string
	enabled     map[string]bool
	listing     map[string]string
	listed      bool
	tlsStarted  bool
	unsupported bool
	finished    bool
}

// New creates a negotiator. The handlers are run in order, but a TLSHandler
// must be the last one, and it will only be started once every handler before
// it is done.
func New(conn Conn, handlers []Handler, logger log15.Logger) (*Negotiator, error) {
	for i, handler := range handlers {
		if _, ok := handler.(*TLSHandler); ok && i != len(handlers)-1 {
			return nil, ErrTLSNotLast
		}
	}

	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}

	return &Negotiator{
		conn:      conn,
		handlers:  handlers,
		logger:    logger.New("component", "capability"),
		available: make(map[string]string),
		enabled:   make(map[string]bool),
	}, nil
}

// Start sends CAP LS.
func (n *Negotiator) Start() error {
	return n.conn.SendLineNow("CAP LS")
}

// Finished returns true once CAP END has been sent, or once it turned out that
// the server doesn't do CAP at all.
func (n *Negotiator) Finished() bool {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return n.finished
}

// Enabled returns true if the capability has been acknowledged by the server
// and not retracted since.
func (n *Negotiator) Enabled(capability string) bool {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return n.enabled[capability]
}

// EnabledCaps lists the enabled capabilities.
func (n *Negotiator) EnabledCaps() []string {
	n.mutex.RLock()
	caps := make([]string, 0, len(n.enabled))
	for capability := range n.enabled {
		caps = append(caps, capability)
	}
	n.mutex.RUnlock()

	sort.Strings(caps)

	return caps
}

// Available gets the capabilities the server listed, with their values.
func (n *Negotiator) Available() map[string]string {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	available := make(map[string]string, len(n.available))
	for key, value := range n.available {
		available[key] = value
	}

	return available
}

// Send sends a line right away.
func (n *Negotiator) Send(line string) error {
	return n.conn.SendLineNow(line)
}

// Request sends CAP REQ for one capability.
func (n *Negotiator) Request(capability string) error {
	n.logger.Debug("requesting capability", "cap", capability)

	return n.conn.SendLineNow("CAP REQ :" + capability)
}

// Retract marks a capability as not enabled.
func (n *Negotiator) Retract(capability string) {
	n.mutex.Lock()
	delete(n.enabled, capability)
	n.mutex.Unlock()
}

// StartTLS upgrades the connection.
func (n *Negotiator) StartTLS(handler *TLSHandler) error {
	n.logger.Debug("upgrading connection")

	return n.conn.StartTLS(handler.Config)
}

// HandleLine handles a line from the server. It returns false for lines that
// are not part of the negotiation, which should be handled as usual. A
// returned error means the negotiation failed, and the connection should be
// closed.
func (n *Negotiator) HandleLine(msg ircmsg.Message) (handled bool, err error) {
	command := strings.ToUpper(msg.Command)

	switch {
	case command == "CAP" && len(msg.Params) >= 2:
		return true, n.handleCAP(msg)
	case command == "421" && len(msg.Params) >= 2 && strings.EqualFold(msg.Params[1], "CAP"):
		if n.Finished() {
			return false, nil
		}

		n.logger.Info("server does not support capability negotiation")
		n.mutex.Lock()
		n.unsupported = true
		n.mutex.Unlock()

		return true, n.handleLS(map[string]string{})
	}

	if n.Finished() {
		return false, nil
	}

	for _, handler := range n.pending() {
		consumed, err := handler.HandleUnknown(n, msg)
		if err != nil {
			return true, err
		}
		if consumed {
			return true, n.advance()
		}
	}

	return false, nil
}

func (n *Negotiator) handleCAP(msg ircmsg.Message) error {
	subCommand := strings.ToUpper(msg.Params[1])
	caps := strings.Fields(msg.Params[len(msg.Params)-1])
	if len(msg.Params) < 3 {
		caps = nil
	}

	switch subCommand {
	case "LS":
		n.mutex.Lock()
		if n.listed {
			n.mutex.Unlock()
			return nil
		}
		if n.listing == nil {
			n.listing = make(map[string]string, len(caps))
		}
		for _, token := range caps {
			key, value, _ := strings.Cut(token, "=")
			n.listing[key] = value
		}
		more := len(msg.Params) >= 4 && msg.Params[2] == "*"
		available := n.listing
		if !more {
			n.listed = true
			n.listing = nil
		}
		n.mutex.Unlock()

		if more {
			return nil
		}

		return n.handleLS(available)
	case "ACK":
		n.mutex.Lock()
		for _, capability := range caps {
			if strings.HasPrefix(capability, "-") {
				delete(n.enabled, capability[1:])
			} else {
				n.enabled[capability] = true
			}
		}
		n.mutex.Unlock()

		n.logger.Debug("capabilities acknowledged", "caps", strings.Join(caps, " "))

		if n.Finished() {
			return nil
		}

		for _, handler := range n.pending() {
			if err := handler.HandleACK(n, caps); err != nil {
				return err
			}
		}

		return n.advance()
	case "NAK":
		n.mutex.Lock()
		for _, capability := range caps {
			delete(n.enabled, capability)
		}
		n.mutex.Unlock()

		n.logger.Debug("capabilities refused", "caps", strings.Join(caps, " "))

		if n.Finished() {
			return nil
		}

		for _, handler := range n.pending() {
			if err := handler.HandleNAK(n, caps); err != nil {
				return err
			}
		}

		return n.advance()
	case "NEW":
		n.mutex.Lock()
		for _, token := range caps {
			key, value, _ := strings.Cut(token, "=")
			n.available[key] = value
		}
		n.mutex.Unlock()

		requests := make([]string, 0, len(caps))
		for _, handler := range n.handlers {
			if _, ok := handler.(*EnableHandler); ok && !n.Enabled(handler.Capability()) && containsCap(capNames(caps), handler.Capability()) {
				requests = append(requests, handler.Capability())
			}
		}
		if len(requests) > 0 {
			return n.conn.SendLineNow("CAP REQ :" + strings.Join(requests, " "))
		}
	case "DEL":
		n.mutex.Lock()
		for _, capability := range caps {
			delete(n.available, capability)
			delete(n.enabled, capability)
		}
		n.mutex.Unlock()
	}

	return nil
}

func (n *Negotiator) handleLS(available map[string]string) error {
	n.mutex.Lock()
	n.available = available
	n.mutex.Unlock()

	n.logger.Debug("capabilities listed", "count", len(available))

	for _, handler := range n.handlers {
		if _, ok := handler.(*TLSHandler); ok {
			continue
		}

		if err := handler.HandleLS(n, n.Available()); err != nil {
			return err
		}
	}

	return n.advance()
}

// advance starts the TLS handler once the others are done, and ends the
// negotiation when all are.
func (n *Negotiator) advance() error {
	n.mutex.RLock()
	listed := n.listed || n.unsupported
	n.mutex.RUnlock()
	if !listed {
		return nil
	}

	pending := n.pending()

	if len(pending) == 1 {
		if handler, ok := pending[0].(*TLSHandler); ok {
			n.mutex.Lock()
			start := !n.tlsStarted
			n.tlsStarted = true
			n.mutex.Unlock()

			if start {
				if err := handler.HandleLS(n, n.Available()); err != nil {
					return err
				}

				pending = n.pending()
			}
		}
	}

	if len(pending) > 0 {
		return nil
	}

	n.mutex.Lock()
	if n.finished {
		n.mutex.Unlock()
		return nil
	}
	n.finished = true
	unsupported := n.unsupported
	n.mutex.Unlock()

	n.logger.Debug("capability negotiation finished")

	if unsupported {
		return nil
	}

	return n.conn.SendLineNow("CAP END")
}

func (n *Negotiator) pending() []Handler {
	pending := make([]Handler, 0, len(n.handlers))
	for _, handler := range n.handlers {
		if !handler.Done() {
			pending = append(pending, handler)
		}
	}

	return pending
}

func capNames(tokens []string) []string {
	names := make([]string, 0, len(tokens))
	for _, token := range tokens {
		name, _, _ := strings.Cut(token, "=")
		names = append(names, name)
	}

	return names
}
