// Package capability negotiates IRCv3 capabilities with CAP LS, REQ, ACK, NAK
// and END. What happens for each capability is up to a list of handlers, which
// can run their own sub-protocols, like SASL authentication or STARTTLS, before
// the negotiation ends.
package capability

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/ergochat/irc-go/ircmsg"
)

// ErrTLSNotLast is returned by New if a TLSHandler is not the last handler, or
// if there is more than one. Once STARTTLS is sent, nothing else may go over
// the cleartext connection.
var ErrTLSNotLast = errors.New("capability: the tls handler must be the last handler")

// Conn is the part of the connection a negotiator needs.
type Conn interface {
	// SendLineNow writes a line, bypassing any send queue.
	SendLineNow(line string) error
	// StartTLS upgrades the connection. Nothing must be read from the old
	// stream once it returns.
	StartTLS(config *tls.Config) error
}

// A Handler takes care of one capability. Handlers are made for one
// negotiation, and should not be reused.
type Handler interface {
	// Capability gets the capability name, e.g. "sasl".
	Capability() string
	// Done returns true once the handler doesn't need anything more.
	Done() bool
	// HandleLS is called with every capability the server has. Returning an
	// error ends the negotiation.
	HandleLS(n *Negotiator, available map[string]string) error
	// HandleACK is called with the capabilities the server acknowledged.
	HandleACK(n *Negotiator, caps []string) error
	// HandleNAK is called with the capabilities the server refused.
	HandleNAK(n *Negotiator, caps []string) error
	// HandleUnknown gets lines outside of CAP, like AUTHENTICATE and numerics.
	// It returns true if it was for the handler.
	HandleUnknown(n *Negotiator, msg ircmsg.Message) (consumed bool, err error)
}

// UnsupportedCapabilityError is returned when a capability that must be
// enabled is missing or refused.
type UnsupportedCapabilityError struct {
	Capability string
}

func (err *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("capability: server does not support %q", err.Capability)
}

// AuthenticationFailedError is returned when SASL authentication fails. The
// message is the server's explanation.
type AuthenticationFailedError struct {
	Message string
}

func (err *AuthenticationFailedError) Error() string {
	return "capability: authentication failed: " + err.Message
}

func containsCap(caps []string, capability string) bool {
	for _, c := range caps {
		if c == capability {
			return true
		}
	}

	return false
}
