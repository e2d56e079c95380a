package capability

import (
	"crypto/tls"

	"github.com/ergochat/irc-go/ircmsg"
)

// TLSHandler upgrades a cleartext connection with STARTTLS. It must be the
// last handler.
type TLSHandler struct {
	// Config is passed to the connection's StartTLS, and can be nil.
	Config     *tls.Config
	IgnoreFail bool

	done bool
}

func (h *TLSHandler) Capability() string {
	return "tls"
}

func (h *TLSHandler) Done() bool {
	return h.done
}

func (h *TLSHandler) HandleLS(n *Negotiator, available map[string]string) error {
	if _, ok := available["tls"]; !ok {
		return h.fail()
	}

	return n.Request("tls")
}

func (h *TLSHandler) HandleACK(n *Negotiator, caps []string) error {
	if !containsCap(caps, "tls") {
		return nil
	}

	return n.Send("STARTTLS")
}

func (h *TLSHandler) HandleNAK(n *Negotiator, caps []string) error {
	if !containsCap(caps, "tls") {
		return nil
	}

	return h.fail()
}

func (h *TLSHandler) HandleUnknown(n *Negotiator, msg ircmsg.Message) (bool, error) {
	switch msg.Command {
	case "670":
		if err := n.StartTLS(h); err != nil {
			return true, err
		}

		h.done = true
		return true, nil
	case "691":
		n.Retract("tls")
		return true, h.fail()
	}

	return false, nil
}

func (h *TLSHandler) fail() error {
	if h.IgnoreFail {
		h.done = true
		return nil
	}

	return &UnsupportedCapabilityError{Capability: "tls"}
}
