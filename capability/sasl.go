package capability

import (
	"encoding/base64"

	"github.com/emersion/go-sasl"
	"github.com/ergochat/irc-go/ircmsg"
	"github.com/pkg/errors"
)

// The longest AUTHENTICATE payload allowed in one line.
const saslChunkSize = 400

// SASLHandler logs in with SASL PLAIN, using the username for both the
// authorization and authentication identity.
type SASLHandler struct {
	Username   string
	Password   string
	IgnoreFail bool

	done bool
}

func (h *SASLHandler) Capability() string {
	return "sasl"
}

func (h *SASLHandler) Done() bool {
	return h.done
}

func (h *SASLHandler) HandleLS(n *Negotiator, available map[string]string) error {
	if _, ok := available["sasl"]; !ok {
		if h.IgnoreFail {
			h.done = true
			return nil
		}

		return &UnsupportedCapabilityError{Capability: "sasl"}
	}

	return n.Request("sasl")
}

func (h *SASLHandler) HandleACK(n *Negotiator, caps []string) error {
	if !containsCap(caps, "sasl") {
		return nil
	}

	return n.Send("AUTHENTICATE PLAIN")
}

func (h *SASLHandler) HandleNAK(n *Negotiator, caps []string) error {
	if !containsCap(caps, "sasl") {
		return nil
	}
	if h.IgnoreFail {
		h.done = true
		return nil
	}

	return &UnsupportedCapabilityError{Capability: "sasl"}
}

func (h *SASLHandler) HandleUnknown(n *Negotiator, msg ircmsg.Message) (bool, error) {
	switch msg.Command {
	case "AUTHENTICATE":
		if len(msg.Params) == 0 || msg.Params[0] != "+" {
			return false, nil
		}

		return true, h.sendCredentials(n)
	case "900", "908":
		// RPL_LOGGEDIN comes before the 903, RPL_SASLMECHS is informational.
		if msg.Command == "900" {
			h.done = true
		}

		return true, nil
	case "903", "907":
		h.done = true
		return true, nil
	case "902", "904", "905", "906":
		n.Retract("sasl")

		if h.IgnoreFail {
			h.done = true
			return true, nil
		}

		message := ""
		if len(msg.Params) > 0 {
			message = msg.Params[len(msg.Params)-1]
		}

		return true, &AuthenticationFailedError{Message: message}
	}

	return false, nil
}

func (h *SASLHandler) sendCredentials(n *Negotiator) error {
	_, response, err := sasl.NewPlainClient(h.Username, h.Username, h.Password).Start()
	if err != nil {
		return errors.Wrap(err, "capability: sasl")
	}

	encoded := base64.StdEncoding.EncodeToString(response)
	for len(encoded) >= saslChunkSize {
		if err := n.Send("AUTHENTICATE " + encoded[:saslChunkSize]); err != nil {
			return err
		}

		encoded = encoded[saslChunkSize:]
	}

	if encoded == "" {
		return n.Send("AUTHENTICATE +")
	}

	return n.Send("AUTHENTICATE " + encoded)
}
