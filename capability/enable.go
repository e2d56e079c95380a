package capability

import "github.com/ergochat/irc-go/ircmsg"

// EnableHandler requests a capability that needs nothing more than an ACK.
type EnableHandler struct {
	Cap        string
	IgnoreFail bool

	done bool
}

// Enable creates an EnableHandler.
func Enable(capability string, ignoreFail bool) *EnableHandler {
	return &EnableHandler{Cap: capability, IgnoreFail: ignoreFail}
}

func (h *EnableHandler) Capability() string {
	return h.Cap
}

func (h *EnableHandler) Done() bool {
	return h.done
}

func (h *EnableHandler) HandleLS(n *Negotiator, available map[string]string) error {
	if _, ok := available[h.Cap]; !ok {
		return h.fail()
	}

	return n.Request(h.Cap)
}

func (h *EnableHandler) HandleACK(n *Negotiator, caps []string) error {
	if containsCap(caps, h.Cap) {
		h.done = true
	}

	return nil
}

func (h *EnableHandler) HandleNAK(n *Negotiator, caps []string) error {
	if containsCap(caps, h.Cap) {
		return h.fail()
	}

	return nil
}

func (h *EnableHandler) HandleUnknown(n *Negotiator, msg ircmsg.Message) (bool, error) {
	return false, nil
}

func (h *EnableHandler) fail() error {
	if h.IgnoreFail {
		h.done = true
		return nil
	}

	return &UnsupportedCapabilityError{Capability: h.Cap}
}
