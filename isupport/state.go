package isupport

// State is a copy of everything an ISupport knows, safe to keep around after
// the ISupport changes.
type State struct {
	Raw          map[string]string `json:"raw"`
	Prefixes     map[rune]rune     `json:"-"`
	ModeOrder    string            `json:"modeOrder"`
	PrefixOrder  string            `json:"prefixOrder"`
	ChannelModes []string          `json:"channelModes"`
}

// Copy makes a deep copy of the state.
func (state *State) Copy() *State {
	stateCopy := *state
	stateCopy.Raw = make(map[string]string, len(state.Raw))
	for key, value := range state.Raw {
		stateCopy.Raw[key] = value
	}

	stateCopy.Prefixes = make(map[rune]rune, len(state.Prefixes))
	for prefix, mode := range state.Prefixes {
		stateCopy.Prefixes[prefix] = mode
	}

	stateCopy.ChannelModes = append([]string(nil), state.ChannelModes...)

	return &stateCopy
}
