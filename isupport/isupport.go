package isupport

import (
	"strconv"
	"strings"
	"sync"
)

// Values used until the server says otherwise in its 005 replies.
const (
	DefaultPrefix      = "(qaohv)~&@%+"
	DefaultChanTypes   = "#&"
	DefaultChanModes   = "beI,k,l,imnpst"
	DefaultCaseMapping = "rfc1459"
	DefaultLineLen     = 512
)

// ISupport is a data structure containing server instructions about
// supported modes, encodings, lengths, prefixes, and so on. It is built
// from the 005 numeric's data, and has helper methods that makes sense
// of it. It's thread-safe through a reader/writer lock, so the locks will
// only block in the short duration post-registration when the 005s come in.
// Use New to get one with the defaults filled in.
type ISupport struct {
	lock  sync.RWMutex
	state State
}

// New creates an ISupport with the defaults filled in.
func New() *ISupport {
	isupport := &ISupport{}
	isupport.Reset()

	return isupport
}

// Get gets an isupport key. This is unprocessed data, and a helper should
// be used if available.
func (isupport *ISupport) Get(key string) (value string, ok bool) {
	isupport.lock.RLock()
	value, ok = isupport.state.Raw[strings.ToUpper(key)]
	isupport.lock.RUnlock()
	return
}

// Number gets a key and converts it to a number.
func (isupport *ISupport) Number(key string) (value int, ok bool) {
	strValue, ok := isupport.Get(key)
	if !ok {
		return 0, ok
	}

	value, err := strconv.Atoi(strValue)
	if err != nil {
		return value, false
	}

	return value, ok
}

// ParsePrefixedNick parses a full nick into its components.
// Example: "@+HammerTime62" -> `"HammerTime62", "ov", "@+"`
func (isupport *ISupport) ParsePrefixedNick(fullnick string) (nick, modes, prefixes string) {
	isupport.lock.RLock()
	defer isupport.lock.RUnlock()

	if fullnick == "" || isupport.state.Prefixes == nil {
		return fullnick, "", ""
	}

	for i, ch := range fullnick {
		if mode, ok := isupport.state.Prefixes[ch]; ok {
			modes += string(mode)
			prefixes += string(ch)
		} else {
			nick = fullnick[i:]
			break
		}
	}

	return nick, modes, prefixes
}

// Mode gets the mode for the prefix.
func (isupport *ISupport) Mode(prefix rune) rune {
	isupport.lock.RLock()
	defer isupport.lock.RUnlock()

	return isupport.state.Prefixes[prefix]
}

// Prefix gets the prefix for the mode. It's a bit slower
// than the other way around, but is a far less frequently
// used.
func (isupport *ISupport) Prefix(mode rune) rune {
	isupport.lock.RLock()
	defer isupport.lock.RUnlock()

	for prefix, mappedMode := range isupport.state.Prefixes {
		if mappedMode == mode {
			return prefix
		}
	}

	return rune(0)
}

// IsChannel returns whether the target name is a channel.
func (isupport *ISupport) IsChannel(targetName string) bool {
	if targetName == "" {
		return false
	}

	isupport.lock.RLock()
	defer isupport.lock.RUnlock()

	chanTypes, ok := isupport.state.Raw["CHANTYPES"]
	if !ok {
		chanTypes = DefaultChanTypes
	}

	return strings.ContainsRune(chanTypes, rune(targetName[0]))
}

// IsPermissionMode returns whether the flag is a permission mode
func (isupport *ISupport) IsPermissionMode(flag rune) bool {
	isupport.lock.RLock()
	defer isupport.lock.RUnlock()

	return strings.ContainsRune(isupport.state.ModeOrder, flag)
}

// ModeTakesArgument returns true if the mode takes an argument
func (isupport *ISupport) ModeTakesArgument(flag rune, plus bool) bool {
	isupport.lock.RLock()
	defer isupport.lock.RUnlock()

	// Permission modes always take an argument.
	if strings.ContainsRune(isupport.state.ModeOrder, flag) {
		return true
	}

	modes := isupport.state.ChannelModes
	if len(modes) < 3 {
		return false
	}

	// Modes in category A and B always takes an argument
	if strings.ContainsRune(modes[0], flag) || strings.ContainsRune(modes[1], flag) {
		return true
	}

	// Modes in category C only takes one when added
	if plus && strings.ContainsRune(modes[2], flag) {
		return true
	}

	// Modes in category D and outside never does
	return false
}

// IsListMode returns true for modes in the first CHANMODES category, like
// bans, which add to a list instead of changing the channel mode.
func (isupport *ISupport) IsListMode(flag rune) bool {
	isupport.lock.RLock()
	defer isupport.lock.RUnlock()

	modes := isupport.state.ChannelModes
	return len(modes) > 0 && strings.ContainsRune(modes[0], flag)
}

// CaseMapping returns the server's CASEMAPPING token, lowercased.
func (isupport *ISupport) CaseMapping() string {
	value, ok := isupport.Get("CASEMAPPING")
	if !ok || value == "" {
		return DefaultCaseMapping
	}

	return strings.ToLower(value)
}

// LineLength gets the longest line the server takes, without the CR-LF.
func (isupport *ISupport) LineLength() int {
	value, ok := isupport.Number("LINELEN")
	if !ok || value <= 2 {
		value = DefaultLineLen
	}

	return value - 2
}

// Set sets an isupport key, and related structs. This should only be used
// if a 005 packet contains the Key-Value pair or if it can be "polyfilled"
// in some other way.
func (isupport *ISupport) Set(key, value string) {
	key = strings.ToUpper(key)

	isupport.lock.Lock()
	isupport.set(key, value)
	isupport.lock.Unlock()
}

// SetToken parses and sets a token from a 005 reply, like `PREFIX=(ov)@+`
// or `WHOX`. Tokens starting with "-" remove the key.
func (isupport *ISupport) SetToken(token string) {
	if strings.HasPrefix(token, "-") {
		isupport.lock.Lock()
		delete(isupport.state.Raw, strings.ToUpper(token[1:]))
		isupport.lock.Unlock()
		return
	}

	kvpair := strings.SplitN(token, "=", 2)
	if len(kvpair) == 2 {
		isupport.Set(kvpair[0], kvpair[1])
	} else {
		isupport.Set(kvpair[0], "")
	}
}

// set must be called with the write lock held.
func (isupport *ISupport) set(key, value string) {
	if isupport.state.Raw == nil {
		isupport.state.Raw = make(map[string]string, 32)
	}

	isupport.state.Raw[key] = value

	switch key {
	case "PREFIX": // PREFIX=(ov)@+
		{
			if !strings.HasPrefix(value, "(") {
				break
			}

			split := strings.SplitN(value[1:], ")", 2)
			if len(split) != 2 || len(split[0]) != len(split[1]) {
				break
			}

			isupport.state.PrefixOrder = split[1]
			isupport.state.ModeOrder = split[0]
			isupport.state.Prefixes = make(map[rune]rune, len(split[0]))
			for i, ch := range split[0] {
				isupport.state.Prefixes[rune(split[1][i])] = ch
			}
		}
	case "CHANMODES": // CHANMODES=eIbq,k,flj,CFLNPQcgimnprstz
		{
			isupport.state.ChannelModes = strings.Split(value, ",")
		}
	}
}

// State gets a copy of the isupport state.
func (isupport *ISupport) State() *State {
	isupport.lock.RLock()
	defer isupport.lock.RUnlock()

	return isupport.state.Copy()
}

// Reset clears everything and restores the defaults.
func (isupport *ISupport) Reset() {
	isupport.lock.Lock()
	isupport.state.PrefixOrder = ""
	isupport.state.ModeOrder = ""
	isupport.state.Prefixes = nil
	isupport.state.ChannelModes = nil

	for key := range isupport.state.Raw {
		delete(isupport.state.Raw, key)
	}

	isupport.set("PREFIX", DefaultPrefix)
	isupport.set("CHANMODES", DefaultChanModes)
	isupport.lock.Unlock()
}
