package isupport_test

import (
	"strings"
	"testing"

	"github.com/gissleh/ircbot/isupport"
	"github.com/stretchr/testify/assert"
)

var isupportMessages = "FNC SAFELIST ELIST=CTU MONITOR=100 WHOX ETRACE KNOCK CHANTYPES=#& EXCEPTS INVEX CHANMODES=eIbq,k,flj,CFLNPQcgimnprstz CHANLIMIT=#&:15 PREFIX=(aovh)~@+% MAXLIST=bqeI:100 MODES=4 NETWORK=TestServer STATUSMSG=@+% CALLERID=g CASEMAPPING=rfc1459 NICKLEN=30 MAXNICKLEN=31 CHANNELLEN=50 TOPICLEN=390 DEAF=D TARGMAX=NAMES:1,LIST:1,KICK:1,WHOIS:1,PRIVMSG:4,NOTICE:4,ACCEPT:,MONITOR: EXTBAN=$,&acjmorsuxz| CLIENTVER=3.0"

var is = isupport.New()

func init() {
	for _, token := range strings.Split(isupportMessages, " ") {
		is.SetToken(token)
	}
}

func TestISupport_ParsePrefixedNick(t *testing.T) {
	table := []struct {
		Full     string
		Prefixes string
		Modes    string
		Nick     string
	}{
		{"User", "", "", "User"},
		{"+User", "+", "v", "User"},
		{"@%+User", "@%+", "ohv", "User"},
		{"~User", "~", "a", "User"},
	}

	for _, row := range table {
		t.Run(row.Full, func(t *testing.T) {
			nick, modes, prefixes := is.ParsePrefixedNick(row.Full)

			assert.Equal(t, row.Nick, nick)
			assert.Equal(t, row.Modes, modes)
			assert.Equal(t, row.Prefixes, prefixes)
		})
	}
}

func TestISupport_IsChannel(t *testing.T) {
	table := map[string]bool{
		"#Test":        true,
		"&Test":        true,
		"User":         false,
		"+Stuff":       false,
		"#TestAndSuch": true,
		"@astrwef":     false,
		"":             false,
	}

	for channelName, isChannel := range table {
		t.Run(channelName, func(t *testing.T) {
			assert.Equal(t, isChannel, is.IsChannel(channelName))
		})
	}
}

func TestISupport_IsPermissionMode(t *testing.T) {
	table := map[rune]bool{
		'#': false,
		'+': false,
		'o': true,
		'v': true,
		'h': true,
		'a': true,
		'g': false,
		'p': false,
	}

	for flag, expected := range table {
		t.Run(string(flag), func(t *testing.T) {
			assert.Equal(t, expected, is.IsPermissionMode(flag))
		})
	}
}

func TestISupport_ModeTakesArgument(t *testing.T) {
	table := []struct {
		Flag     rune
		Plus     bool
		Expected bool
	}{
		{'o', true, true},
		{'o', false, true},
		{'b', false, true},
		{'k', false, true},
		{'f', true, true},
		{'f', false, false},
		{'n', true, false},
		{'x', true, false},
	}

	for _, row := range table {
		t.Run(string(row.Flag), func(t *testing.T) {
			assert.Equal(t, row.Expected, is.ModeTakesArgument(row.Flag, row.Plus))
		})
	}
}

func TestISupport_Defaults(t *testing.T) {
	defaults := isupport.New()

	nick, modes, prefixes := defaults.ParsePrefixedNick("~&@%+Someone")
	assert.Equal(t, "Someone", nick)
	assert.Equal(t, "qaohv", modes)
	assert.Equal(t, "~&@%+", prefixes)
	assert.Equal(t, "rfc1459", defaults.CaseMapping())
	assert.True(t, defaults.IsChannel("#test"))
	assert.True(t, defaults.ModeTakesArgument('l', true))
	assert.False(t, defaults.ModeTakesArgument('l', false))

	defaults.SetToken("CASEMAPPING=ascii")
	defaults.SetToken("NICKLEN=16")
	assert.Equal(t, "ascii", defaults.CaseMapping())

	nicklen, ok := defaults.Number("nicklen")
	assert.True(t, ok)
	assert.Equal(t, 16, nicklen)

	defaults.SetToken("-NICKLEN")
	_, ok = defaults.Get("NICKLEN")
	assert.False(t, ok)

	defaults.Reset()
	assert.Equal(t, "rfc1459", defaults.CaseMapping())
	assert.Equal(t, 'o', defaults.Mode('@'))
	assert.Equal(t, '@', defaults.Prefix('o'))
}

func TestISupport_StateIsCopy(t *testing.T) {
	state := is.State()
	state.Raw["NETWORK"] = "Changed"
	state.Prefixes['!'] = 'y'

	network, _ := is.Get("NETWORK")
	assert.Equal(t, "TestServer", network)
	assert.Equal(t, rune(0), is.Mode('!'))
}

func TestISupport_IsListMode(t *testing.T) {
	assert.True(t, is.IsListMode('b'))
	assert.True(t, is.IsListMode('q'))
	assert.False(t, is.IsListMode('k'))
	assert.False(t, is.IsListMode('n'))
}

func TestISupport_LineLength(t *testing.T) {
	lines := isupport.New()
	assert.Equal(t, 510, lines.LineLength())

	lines.SetToken("LINELEN=2048")
	assert.Equal(t, 2046, lines.LineLength())

	lines.SetToken("LINELEN=nope")
	assert.Equal(t, 510, lines.LineLength())

	lines.SetToken("-LINELEN")
	assert.Equal(t, 510, lines.LineLength())
}
